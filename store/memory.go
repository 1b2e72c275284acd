package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/sicko7947/usecasekit"
)

// memoryItem is either a body (body != nil) or an association
type memoryItem struct {
	useCaseID string
	body      *usecasekit.UseCaseRecord
}

// MemoryStore implements usecasekit.UseCaseStore using in-memory storage (for testing)
type MemoryStore struct {
	partitions map[string]map[string]*memoryItem // ownerKey -> sortKey -> item
	mu         sync.RWMutex
}

// NewMemoryStore creates a new in-memory use case store
func NewMemoryStore() usecasekit.UseCaseStore {
	return &MemoryStore{
		partitions: make(map[string]map[string]*memoryItem),
	}
}

// Use case bodies

func (s *MemoryStore) PutUseCase(ctx context.Context, rec *usecasekit.UseCaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(rec.Key(), &memoryItem{useCaseID: rec.UseCaseID, body: copyRecord(rec)})
	return nil
}

func (s *MemoryStore) UpdateUseCaseContent(ctx context.Context, key usecasekit.ItemKey, content usecasekit.UseCaseContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.body(key)
	if err != nil {
		return err
	}

	item.body.UseCaseContent = copyContent(content.Normalized())
	return nil
}

func (s *MemoryStore) SetShared(ctx context.Context, key usecasekit.ItemKey, shared bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.body(key)
	if err != nil {
		return err
	}

	item.body.IsShared = shared
	return nil
}

func (s *MemoryStore) ListUseCasesByOwner(ctx context.Context, ownerKey string, limit int32, start usecasekit.PageKey) ([]*usecasekit.UseCaseRecord, usecasekit.PageKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sortKeys, next := s.page(ownerKey, usecasekit.SortKeyPrefix(usecasekit.RelationUseCase), limit, start)

	records := make([]*usecasekit.UseCaseRecord, 0, len(sortKeys))
	for _, sk := range sortKeys {
		records = append(records, copyRecord(s.partitions[ownerKey][sk].body))
	}

	return records, next, nil
}

// Lookup

func (s *MemoryStore) ResolveByGlobalID(ctx context.Context, useCaseID string) (*usecasekit.UseCaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Same filter as the index query: body sort keys only
	for _, partition := range s.partitions {
		for sortKey, item := range partition {
			if usecasekit.KindOf(sortKey) == usecasekit.RelationUseCase && item.body != nil && item.useCaseID == useCaseID {
				return copyRecord(item.body), nil
			}
		}
	}

	return nil, nil
}

func (s *MemoryStore) ListReferenceKeys(ctx context.Context, useCaseID string) ([]usecasekit.ItemKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []usecasekit.ItemKey
	for ownerKey, partition := range s.partitions {
		for sortKey, item := range partition {
			if item.useCaseID == useCaseID {
				keys = append(keys, usecasekit.ItemKey{OwnerKey: ownerKey, SortKey: sortKey})
			}
		}
	}

	return keys, nil
}

// Associations

func (s *MemoryStore) ListAssociations(ctx context.Context, ownerKey string, kind usecasekit.RelationKind, limit int32, start usecasekit.PageKey) ([]*usecasekit.AssociationRecord, usecasekit.PageKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sortKeys, next := s.page(ownerKey, usecasekit.SortKeyPrefix(kind), limit, start)

	records := make([]*usecasekit.AssociationRecord, 0, len(sortKeys))
	for _, sk := range sortKeys {
		records = append(records, &usecasekit.AssociationRecord{
			OwnerKey:  ownerKey,
			SortKey:   sk,
			UseCaseID: s.partitions[ownerKey][sk].useCaseID,
		})
	}

	return records, next, nil
}

func (s *MemoryStore) PutAssociation(ctx context.Context, rec *usecasekit.AssociationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(rec.Key(), &memoryItem{useCaseID: rec.UseCaseID})
	return nil
}

func (s *MemoryStore) DeleteItem(ctx context.Context, key usecasekit.ItemKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delete(key)
	return nil
}

func (s *MemoryStore) TransactWrite(ctx context.Context, tx usecasekit.TransactWrite) error {
	if tx.Len() > usecasekit.MaxTransactItems {
		return usecasekit.NewError(usecasekit.ErrCodeTransactionTooLarge, "TransactWrite",
			fmt.Sprintf("%d operations exceed the limit of %d", tx.Len(), usecasekit.MaxTransactItems))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range tx.Deletes {
		s.delete(key)
	}
	for _, rec := range tx.Puts {
		s.put(rec.Key(), &memoryItem{useCaseID: rec.UseCaseID})
	}

	return nil
}

// Len returns the total number of items held, bodies and associations alike
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, partition := range s.partitions {
		n += len(partition)
	}
	return n
}

// Internal helpers; callers hold the lock.

func (s *MemoryStore) put(key usecasekit.ItemKey, item *memoryItem) {
	partition, exists := s.partitions[key.OwnerKey]
	if !exists {
		partition = make(map[string]*memoryItem)
		s.partitions[key.OwnerKey] = partition
	}
	partition[key.SortKey] = item
}

func (s *MemoryStore) delete(key usecasekit.ItemKey) {
	partition, exists := s.partitions[key.OwnerKey]
	if !exists {
		return
	}
	delete(partition, key.SortKey)
	if len(partition) == 0 {
		delete(s.partitions, key.OwnerKey)
	}
}

func (s *MemoryStore) body(key usecasekit.ItemKey) (*memoryItem, error) {
	item, exists := s.partitions[key.OwnerKey][key.SortKey]
	if !exists || item.body == nil {
		return nil, usecasekit.NewError(usecasekit.ErrCodeNotFound, "", "use case no longer exists")
	}
	return item, nil
}

// page returns the sort keys of one newest-first page, resuming after start
func (s *MemoryStore) page(ownerKey, prefix string, limit int32, start usecasekit.PageKey) ([]string, usecasekit.PageKey) {
	sortKeys := slices.Sorted(maps.Keys(s.partitions[ownerKey]))
	slices.Reverse(sortKeys)

	var matched []string
	for _, sk := range sortKeys {
		if !strings.HasPrefix(sk, prefix) {
			continue
		}
		// Descending order: resume strictly below the last returned key
		if start != nil && sk >= start[AttrDataType] {
			continue
		}
		matched = append(matched, sk)
	}

	if limit <= 0 || len(matched) <= int(limit) {
		return matched, nil
	}

	matched = matched[:limit]
	return matched, usecasekit.PageKey{
		AttrOwnerKey: ownerKey,
		AttrDataType: matched[len(matched)-1],
	}
}

func copyRecord(rec *usecasekit.UseCaseRecord) *usecasekit.UseCaseRecord {
	recCopy := *rec
	recCopy.UseCaseContent = copyContent(rec.UseCaseContent)
	return &recCopy
}

func copyContent(c usecasekit.UseCaseContent) usecasekit.UseCaseContent {
	if c.InputExamples != nil {
		examples := make([]usecasekit.InputExample, len(c.InputExamples))
		for i, ex := range c.InputExamples {
			examples[i] = usecasekit.InputExample{Title: ex.Title, Examples: maps.Clone(ex.Examples)}
		}
		c.InputExamples = examples
	}
	return c
}
