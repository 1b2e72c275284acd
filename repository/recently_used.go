package repository

import (
	"context"
	"time"

	"github.com/sicko7947/usecasekit"
	"golang.org/x/sync/errgroup"
)

// HistoryRecorder records that a user used a use case
type HistoryRecorder interface {
	Record(ctx context.Context, userID, useCaseID string) (evicted int, err error)
}

// BoundedHistory keeps at most limit recently used entries per user, newest first.
//
// The read that decides what to evict is not part of the write transaction, so
// recording a use case that is not yet in the history can leave limit+1 entries
// until the next call trims them.
type BoundedHistory struct {
	store usecasekit.UseCaseStore
	limit int
	now   func() time.Time
}

// NewBoundedHistory creates the default recently used strategy
func NewBoundedHistory(store usecasekit.UseCaseStore, limit int, now func() time.Time) *BoundedHistory {
	return &BoundedHistory{store: store, limit: limit, now: now}
}

func (h *BoundedHistory) Record(ctx context.Context, userID, useCaseID string) (int, error) {
	ownerKey := usecasekit.OwnerKey(userID)

	entries, _, err := h.store.ListAssociations(ctx, ownerKey, usecasekit.RelationRecentlyUsed, 0, nil)
	if err != nil {
		return 0, err
	}

	deletes := planEviction(entries, useCaseID, h.limit, usecasekit.MaxTransactItems-1)

	err = h.store.TransactWrite(ctx, usecasekit.TransactWrite{
		Deletes: deletes,
		Puts: []*usecasekit.AssociationRecord{{
			OwnerKey:  ownerKey,
			SortKey:   usecasekit.SortKey(usecasekit.RelationRecentlyUsed, h.now()),
			UseCaseID: useCaseID,
		}},
	})
	if err != nil {
		return 0, err
	}

	return len(deletes), nil
}

// planEviction picks the entries to delete before useCaseID is added to a
// newest-first history: everything past limit, plus the first earlier entry
// for the same use case if it lies within limit. At most maxDeletes keys are
// returned; the previous entry for useCaseID is kept in the plan first, then
// the oldest overflow entries.
func planEviction(entries []*usecasekit.AssociationRecord, useCaseID string, limit, maxDeletes int) []usecasekit.ItemKey {
	var deletes []usecasekit.ItemKey

	for i, entry := range entries {
		if i >= limit {
			break
		}
		if entry.UseCaseID == useCaseID {
			deletes = append(deletes, entry.Key())
			break
		}
	}

	for i := len(entries) - 1; i >= limit && len(deletes) < maxDeletes; i-- {
		deletes = append(deletes, entries[i].Key())
	}

	return deletes
}

// UpdateRecentlyUsedUseCase moves useCaseID to the front of the caller's history
func (r *Repository) UpdateRecentlyUsedUseCase(ctx context.Context, userID, useCaseID string) error {
	evicted, err := r.history.Record(ctx, userID, useCaseID)
	if err != nil {
		return r.fail(OpUpdateRecentlyUsedUseCase, userID, err)
	}

	usecasekit.LogRecentlyUsedUpdated(*r.logger, userID, useCaseID, evicted)
	return nil
}

// ListRecentlyUsedUseCases returns one page of the caller's history, newest first,
// annotated with favorite state. Entries the caller can no longer see are left out.
func (r *Repository) ListRecentlyUsedUseCases(ctx context.Context, userID, token string) (*usecasekit.Page, error) {
	start, err := usecasekit.DecodeCursor(OpListRecentlyUsedUseCases, token)
	if err != nil {
		return nil, err
	}

	entries, next, err := r.store.ListAssociations(ctx, usecasekit.OwnerKey(userID), usecasekit.RelationRecentlyUsed, r.config.AssociationPageSize, start)
	if err != nil {
		return nil, r.fail(OpListRecentlyUsedUseCases, userID, err)
	}

	var records []*usecasekit.UseCaseRecord
	var favorites map[string]bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = r.resolveMany(gctx, useCaseIDs(entries))
		return err
	})
	g.Go(func() error {
		var err error
		favorites, err = r.favoriteIDs(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, r.fail(OpListRecentlyUsedUseCases, userID, err)
	}

	return r.page(OpListRecentlyUsedUseCases, visibleUseCases(records, userID, func(id string) bool { return favorites[id] }), next)
}
