package usecasekit

import "context"

// MaxTransactItems is the largest number of writes a single all-or-nothing
// transaction may carry (the DynamoDB TransactWriteItems limit).
const MaxTransactItems = 100

// UseCaseStore is the storage port behind the repository
type UseCaseStore interface {
	UseCaseResolver

	// Use case bodies
	PutUseCase(ctx context.Context, rec *UseCaseRecord) error
	UpdateUseCaseContent(ctx context.Context, key ItemKey, content UseCaseContent) error
	SetShared(ctx context.Context, key ItemKey, shared bool) error
	ListUseCasesByOwner(ctx context.Context, ownerKey string, limit int32, start PageKey) ([]*UseCaseRecord, PageKey, error)

	// Associations (favorite, recentlyUsed). A limit of 0 reads the whole set.
	ListAssociations(ctx context.Context, ownerKey string, kind RelationKind, limit int32, start PageKey) ([]*AssociationRecord, PageKey, error)
	PutAssociation(ctx context.Context, rec *AssociationRecord) error
	DeleteItem(ctx context.Context, key ItemKey) error

	// Cross-partition: keys of every item (body and associations) carrying useCaseID
	ListReferenceKeys(ctx context.Context, useCaseID string) ([]ItemKey, error)

	// All-or-nothing multi-item write, at most MaxTransactItems operations
	TransactWrite(ctx context.Context, tx TransactWrite) error
}

// UseCaseResolver resolves a global use case id to its body record regardless of
// the owning partition. It returns nil, nil when no body record exists.
type UseCaseResolver interface {
	ResolveByGlobalID(ctx context.Context, useCaseID string) (*UseCaseRecord, error)
}

// TransactWrite is a set of deletes and association puts applied atomically
type TransactWrite struct {
	Deletes []ItemKey
	Puts    []*AssociationRecord
}

// Len returns the number of operations in the transaction
func (t TransactWrite) Len() int {
	return len(t.Deletes) + len(t.Puts)
}
