package repository

import (
	"context"

	"github.com/sicko7947/usecasekit"
)

// CreateUseCase stores a new use case owned by userID
func (r *Repository) CreateUseCase(ctx context.Context, userID string, content usecasekit.UseCaseContent) (*usecasekit.UseCase, error) {
	if err := content.Validate(); err != nil {
		return nil, usecasekit.WrapError(usecasekit.ErrCodeValidation, OpCreateUseCase, err)
	}

	rec := &usecasekit.UseCaseRecord{
		OwnerKey:       usecasekit.OwnerKey(userID),
		SortKey:        usecasekit.SortKey(usecasekit.RelationUseCase, r.now()),
		UseCaseID:      r.newID(),
		UseCaseContent: content.Normalized(),
		IsShared:       false,
	}

	if err := r.store.PutUseCase(ctx, rec); err != nil {
		return nil, r.fail(OpCreateUseCase, userID, err)
	}

	usecasekit.LogUseCaseCreated(*r.logger, userID, rec.UseCaseID)
	return usecasekit.NewUseCase(rec, userID, false), nil
}

// GetUseCase returns the use case if userID owns it or it is shared.
// Missing and invisible use cases both yield nil without an error.
func (r *Repository) GetUseCase(ctx context.Context, userID, useCaseID string) (*usecasekit.UseCase, error) {
	rec, err := r.store.ResolveByGlobalID(ctx, useCaseID)
	if err != nil {
		return nil, r.fail(OpGetUseCase, userID, err)
	}

	if rec == nil || !rec.VisibleTo(userID) {
		return nil, nil
	}

	favorites, err := r.favoriteIDs(ctx, userID)
	if err != nil {
		return nil, r.fail(OpGetUseCase, userID, err)
	}

	return usecasekit.NewUseCase(rec, userID, favorites[useCaseID]), nil
}

// ListUseCases returns one page of the caller's own use cases, newest first
func (r *Repository) ListUseCases(ctx context.Context, userID, token string) (*usecasekit.Page, error) {
	start, err := usecasekit.DecodeCursor(OpListUseCases, token)
	if err != nil {
		return nil, err
	}

	records, next, err := r.store.ListUseCasesByOwner(ctx, usecasekit.OwnerKey(userID), r.config.UseCasePageSize, start)
	if err != nil {
		return nil, r.fail(OpListUseCases, userID, err)
	}

	favorites, err := r.favoriteIDs(ctx, userID)
	if err != nil {
		return nil, r.fail(OpListUseCases, userID, err)
	}

	return r.page(OpListUseCases, visibleUseCases(records, userID, func(id string) bool { return favorites[id] }), next)
}

// UpdateUseCase overwrites every mutable field. Absent optional fields are
// cleared. Updating a missing or foreign use case is a silent no-op.
func (r *Repository) UpdateUseCase(ctx context.Context, userID, useCaseID string, content usecasekit.UseCaseContent) error {
	_, err := r.updateUseCase(ctx, userID, useCaseID, content)
	return err
}

func (r *Repository) updateUseCase(ctx context.Context, userID, useCaseID string, content usecasekit.UseCaseContent) (usecasekit.MutationOutcome, error) {
	if err := content.Validate(); err != nil {
		return "", usecasekit.WrapError(usecasekit.ErrCodeValidation, OpUpdateUseCase, err)
	}

	rec, outcome, err := r.authorize(ctx, OpUpdateUseCase, userID, useCaseID)
	if err != nil || !outcome.Applied() {
		return outcome, err
	}

	if err := r.store.UpdateUseCaseContent(ctx, rec.Key(), content); err != nil {
		if usecasekit.IsNotFound(err) {
			usecasekit.LogMutationSkipped(*r.logger, OpUpdateUseCase, userID, useCaseID, usecasekit.OutcomeNotFound)
			return usecasekit.OutcomeNotFound, nil
		}
		return "", r.fail(OpUpdateUseCase, userID, err)
	}

	usecasekit.LogUseCaseUpdated(*r.logger, userID, useCaseID)
	return usecasekit.OutcomeApplied, nil
}

// DeleteUseCase removes the use case and every favorite and recently used
// entry that references it, across all users. Deleting a missing or foreign
// use case is a silent no-op.
func (r *Repository) DeleteUseCase(ctx context.Context, userID, useCaseID string) error {
	_, err := r.deleteUseCase(ctx, userID, useCaseID)
	return err
}

func (r *Repository) deleteUseCase(ctx context.Context, userID, useCaseID string) (usecasekit.MutationOutcome, error) {
	rec, outcome, err := r.authorize(ctx, OpDeleteUseCase, userID, useCaseID)
	if err != nil || !outcome.Applied() {
		return outcome, err
	}

	refs, err := r.store.ListReferenceKeys(ctx, useCaseID)
	if err != nil {
		return "", r.fail(OpDeleteUseCase, userID, err)
	}

	batches := cascadeBatches(rec.Key(), refs)
	for _, batch := range batches {
		if err := r.store.TransactWrite(ctx, usecasekit.TransactWrite{Deletes: batch}); err != nil {
			return "", r.fail(OpDeleteUseCase, userID, err)
		}
	}

	usecasekit.LogUseCaseDeleted(*r.logger, userID, useCaseID, len(refs))
	return usecasekit.OutcomeApplied, nil
}

// cascadeBatches splits the keys to delete into transactions of at most
// MaxTransactItems. The body key always goes in the last batch, so a failure
// part way leaves the body resolvable and the delete can be repeated.
func cascadeBatches(body usecasekit.ItemKey, refs []usecasekit.ItemKey) [][]usecasekit.ItemKey {
	keys := make([]usecasekit.ItemKey, 0, len(refs)+1)
	for _, key := range refs {
		if key != body {
			keys = append(keys, key)
		}
	}
	// The index may lag behind the table; the body is deleted regardless
	keys = append(keys, body)

	var batches [][]usecasekit.ItemKey
	for len(keys) > 0 {
		n := min(len(keys), usecasekit.MaxTransactItems)
		batches = append(batches, keys[:n])
		keys = keys[n:]
	}
	return batches
}

// page encodes the continuation token for op
func (r *Repository) page(op string, useCases []*usecasekit.UseCase, next usecasekit.PageKey) (*usecasekit.Page, error) {
	token, err := usecasekit.EncodeCursor(op, next)
	if err != nil {
		return nil, usecasekit.WrapError(usecasekit.ErrCodeInvalidCursor, op, err)
	}
	return &usecasekit.Page{Data: useCases, NextToken: token}, nil
}
