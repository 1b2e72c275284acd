package repository

import (
	"context"
	"time"

	"github.com/sicko7947/usecasekit"
)

// FavoriteToggler decides and applies a favorite toggle for one user.
// It returns the resulting favorite state.
type FavoriteToggler interface {
	Toggle(ctx context.Context, userID, useCaseID string) (bool, error)
}

// ScanToggler reads the caller's whole favorite set and then deletes or inserts.
// The read and the write are not isolated: two concurrent toggles of the same
// pair can both insert, leaving a duplicate favorite entry, or both delete, the
// second being a no-op. The read is unbounded in the size of the favorite set.
type ScanToggler struct {
	store usecasekit.UseCaseStore
	now   func() time.Time
}

// NewScanToggler creates the default favorite toggle strategy
func NewScanToggler(store usecasekit.UseCaseStore, now func() time.Time) *ScanToggler {
	return &ScanToggler{store: store, now: now}
}

func (t *ScanToggler) Toggle(ctx context.Context, userID, useCaseID string) (bool, error) {
	ownerKey := usecasekit.OwnerKey(userID)

	favorites, _, err := t.store.ListAssociations(ctx, ownerKey, usecasekit.RelationFavorite, 0, nil)
	if err != nil {
		return false, err
	}

	for _, f := range favorites {
		if f.UseCaseID == useCaseID {
			if err := t.store.DeleteItem(ctx, f.Key()); err != nil {
				return false, err
			}
			return false, nil
		}
	}

	err = t.store.PutAssociation(ctx, &usecasekit.AssociationRecord{
		OwnerKey:  ownerKey,
		SortKey:   usecasekit.SortKey(usecasekit.RelationFavorite, t.now()),
		UseCaseID: useCaseID,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ToggleFavorite adds or removes useCaseID from the caller's favorites
func (r *Repository) ToggleFavorite(ctx context.Context, userID, useCaseID string) (*usecasekit.FavoriteResult, error) {
	isFavorite, err := r.favorites.Toggle(ctx, userID, useCaseID)
	if err != nil {
		return nil, r.fail(OpToggleFavorite, userID, err)
	}

	usecasekit.LogFavoriteToggled(*r.logger, userID, useCaseID, isFavorite)
	return &usecasekit.FavoriteResult{IsFavorite: isFavorite}, nil
}

// ToggleShared flips the shared flag of a use case owned by userID.
// A missing or foreign use case yields {isShared: false} without an error.
func (r *Repository) ToggleShared(ctx context.Context, userID, useCaseID string) (*usecasekit.SharedResult, error) {
	result, _, err := r.toggleShared(ctx, userID, useCaseID)
	return result, err
}

func (r *Repository) toggleShared(ctx context.Context, userID, useCaseID string) (*usecasekit.SharedResult, usecasekit.MutationOutcome, error) {
	rec, outcome, err := r.authorize(ctx, OpToggleShared, userID, useCaseID)
	if err != nil {
		return nil, outcome, err
	}
	if !outcome.Applied() {
		return &usecasekit.SharedResult{IsShared: false}, outcome, nil
	}

	isShared := !rec.IsShared
	if err := r.store.SetShared(ctx, rec.Key(), isShared); err != nil {
		if usecasekit.IsNotFound(err) {
			usecasekit.LogMutationSkipped(*r.logger, OpToggleShared, userID, useCaseID, usecasekit.OutcomeNotFound)
			return &usecasekit.SharedResult{IsShared: false}, usecasekit.OutcomeNotFound, nil
		}
		return nil, "", r.fail(OpToggleShared, userID, err)
	}

	usecasekit.LogSharedToggled(*r.logger, userID, useCaseID, isShared)
	return &usecasekit.SharedResult{IsShared: isShared}, usecasekit.OutcomeApplied, nil
}

// ListFavoriteUseCases returns one page of the caller's favorites, newest first.
// Favorites pointing at deleted, or no longer shared foreign, use cases are left out.
func (r *Repository) ListFavoriteUseCases(ctx context.Context, userID, token string) (*usecasekit.Page, error) {
	start, err := usecasekit.DecodeCursor(OpListFavoriteUseCases, token)
	if err != nil {
		return nil, err
	}

	favorites, next, err := r.store.ListAssociations(ctx, usecasekit.OwnerKey(userID), usecasekit.RelationFavorite, r.config.AssociationPageSize, start)
	if err != nil {
		return nil, r.fail(OpListFavoriteUseCases, userID, err)
	}

	records, err := r.resolveMany(ctx, useCaseIDs(favorites))
	if err != nil {
		return nil, r.fail(OpListFavoriteUseCases, userID, err)
	}

	return r.page(OpListFavoriteUseCases, visibleUseCases(records, userID, func(string) bool { return true }), next)
}

func useCaseIDs(records []*usecasekit.AssociationRecord) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.UseCaseID
	}
	return ids
}
