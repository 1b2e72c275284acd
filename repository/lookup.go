package repository

import (
	"context"

	"github.com/sicko7947/usecasekit"
	"golang.org/x/sync/errgroup"
)

// resolveMany resolves ids concurrently and returns the body records in input
// order. Ids that resolve to nothing (deleted or bogus references) are dropped.
func (r *Repository) resolveMany(ctx context.Context, ids []string) ([]*usecasekit.UseCaseRecord, error) {
	resolved := make([]*usecasekit.UseCaseRecord, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.LookupConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := r.store.ResolveByGlobalID(ctx, id)
			if err != nil {
				return err
			}
			resolved[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]*usecasekit.UseCaseRecord, 0, len(resolved))
	for _, rec := range resolved {
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// favoriteIDs reads the caller's whole favorite set
func (r *Repository) favoriteIDs(ctx context.Context, userID string) (map[string]bool, error) {
	favorites, _, err := r.store.ListAssociations(ctx, usecasekit.OwnerKey(userID), usecasekit.RelationFavorite, 0, nil)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(favorites))
	for _, f := range favorites {
		ids[f.UseCaseID] = true
	}
	return ids, nil
}

// authorize resolves useCaseID and checks that userID owns it. Anything other
// than OutcomeApplied is logged and must be turned into a silent no-op.
func (r *Repository) authorize(ctx context.Context, op, userID, useCaseID string) (*usecasekit.UseCaseRecord, usecasekit.MutationOutcome, error) {
	rec, err := r.store.ResolveByGlobalID(ctx, useCaseID)
	if err != nil {
		return nil, "", r.fail(op, userID, err)
	}

	if rec == nil {
		usecasekit.LogMutationSkipped(*r.logger, op, userID, useCaseID, usecasekit.OutcomeNotFound)
		return nil, usecasekit.OutcomeNotFound, nil
	}

	if !rec.IsOwnedBy(userID) {
		usecasekit.LogMutationSkipped(*r.logger, op, userID, useCaseID, usecasekit.OutcomeForbidden)
		return nil, usecasekit.OutcomeForbidden, nil
	}

	return rec, usecasekit.OutcomeApplied, nil
}

// visibleUseCases annotates records for userID and drops the ones the caller may not read
func visibleUseCases(records []*usecasekit.UseCaseRecord, userID string, isFavorite func(string) bool) []*usecasekit.UseCase {
	useCases := make([]*usecasekit.UseCase, 0, len(records))
	for _, rec := range records {
		if !rec.VisibleTo(userID) {
			continue
		}
		useCases = append(useCases, usecasekit.NewUseCase(rec, userID, isFavorite(rec.UseCaseID)))
	}
	return useCases
}
