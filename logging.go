package usecasekit

import (
	"github.com/rs/zerolog"
)

// Log event names
const (
	// Use case lifecycle
	EventUseCaseCreated  = "usecase_created"
	EventUseCaseUpdated  = "usecase_updated"
	EventUseCaseDeleted  = "usecase_deleted"
	EventMutationSkipped = "mutation_skipped"

	// Associations
	EventSharedToggled       = "shared_toggled"
	EventFavoriteToggled     = "favorite_toggled"
	EventRecentlyUsedUpdated = "recently_used_updated"

	// Persistence
	EventStorageError = "storage_error"
)

// LogUseCaseCreated logs a newly created use case
func LogUseCaseCreated(logger zerolog.Logger, userID, useCaseID string) {
	logger.Info().
		Str("event", EventUseCaseCreated).
		Str("user_id", userID).
		Str("use_case_id", useCaseID).
		Msg("Use case created")
}

// LogUseCaseUpdated logs an applied content update
func LogUseCaseUpdated(logger zerolog.Logger, userID, useCaseID string) {
	logger.Info().
		Str("event", EventUseCaseUpdated).
		Str("user_id", userID).
		Str("use_case_id", useCaseID).
		Msg("Use case updated")
}

// LogUseCaseDeleted logs a cascading delete
func LogUseCaseDeleted(logger zerolog.Logger, userID, useCaseID string, items int) {
	logger.Info().
		Str("event", EventUseCaseDeleted).
		Str("user_id", userID).
		Str("use_case_id", useCaseID).
		Int("items", items).
		Msg("Use case deleted")
}

// LogMutationSkipped logs an ownership-checked mutation that had no effect
func LogMutationSkipped(logger zerolog.Logger, operation, userID, useCaseID string, outcome MutationOutcome) {
	logger.Warn().
		Str("event", EventMutationSkipped).
		Str("operation", operation).
		Str("user_id", userID).
		Str("use_case_id", useCaseID).
		Str("outcome", outcome.String()).
		Msg("Mutation skipped")
}

// LogSharedToggled logs a change of the shared flag
func LogSharedToggled(logger zerolog.Logger, userID, useCaseID string, isShared bool) {
	logger.Info().
		Str("event", EventSharedToggled).
		Str("user_id", userID).
		Str("use_case_id", useCaseID).
		Bool("is_shared", isShared).
		Msg("Shared flag toggled")
}

// LogFavoriteToggled logs a favorite being added or removed
func LogFavoriteToggled(logger zerolog.Logger, userID, useCaseID string, isFavorite bool) {
	logger.Debug().
		Str("event", EventFavoriteToggled).
		Str("user_id", userID).
		Str("use_case_id", useCaseID).
		Bool("is_favorite", isFavorite).
		Msg("Favorite toggled")
}

// LogRecentlyUsedUpdated logs a history update with the number of evicted entries
func LogRecentlyUsedUpdated(logger zerolog.Logger, userID, useCaseID string, evicted int) {
	logger.Debug().
		Str("event", EventRecentlyUsedUpdated).
		Str("user_id", userID).
		Str("use_case_id", useCaseID).
		Int("evicted", evicted).
		Msg("Recently used updated")
}

// LogStorageError logs errors returned by the storage engine
func LogStorageError(logger zerolog.Logger, operation, userID string, err error) {
	logger.Error().
		Str("event", EventStorageError).
		Str("operation", operation).
		Str("user_id", userID).
		Err(err).
		Msg("Storage error")
}
