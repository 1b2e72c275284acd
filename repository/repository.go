// Package repository implements the use case operations: CRUD, sharing,
// favorites and the bounded recently used history.
package repository

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sicko7947/usecasekit"
)

// Operation names, used in logs, errors and continuation tokens
const (
	OpCreateUseCase             = "CreateUseCase"
	OpGetUseCase                = "GetUseCase"
	OpListUseCases              = "ListUseCases"
	OpUpdateUseCase             = "UpdateUseCase"
	OpDeleteUseCase             = "DeleteUseCase"
	OpToggleFavorite            = "ToggleFavorite"
	OpToggleShared              = "ToggleShared"
	OpListFavoriteUseCases      = "ListFavoriteUseCases"
	OpListRecentlyUsedUseCases  = "ListRecentlyUsedUseCases"
	OpUpdateRecentlyUsedUseCase = "UpdateRecentlyUsedUseCase"
)

// Repository implements the use case operations over a UseCaseStore
type Repository struct {
	store     usecasekit.UseCaseStore
	logger    *zerolog.Logger
	config    usecasekit.Config
	now       func() time.Time
	newID     func() string
	favorites FavoriteToggler
	history   HistoryRecorder
}

// Option configures the repository
type Option func(*Repository)

// WithLogger sets a custom logger for the repository
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Repository) {
		r.logger = &logger
	}
}

// WithConfig sets a custom configuration for the repository
func WithConfig(config usecasekit.Config) Option {
	return func(r *Repository) {
		r.config = config
	}
}

// WithClock replaces time.Now, which orders every sort key
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithIDGenerator replaces the use case id generator
func WithIDGenerator(newID func() string) Option {
	return func(r *Repository) {
		r.newID = newID
	}
}

// WithFavoriteToggler swaps the favorite toggle strategy
func WithFavoriteToggler(t FavoriteToggler) Option {
	return func(r *Repository) {
		r.favorites = t
	}
}

// WithHistoryRecorder swaps the recently used strategy
func WithHistoryRecorder(h HistoryRecorder) Option {
	return func(r *Repository) {
		r.history = h
	}
}

// New creates a repository with optional configuration.
// If no logger is provided, a stdout console logger at the configured level is used.
// If no config is provided, usecasekit.DefaultConfig is used; zero or negative
// sizes in a provided config fall back to the default values.
func New(store usecasekit.UseCaseStore, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		config: usecasekit.DefaultConfig,
		now:    time.Now,
		newID:  uuid.NewString,
	}

	// Apply options
	for _, opt := range opts {
		opt(r)
	}
	r.config = r.config.WithDefaults()

	if r.logger == nil {
		// Default logger: pretty console output at the configured level
		defaultLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger().
			Level(r.config.Level())
		r.logger = &defaultLogger
	}

	if r.favorites == nil {
		r.favorites = NewScanToggler(store, r.now)
	}
	if r.history == nil {
		r.history = NewBoundedHistory(store, r.config.RecentlyUsedLimit, r.now)
	}

	return r
}

// fail logs a storage failure and wraps it with the operation name
func (r *Repository) fail(op, userID string, err error) error {
	usecasekit.LogStorageError(*r.logger, op, userID, err)
	return usecasekit.WrapError(usecasekit.ErrCodeStorage, op, err)
}
