package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sicko7947/usecasekit"
	"github.com/sicko7947/usecasekit/builder"
	"github.com/sicko7947/usecasekit/repository"
	"github.com/sicko7947/usecasekit/store"
	"github.com/spf13/cobra"
)

// userHeader carries the caller identity. Authentication happens upstream;
// this server trusts whatever the gateway puts here.
const userHeader = "X-User-Id"

var repo *repository.Repository

// initializeApp wires config, storage and the repository
func initializeApp(configPath string, inMemory, seed bool) {
	cfg, err := usecasekit.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).Level(cfg.Level())

	var useCaseStore usecasekit.UseCaseStore
	if inMemory {
		useCaseStore = store.NewMemoryStore()
	} else {
		client, err := store.NewDynamoDBClient(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create DynamoDB client")
		}
		useCaseStore = store.NewDynamoDBStore(client, cfg.TableName, cfg.UseCaseIDIndexName)
	}

	repo = repository.New(
		useCaseStore,
		repository.WithLogger(log.Logger),
		repository.WithConfig(cfg),
	)

	if seed {
		seedExamples()
	}

	log.Info().
		Str("table", cfg.TableName).
		Bool("in_memory", inMemory).
		Msg("Use case repository initialized")
}

// seedExamples creates a shared sample use case owned by the "demo" user
func seedExamples() {
	content := builder.NewUseCase("Translate").
		WithDescription("Translate text into another language").
		WithPromptTemplate("Translate the following text into {{text:Language}}.\n\n{{text:Text}}").
		WithExample("Japanese", map[string]string{"Language": "Japanese", "Text": "Good morning"}).
		MustBuild()

	ctx := context.Background()
	uc, err := repo.CreateUseCase(ctx, "demo", content)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed use case")
	}
	if _, err := repo.ToggleShared(ctx, "demo", uc.UseCaseID); err != nil {
		log.Fatal().Err(err).Msg("Failed to share seeded use case")
	}
	log.Info().Str("use_case_id", uc.UseCaseID).Msg("Seeded shared use case")
}

// registerRoutes registers all HTTP routes
func registerRoutes(app *fiber.App) {
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "usecase-builder",
		})
	})

	useCases := app.Group("/usecases", requireUser)

	useCases.Get("/", handleListUseCases)
	useCases.Post("/", handleCreateUseCase)
	useCases.Get("/favorite", handleListFavorites)
	useCases.Get("/recent", handleListRecentlyUsed)
	useCases.Put("/recent/:useCaseId", handleUpdateRecentlyUsed)
	useCases.Get("/:useCaseId", handleGetUseCase)
	useCases.Put("/:useCaseId", handleUpdateUseCase)
	useCases.Delete("/:useCaseId", handleDeleteUseCase)
	useCases.Put("/:useCaseId/favorite", handleToggleFavorite)
	useCases.Put("/:useCaseId/shared", handleToggleShared)
}

func requireUser(c fiber.Ctx) error {
	if c.Get(userHeader) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing user identity",
		})
	}
	return c.Next()
}

func userID(c fiber.Ctx) string {
	return c.Get(userHeader)
}

// respondError maps repository errors to HTTP statuses
func respondError(c fiber.Ctx, err error) error {
	switch {
	case usecasekit.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case usecasekit.IsInvalidCursor(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exclusiveStartKey"})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

func handleCreateUseCase(c fiber.Ctx) error {
	var content usecasekit.UseCaseContent
	if err := c.Bind().JSON(&content); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	uc, err := repo.CreateUseCase(c.Context(), userID(c), content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(uc)
}

func handleGetUseCase(c fiber.Ctx) error {
	uc, err := repo.GetUseCase(c.Context(), userID(c), c.Params("useCaseId"))
	if err != nil {
		return respondError(c, err)
	}
	if uc == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Use case not found",
		})
	}
	return c.JSON(uc)
}

func handleListUseCases(c fiber.Ctx) error {
	page, err := repo.ListUseCases(c.Context(), userID(c), c.Query("exclusiveStartKey"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func handleUpdateUseCase(c fiber.Ctx) error {
	var content usecasekit.UseCaseContent
	if err := c.Bind().JSON(&content); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := repo.UpdateUseCase(c.Context(), userID(c), c.Params("useCaseId"), content); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func handleDeleteUseCase(c fiber.Ctx) error {
	if err := repo.DeleteUseCase(c.Context(), userID(c), c.Params("useCaseId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func handleToggleFavorite(c fiber.Ctx) error {
	result, err := repo.ToggleFavorite(c.Context(), userID(c), c.Params("useCaseId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func handleToggleShared(c fiber.Ctx) error {
	result, err := repo.ToggleShared(c.Context(), userID(c), c.Params("useCaseId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func handleListFavorites(c fiber.Ctx) error {
	page, err := repo.ListFavoriteUseCases(c.Context(), userID(c), c.Query("exclusiveStartKey"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func handleListRecentlyUsed(c fiber.Ctx) error {
	page, err := repo.ListRecentlyUsedUseCases(c.Context(), userID(c), c.Query("exclusiveStartKey"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func handleUpdateRecentlyUsed(c fiber.Ctx) error {
	if err := repo.UpdateRecentlyUsedUseCase(c.Context(), userID(c), c.Params("useCaseId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

var (
	configPath string
	listenAddr string
	inMemory   bool
	seed       bool
)

var rootCmd = &cobra.Command{
	Use:   "usecase-server",
	Short: "Serve the use case repository over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		initializeApp(configPath, inMemory, seed)
		return serve(listenAddr)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&listenAddr, "addr", ":3000", "listen address")
	rootCmd.Flags().BoolVar(&inMemory, "memory", false, "use the in-memory store instead of DynamoDB")
	rootCmd.Flags().BoolVar(&seed, "seed", false, "create a shared sample use case on startup")
}

// serve runs the HTTP server until SIGINT or SIGTERM
func serve(addr string) error {
	app := fiber.New()
	registerRoutes(app)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Msg("Starting HTTP server")
		errCh <- app.Listen(addr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
