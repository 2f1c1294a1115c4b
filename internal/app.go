// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	router "fleetfuel/internal/api"
	"fleetfuel/internal/api/handler"
	"fleetfuel/internal/config"
	"fleetfuel/internal/events"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/repository/postgres"
	"fleetfuel/internal/service"
	"fleetfuel/internal/util"
	"fleetfuel/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB
	Redis  *redis.Client // nil when REDIS_ADDR is empty

	// Repositories
	OrganizationRepository    repository.OrganizationRepository
	BalanceRepository         repository.BalanceRepository
	LedgerRepository          repository.LedgerRepository
	CardRepository            repository.CardRepository
	SpendingCounterRepository repository.SpendingCounterRepository
	TransactionRepository     repository.TransactionRepository
	WebhookEventRepository    repository.WebhookEventRepository

	// Services
	OrganizationService service.OrganizationService
	CardService         service.CardService
	TransactionService  service.TransactionService
	WebhookService      service.WebhookService

	Publisher events.Publisher

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.", "environment", cfg.Environment)

	// 3. Connect to Database and apply the schema
	database, err := db.NewPostgresDB(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	if err := db.Migrate(ctx, app.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	app.Logger.Info("Database connection established.")

	// 4. Event queue; purchases still work without it
	app.Publisher = events.NopPublisher{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			app.Logger.Warn("Redis unavailable, transaction events disabled", "addr", cfg.Redis.Addr, "error", err)
			_ = client.Close()
		} else {
			app.Redis = client
			app.Publisher = events.NewRedisPublisher(client, cfg.Redis.EventsKey)
			app.Logger.Info("Redis connection established.", "events_key", cfg.Redis.EventsKey)
		}
	}

	// 5. Initialize Repositories
	app.OrganizationRepository = postgres.NewOrganizationRepository()
	app.BalanceRepository = postgres.NewBalanceRepository()
	app.LedgerRepository = postgres.NewLedgerRepository()
	app.CardRepository = postgres.NewCardRepository()
	app.SpendingCounterRepository = postgres.NewSpendingCounterRepository()
	app.TransactionRepository = postgres.NewTransactionRepository()
	app.WebhookEventRepository = postgres.NewWebhookEventRepository()
	app.Logger.Info("Repositories initialized.")

	// 6. Initialize Services
	// app.DB is both the DBTxBeginner behind the TxManager and the DBExecutor for plain reads.
	tx := service.NewTxManager(app.DB)
	app.OrganizationService = service.NewOrganizationService(
		app.DB,
		app.OrganizationRepository,
		app.BalanceRepository,
		app.LedgerRepository,
		tx,
		app.Logger,
	)
	app.CardService = service.NewCardService(
		app.DB,
		app.OrganizationRepository,
		app.CardRepository,
		app.SpendingCounterRepository,
		app.Logger,
	)
	purchaseSaga := service.NewProcessTransactionSaga(
		app.DB,
		tx,
		app.OrganizationService,
		app.CardService,
		app.OrganizationRepository,
		app.TransactionRepository,
		app.Logger,
	)
	app.TransactionService = service.NewTransactionService(app.DB, app.TransactionRepository, purchaseSaga, app.Publisher, app.Logger)
	app.WebhookService = service.NewWebhookService(app.DB, app.WebhookEventRepository, app.TransactionService, app.Logger)
	app.Logger.Info("Services initialized.")

	// 7. Initialize HTTP Handlers and Router
	validate := validator.New()
	handlers := router.Handlers{
		Webhook:      handler.NewWebhookHandler(app.WebhookService, validate, app.Logger),
		Transaction:  handler.NewTransactionHandler(app.TransactionService, app.Logger),
		Organization: handler.NewOrganizationHandler(app.OrganizationService, validate, cfg.DefaultTimezone, app.Logger),
		Card:         handler.NewCardHandler(app.CardService, app.OrganizationService, validate, app.Logger),
	}
	if cfg.IsDevelopment() {
		app.Logger.Warn("Webhook signature verification disabled in development")
	}
	app.HTTPHandler = router.NewRouter(handlers, router.RouterConfig{
		WebhookSecret:  cfg.Webhook.Secret,
		WebhookMaxSkew: cfg.Webhook.MaxSkew,
		VerifyWebhooks: !cfg.IsDevelopment(),
	}, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Error("Failed to close Redis connection", "error", err)
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
