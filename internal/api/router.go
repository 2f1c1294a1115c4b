// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"fleetfuel/internal/api/handler"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Webhook      *handler.WebhookHandler
	Transaction  *handler.TransactionHandler
	Organization *handler.OrganizationHandler
	Card         *handler.CardHandler
}

// RouterConfig controls the cross-cutting parts of the router.
type RouterConfig struct {
	// WebhookSecret signs station webhooks. Verification is skipped when VerifyWebhooks is false.
	WebhookSecret  string
	WebhookMaxSkew time.Duration
	VerifyWebhooks bool
	AllowedOrigins []string
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(h Handlers, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)                       // Add a request ID to the context
	r.Use(middleware.RealIP)                          // Use the real IP address
	r.Use(middleware.Logger)                          // Log HTTP requests
	r.Use(middleware.Recoverer)                       // Recover from panics and return 500
	r.Use(middleware.Timeout(handler.DefaultTimeout)) // Set a default timeout for requests

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", handler.IdempotencyKeyHeader, SignatureHeader, TimestampHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/webhooks", func(r chi.Router) {
		if cfg.VerifyWebhooks {
			r.Use(WebhookSignature(cfg.WebhookSecret, cfg.WebhookMaxSkew, time.Now, logger))
		}
		r.Post("/transaction", h.Webhook.HandleTransaction)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.Transaction.ListTransactions)
		r.Get("/{transactionID}", h.Transaction.GetTransaction)
	})

	r.Route("/organizations", func(r chi.Router) {
		r.Post("/", h.Organization.CreateOrganization)
		r.Get("/{organizationID}/balance", h.Organization.GetBalance)
		r.Post("/{organizationID}/topup", h.Organization.TopUp)
		r.Get("/{organizationID}/ledger", h.Organization.GetLedger)
	})

	r.Route("/cards", func(r chi.Router) {
		r.Post("/", h.Card.CreateCard)
		r.Get("/{cardID}/spending", h.Card.GetSpending)
	})

	return r
}
