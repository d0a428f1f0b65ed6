package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/reachops/outreach-gateway/internal/domain"
)

// SetupRoutes configures the router with all endpoints.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestTracing)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	// Provider ingest. No bearer here: trust is verified per provider
	// inside the gateway (HMAC, replay window, or path token + origin).
	r.Post("/webhooks/smartlead", h.IngestWebhook(domain.ProviderSmartlead))
	r.Post("/webhooks/heyreach", h.IngestWebhook(domain.ProviderHeyReach))
	r.Post("/webhooks/lob", h.IngestWebhook(domain.ProviderLob))
	r.Post("/webhooks/emailbison/{token}", h.IngestWebhook(domain.ProviderEmailBison))
	r.Post("/webhooks/emailbison", h.RejectBareUnsignedPath)

	// Scheduler entry authenticates with a shared secret header.
	r.Post("/internal/reconciliation/run-scheduled", h.RunScheduledReconciliation)

	// Operator surface: bearer auth, CORS for the admin UI.
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://admin.reachops.io", "http://localhost:5173", "http://localhost:8080"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(h.requireAuth)

		// Platform-operator routes.
		r.Group(func(r chi.Router) {
			r.Use(requireSuperAdmin)

			r.Get("/webhooks/events", h.ListEvents)
			r.Get("/webhooks/dead-letters", h.ListDeadLetters)
			r.Get("/webhooks/dead-letters/{eventKey}", h.GetDeadLetter)
			r.Post("/webhooks/dead-letters/replay", h.ReplayDeadLetter)
			r.Post("/webhooks/replay/{provider}/{eventKey}", h.ReplayEvent)
			r.Post("/webhooks/replay-bulk", h.BulkReplay)
			r.Post("/webhooks/replay-query", h.QueryReplay)

			r.Post("/internal/reconciliation/campaigns-leads", h.RunReconciliation)

			r.Route("/super-admin/observability", func(r chi.Router) {
				r.Get("/metrics-snapshots", h.ListMetricsSnapshots)
				r.Post("/metrics-snapshots/flush", h.FlushMetricsSnapshot)
			})
		})

		// Tenant routes.
		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/campaigns", func(r chi.Router) {
				r.Post("/", h.CreateCampaign)
				r.Get("/", h.ListCampaigns)
				r.Route("/{campaignID}", func(r chi.Router) {
					r.Get("/", h.GetCampaign)
					r.Patch("/status", h.UpdateCampaignStatus)
					r.Get("/analytics", h.CampaignAnalytics)
					r.Get("/sequence", h.GetSequence)
					r.Put("/sequence", h.SaveSequence)
					r.Post("/leads", h.AddLeads)
					r.Get("/leads", h.ListLeads)
					r.Delete("/leads/{leadID}", h.RemoveLead)
					r.Patch("/leads/{leadID}/category", h.UpdateLeadCategory)
					r.Get("/messages", h.ListMessages)
				})
			})

			r.Route("/pieces", func(r chi.Router) {
				r.Post("/", h.CreatePiece)
				r.Get("/", h.ListPieces)
				r.Get("/{pieceID}", h.GetPiece)
				r.Post("/{pieceID}/cancel", h.CancelPiece)
				r.Post("/{pieceID}/refresh", h.RefreshPiece)
			})

			r.Route("/inboxes", func(r chi.Router) {
				r.Post("/sync", h.SyncInboxes)
				r.Post("/{inboxID}/warmup", h.SetWarmup)
			})
		})
	})

	return r
}
