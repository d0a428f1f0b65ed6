package main

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reachops/outreach-gateway/internal/api"
	"github.com/reachops/outreach-gateway/internal/config"
	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/metrics"
	"github.com/reachops/outreach-gateway/internal/pkg/distlock"
	"github.com/reachops/outreach-gateway/internal/pkg/logger"
	"github.com/reachops/outreach-gateway/internal/provider"
	"github.com/reachops/outreach-gateway/internal/provider/emailbison"
	"github.com/reachops/outreach-gateway/internal/provider/heyreach"
	"github.com/reachops/outreach-gateway/internal/provider/lob"
	"github.com/reachops/outreach-gateway/internal/provider/smartlead"
	"github.com/reachops/outreach-gateway/internal/repository/postgres"
	"github.com/reachops/outreach-gateway/internal/scope"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
	"github.com/reachops/outreach-gateway/internal/service/outreach"
	"github.com/reachops/outreach-gateway/internal/service/projection"
	"github.com/reachops/outreach-gateway/internal/service/reconcile"
	"github.com/reachops/outreach-gateway/internal/service/replay"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// scheduledLockTTL bounds how long a crashed scheduled-reconciliation holder
// can block the next run when the lock lives in Redis.
const scheduledLockTTL = 15 * time.Minute

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

// staticTokenAuth authenticates operator requests against a single shared
// token from the environment. Deployments with real user management plug in
// their own api.Authenticator; this keeps single-operator installs working
// without one. The resolved identity is an org-level super-admin so both
// the tenant and operator route groups accept it.
type staticTokenAuth struct {
	token string
	orgID string
}

func (a *staticTokenAuth) Authenticate(r *http.Request) (scope.AuthContext, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return scope.AuthContext{}, errors.New("missing bearer token")
	}
	supplied := strings.TrimPrefix(header, prefix)
	if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(a.token)) != 1 {
		return scope.AuthContext{}, errors.New("invalid bearer token")
	}
	return scope.AuthContext{
		OrgID:      a.orgID,
		UserID:     "operator",
		Role:       scope.RoleOrgAdmin,
		SuperAdmin: true,
	}, nil
}

func configureLogger() {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		logger.SetLevel(logger.DEBUG)
	case "warn":
		logger.SetLevel(logger.WARN)
	case "error":
		logger.SetLevel(logger.ERROR)
	}
	if os.Getenv("LOG_REDACT_PII") == "false" {
		logger.SetRedactPII(false)
	}
}

func main() {
	log.Println("Outreach Gateway starting (cmd/server/main.go)")
	configureLogger()

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	// Connect PostgreSQL. Every surface (event store, projections, replay,
	// reconciliation bookkeeping) writes through this pool.
	dbURL := cfg.Database.URL
	if dbURL == "" {
		log.Fatal("database.url (or DATABASE_URL) is required")
	}
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	if !strings.Contains(dbURL, "connect_timeout") {
		dbURL += sep + "connect_timeout=5"
		sep = "&"
	}
	dbURL += sep + "options=-c%20statement_timeout%3D15000%20-c%20idle_in_transaction_session_timeout%3D15000"
	log.Printf("DB URL host portion: ...@%s/...", extractHost(dbURL))

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(3)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Database ping failed: %v", err)
	}
	pingCancel()
	log.Println("Database connected successfully")

	// Optional Redis: used only for the scheduled-reconciliation lock.
	// Without it the lock falls back to PG advisory locks.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.URL})
		} else {
			redisClient = redis.NewClient(opts)
		}
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v — falling back to PG advisory locks", cfg.Redis.URL, err)
			redisClient.Close()
			redisClient = nil
		} else {
			log.Printf("Redis connected: %s (distributed locking enabled)", cfg.Redis.URL)
		}
		pingCancel()
	} else {
		log.Println("Redis not configured (REDIS_URL not set) — using PG advisory locks for distributed locking")
	}

	// Repositories
	events := postgres.NewEventRepo(db)
	tenants := postgres.NewTenantRepo(db)
	campaigns := postgres.NewCampaignRepo(db)
	leads := postgres.NewLeadRepo(db)
	messages := postgres.NewMessageRepo(db)
	pieces := postgres.NewPieceRepo(db)
	inboxes := postgres.NewInboxRepo(db)
	orgs := postgres.NewOrgRepo(db)
	entitlements := postgres.NewEntitlementRepo(db)
	snapshots := postgres.NewSnapshotRepo(db)

	// Provider adapters. API keys come from each tenant's provider config
	// at call time; only base URLs and timeouts are process-level.
	providers := provider.NewRegistry()
	providers.RegisterEmailSequencer(domain.ProviderSmartlead, func(creds provider.Credentials) provider.EmailSequencer {
		return smartlead.NewClient(creds.APIKey, cfg.Smartlead.BaseURL, cfg.Smartlead.Timeout())
	})
	providers.RegisterEmailSequencer(domain.ProviderEmailBison, func(creds provider.Credentials) provider.EmailSequencer {
		return emailbison.NewClient(creds.APIKey, creds.InstanceURL, cfg.EmailBison.Timeout())
	})
	providers.RegisterLinkedIn(domain.ProviderHeyReach, func(creds provider.Credentials) provider.LinkedInOutreach {
		return heyreach.NewClient(creds.APIKey, cfg.HeyReach.BaseURL, cfg.HeyReach.Timeout())
	})
	providers.RegisterDirectMail(domain.ProviderLob, func(creds provider.Credentials) provider.DirectMail {
		return lob.NewClient(creds.APIKey, cfg.Lob.BaseURL, cfg.Lob.Timeout())
	})
	log.Println("Provider registry initialized: smartlead, emailbison, heyreach, lob")

	// Observability
	reg := metrics.Default()
	var exporter *metrics.Exporter
	if cfg.Observability.ExportURL != "" {
		exporter = metrics.NewExporter(cfg.Observability.ExportURL, cfg.Observability.ExportBearerToken, cfg.Observability.ExportTimeout())
		log.Printf("Metrics export enabled: %s", cfg.Observability.ExportURL)
	}
	persister := metrics.NewPersister(reg, snapshots, exporter, metrics.SLOThresholds{
		SignatureReject:   cfg.SLO.SignatureRejectRateThreshold,
		DeadLetter:        cfg.SLO.DeadLetterRateThreshold,
		ProjectionFailure: cfg.SLO.ProjectionFailureRateThreshold,
		ReplayFailure:     cfg.SLO.ReplayFailureRateThreshold,
		DuplicateIgnore:   cfg.SLO.DuplicateIgnoreRateThreshold,
	})

	// Ingest pipeline: projection engine behind the webhook gateway.
	engine := projection.NewEngine(campaigns, leads, messages, pieces, reg)
	gateway := ingest.NewGateway(ingest.Config{
		SmartleadSecret:     cfg.Smartlead.WebhookSecret,
		HeyReachSecret:      cfg.HeyReach.WebhookSecret,
		LobSecret:           cfg.Lob.WebhookSecret,
		LobSignatureMode:    cfg.Lob.SignatureMode,
		LobTolerance:        cfg.Lob.SignatureTolerance(),
		LobSchemaVersions:   cfg.Lob.SchemaVersions,
		EmailBisonPathToken: cfg.EmailBison.WebhookPathToken,
		EmailBisonOrigins:   cfg.EmailBison.AllowedOrigins,
	}, events, tenants, engine, reg)
	log.Printf("Webhook gateway initialized (lob signature mode: %s)", cfg.Lob.SignatureMode)

	// Dead-letter replay
	replayer := replay.NewController(events, engine, persister, cfg.Replay, reg)

	// Reconciliation: manual runs plus the lock-guarded scheduled entrypoint.
	runner := reconcile.NewRunner(reconcile.Stores{
		Entitlements: entitlements,
		Orgs:         orgs,
		Campaigns:    campaigns,
		Leads:        leads,
		Messages:     messages,
	}, providers, map[string]string{
		domain.ProviderHeyReach: cfg.HeyReach.MessageSyncMode,
	}, reg)
	lock := distlock.NewLock(redisClient, db, reconcile.LockKey, scheduledLockTTL)
	scheduled := reconcile.NewScheduledRunner(runner, lock)
	if cfg.Scheduler.InternalSecret == "" {
		log.Println("Warning: INTERNAL_SCHEDULER_SECRET not set — scheduled reconciliation endpoint disabled")
	}

	// Domain write surface
	outreachSvc := outreach.NewService(outreach.Stores{
		Entitlements: entitlements,
		Orgs:         orgs,
		Campaigns:    campaigns,
		Leads:        leads,
		Messages:     messages,
		Pieces:       pieces,
		Inboxes:      inboxes,
	}, providers, reg)

	// Operator auth. Real deployments inject an org-aware authenticator;
	// the static token covers single-operator installs. With neither, the
	// bearer route groups reject everything while webhooks stay open.
	var authenticator api.Authenticator
	if token := os.Getenv("OPERATOR_BEARER_TOKEN"); token != "" {
		authenticator = &staticTokenAuth{token: token, orgID: os.Getenv("OPERATOR_ORG_ID")}
		log.Println("Operator auth enabled (static bearer token)")
	} else {
		log.Println("Warning: OPERATOR_BEARER_TOKEN not set — operator and tenant routes will reject all requests")
	}

	server := api.NewServer(cfg.Server, api.Deps{
		Gateway:         gateway,
		Events:          events,
		Replay:          replayer,
		Reconciler:      runner,
		Scheduled:       scheduled,
		Outreach:        outreachSvc,
		Persister:       persister,
		Snapshots:       snapshots,
		Auth:            authenticator,
		SchedulerSecret: cfg.Scheduler.InternalSecret,
	})

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized — server is ready")

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Drain async projections accepted before the listener closed.
	gateway.Wait()

	if redisClient != nil {
		redisClient.Close()
	}
	db.Close()

	log.Println("Server stopped")
}
