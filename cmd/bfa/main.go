package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/config"
	"github.com/boddenberg/phuket-immo-bfa/internal/domain"
	"github.com/boddenberg/phuket-immo-bfa/internal/handler"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/cache"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/kv"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/local"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/mongostore"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/observability"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/queue"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/resilience"
	"github.com/boddenberg/phuket-immo-bfa/internal/infra/supabase"
	"github.com/boddenberg/phuket-immo-bfa/internal/port"
	"github.com/boddenberg/phuket-immo-bfa/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "phuket-immo-bfa"

// backend bundles the collaborators of one data backend.
type backend struct {
	mode     string
	catalog  service.Catalog
	leads    port.LeadStore
	feed     port.LeadFeed
	roles    port.RoleStore
	identity port.IdentityProvider
	kv       port.KeyValueStore
	records  port.KeyValueStore
	probes   []handler.HealthProbe
	closers  []func(context.Context) error
}

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		os.Exit(1)
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, serviceName)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bfa stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_backend", string(cfg.ResolveBackend())),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Float64("thb_per_eur", cfg.THBPerEUR),
		zap.Bool("lead_queue", cfg.RabbitMQURL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, serviceName)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Data backend ---
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close(logger)

	// --- Lead notifications ---
	var notifier port.LeadNotifier
	if cfg.RabbitMQURL != "" {
		publisher := queue.NewPublisher(cfg.RabbitMQURL, cfg.LeadQueue, logger)
		defer publisher.Close()
		notifier = publisher
		logger.Info("lead notifications enabled", zap.String("queue", cfg.LeadQueue))
	}

	// --- Services ---
	projectionCache := cache.New[domain.ProjectionResult](cfg.CacheTTL, cache.WithMaxEntries(cfg.CacheMaxEntries))
	defer projectionCache.Close()

	projector := service.NewProjector(projectionCache, metrics)
	editor := service.NewPropertyEditor(cfg.THBPerEUR)
	intake := service.NewLeadIntake(be.leads, notifier, cfg.ContactPhone, metrics, logger)

	newGate := func() *service.SessionGate {
		return service.NewSessionGate(service.GateDeps{
			Identity: be.identity,
			Roles:    be.roles,
			KV:       be.kv,
			Store:    service.NewCatalogStore(be.catalog, metrics, logger),
			Inbox:    service.NewLeadInbox(be.feed, metrics, logger),
			Metrics:  metrics,
			Logger:   logger,
		})
	}
	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		return err
	}
	sessions := service.NewSessionRegistry(ctx, service.RegistryDeps{
		NewGate:  newGate,
		Identity: be.identity,
		KV:       be.kv,
		Records:  be.records,
		Secret:   secret,
		TTL:      cfg.SessionTTL,
		Metrics:  metrics,
		Logger:   logger,
	})

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Mode:      be.mode,
		Sessions:  sessions,
		Catalog:   be.catalog,
		Editor:    editor,
		Leads:     intake,
		Projector: projector,
		Probes:    be.probes,
		Metrics:   metrics,
		Logger:    logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("mode", be.mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sessions.RunJanitor(gctx, time.Minute)
	})

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced shutdown: %w", err)
		}
		return sessions.StopAll()
	})

	return g.Wait()
}

// sessionSecret returns the configured signing key. Without admin login no
// token is ever issued, so a random key is used.
func sessionSecret(cfg *config.Config, logger *zap.Logger) ([]byte, error) {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret), nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	logger.Warn("JWT_SECRET not set, using a random session key")
	return []byte(hex.EncodeToString(buf)), nil
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	var (
		be  *backend
		err error
	)
	switch cfg.ResolveBackend() {
	case config.BackendSupabase:
		be = openSupabase(cfg, logger)
	case config.BackendMongo:
		be, err = openMongo(ctx, cfg, logger)
	default:
		be = &backend{mode: string(config.BackendLocal)}
	}
	if err != nil {
		return nil, err
	}

	// The local cache holds issued session records in every mode and the
	// whole data set in self-contained mode.
	store, err := openKV(cfg, be, logger)
	if err != nil {
		be.close(logger)
		return nil, err
	}
	be.records = store

	if be.mode == string(config.BackendLocal) {
		if err := openLocal(ctx, cfg, be, store, logger); err != nil {
			be.close(logger)
			return nil, err
		}
	}
	return be, nil
}

// close releases the backend resources in reverse order of opening.
func (be *backend) close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(be.closers) - 1; i >= 0; i-- {
		if err := be.closers[i](ctx); err != nil {
			logger.Warn("close backend resource", zap.Error(err))
		}
	}
}

func openKV(cfg *config.Config, be *backend, logger *zap.Logger) (port.KeyValueStore, error) {
	if cfg.RedisAddr != "" {
		r, err := kv.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, serviceName+":")
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		be.probes = append(be.probes, handler.HealthProbe{Name: "redis", Check: r.Ping})
		be.closers = append(be.closers, func(context.Context) error { return r.Close() })
		logger.Info("using Redis as local cache", zap.String("addr", cfg.RedisAddr))
		return r, nil
	}
	s, err := kv.OpenSQLite(cfg.KVPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	be.probes = append(be.probes, handler.HealthProbe{Name: "sqlite", Check: s.Ping})
	be.closers = append(be.closers, func(context.Context) error { return s.Close() })
	logger.Info("using SQLite as local cache", zap.String("path", cfg.KVPath))
	return s, nil
}

func resilienceConfig(cfg *config.Config) resilience.Config {
	return resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
}

func openSupabase(cfg *config.Config, logger *zap.Logger) *backend {
	logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	cb := resilience.NewCircuitBreaker("supabase", logger)
	client := supabase.NewClient(httpClient, cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey,
		cfg.PollInterval, cb, resilienceConfig(cfg), logger)
	auth := supabase.NewAuthClient(httpClient, cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey, logger)

	return &backend{
		mode:     string(config.BackendSupabase),
		catalog:  service.NewRemoteCatalog(client, string(config.BackendSupabase), logger),
		leads:    client,
		feed:     client,
		roles:    client,
		identity: auth,
	}
}

func openMongo(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	logger.Info("using MongoDB as data backend", zap.String("database", cfg.MongoDatabase))

	connectCtx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	defer cancel()
	store, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.PollInterval, logger)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	// MongoDB has no identity service: admins sign in against the configured
	// account, roles are read from the roles collection.
	return &backend{
		mode:     string(config.BackendMongo),
		catalog:  service.NewRemoteCatalog(store, string(config.BackendMongo), logger),
		leads:    store,
		feed:     store,
		roles:    store,
		identity: local.NewIdentityProvider(adminAccounts(cfg), logger),
		probes:   []handler.HealthProbe{{Name: "mongo", Check: store.Ping}},
		closers:  []func(context.Context) error{store.Close},
	}, nil
}

func openLocal(ctx context.Context, cfg *config.Config, be *backend, store port.KeyValueStore, logger *zap.Logger) error {
	be.kv = store

	roles := local.NewRoleStore(store)
	if cfg.AdminEmail != "" {
		if err := roles.SetRole(ctx, local.UIDFor(cfg.AdminEmail), cfg.AdminRole); err != nil {
			return fmt.Errorf("bootstrap admin role: %w", err)
		}
	} else {
		logger.Warn("ADMIN_EMAIL not set, admin login unavailable")
	}

	leadLog := service.NewLocalLeadLog(store, logger)
	be.catalog = service.NewLocalCatalog(store, logger)
	be.leads = leadLog
	be.feed = leadLog
	be.roles = roles
	be.identity = local.NewIdentityProvider(adminAccounts(cfg), logger)
	return nil
}

func adminAccounts(cfg *config.Config) []local.Account {
	if cfg.AdminEmail == "" {
		return nil
	}
	return []local.Account{{
		Email:        cfg.AdminEmail,
		PasswordHash: cfg.AdminPasswordHash,
		DisplayName:  "Administrator",
	}}
}
