package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/amaxoft/portal-gateway/internal/access"
	httptransport "github.com/amaxoft/portal-gateway/internal/api/http"
	"github.com/amaxoft/portal-gateway/internal/api/http/handlers"
	"github.com/amaxoft/portal-gateway/internal/auth"
	"github.com/amaxoft/portal-gateway/internal/config"
	"github.com/amaxoft/portal-gateway/internal/events"
	"github.com/amaxoft/portal-gateway/internal/gatekeeper"
	"github.com/amaxoft/portal-gateway/internal/observability"
	"github.com/amaxoft/portal-gateway/internal/persistence"
	"github.com/amaxoft/portal-gateway/internal/ratelimit"
	"github.com/amaxoft/portal-gateway/internal/repository"
	"github.com/amaxoft/portal-gateway/internal/service"
	"github.com/amaxoft/portal-gateway/internal/tenant"
	"github.com/amaxoft/portal-gateway/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// Server owns the Fiber app and every long-lived component behind it.
type Server struct {
	App *fiber.App

	cfg       *config.Config
	logger    *zap.Logger
	postgres  *persistence.Postgres
	redis     *persistence.Redis
	store     ratelimit.Store
	metrics   *observability.Metrics
	cancel    context.CancelFunc
	auditDone <-chan struct{}
}

// New wires configuration into a ready-to-serve app.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if err := auth.ValidatePermissionTable(); err != nil {
		return nil, fmt.Errorf("permission table: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations && pg.Configured() {
		if _, err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		postgres: pg,
		redis:    rdb,
		metrics:  observability.NewMetrics(),
		cancel:   cancel,
	}

	dispatcher := events.NewInMemoryDispatcher()

	var (
		users     repository.UserRepository
		auditRepo repository.AuditRepository
	)
	if pg.Configured() {
		users = repository.NewUserRepository(pg.Pool)
		auditRepo = repository.NewAuditRepository(pg.Pool)
	}
	auditService := service.NewAuditService(dispatcher, auditRepo, logger, service.DefaultAuditBuffer)
	s.auditDone = worker.StartAuditWorker(runCtx, auditService)

	s.store = s.newLimiterStore()
	limiter := ratelimit.NewLimiter(s.store,
		ratelimit.WithBlockMultiplier(cfg.RateLimit.BlockMultiplier),
		ratelimit.WithLogger(logger.Named("ratelimit")),
		ratelimit.WithDeniedHook(rateLimitPublisher(dispatcher, logger)),
	)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	inspector := auth.NewInspector(cfg.Auth.TokenMaxAge())
	verifier := auth.NewVerifyingInspector(tokens, inspector)

	var edgeValidator auth.TokenValidator = verifier
	if !cfg.Auth.VerifySignatureAtEdge {
		logger.Warn("gatekeeper runs structural token checks only; signatures are verified in handlers")
		edgeValidator = inspector
	}

	policy := access.NewPolicy(cfg.Gatekeeper)
	gk, err := gatekeeper.New(gatekeeper.Config{
		Tenants:                  tenant.NewResolver(cfg.Tenant),
		Policy:                   policy,
		Validator:                edgeValidator,
		CookieName:               cfg.Auth.CookieName,
		Production:               cfg.IsProduction(),
		DefaultAllowUnclassified: cfg.Gatekeeper.DefaultAllowUnclassified,
		Logger:                   logger,
		Metrics:                  s.metrics,
		Events:                   dispatcher,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, s.metrics, cfg.App.RequestTimeout())
	app.Use(gk.Handle)

	authService := service.NewAuthService(users, tokens, dispatcher, logger).WithHashCost(cfg.Auth.BcryptCost)
	cookies := auth.CookieWriter{
		Name:   cfg.Auth.CookieName,
		MaxAge: cfg.Auth.TokenTTL(),
		Secure: cfg.IsProduction(),
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.App.Env, pg, rdb, s.metrics),
		Auth:          handlers.NewAuthHandler(authService, cookies),
		Users:         handlers.NewUsersHandler(service.NewUserService(users)),
		Dashboard:     handlers.NewDashboardHandler(policy),
		Tenant:        handlers.NewTenantHandler(),
		Authenticator: auth.NewAuthenticator(verifier, cfg.Auth.CookieName),
		Limiter:       limiter,
		Profiles:      ratelimit.Profiles(cfg.App.Env),
		Logger:        logger,
	})

	s.App = app
	return s, nil
}

func (s *Server) newLimiterStore() ratelimit.Store {
	if s.cfg.RateLimit.Backend == "redis" {
		if s.redis.Configured() {
			s.logger.Info("rate limiter using redis", zap.String("prefix", s.cfg.RateLimit.RedisPrefix))
			return ratelimit.NewRedisStore(s.redis.Client, s.cfg.RateLimit.RedisPrefix)
		}
		s.logger.Warn("RATE_LIMIT_BACKEND=redis but redis is not configured; using memory")
	}
	return ratelimit.NewMemoryStore(s.cfg.RateLimit.SweepInterval())
}

func rateLimitPublisher(dispatcher events.Dispatcher, logger *zap.Logger) ratelimit.DeniedHook {
	return func(ctx context.Context, key string, p ratelimit.Profile, r ratelimit.Result) {
		event := events.NewEvent(events.EventRateLimitExceeded, "", events.Actor{},
			events.RateLimitExceededPayload{Key: key, Profile: p.Name, RetryAfterSeconds: r.RetryAfterSeconds()})
		if err := dispatcher.Publish(ctx, event); err != nil {
			logger.Warn("publish rate limit event", zap.Error(err))
		}
	}
}

// Listen serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.App.Addr()), zap.String("env", s.cfg.App.Env))
		errCh <- s.App.Listen(s.cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	if err := s.App.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close stops background work, flushes audit entries and releases connections.
func (s *Server) Close() {
	s.cancel()
	if s.auditDone != nil {
		<-s.auditDone
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn("close limiter store", zap.Error(err))
		}
	}
	s.redis.Close()
	s.postgres.Close()
}
