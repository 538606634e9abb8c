package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/admin-panel-api/internal/core/port"
	auditinfra "github.com/arklim/admin-panel-api/internal/infra/audit"
	"github.com/arklim/admin-panel-api/internal/infra/config"
	"github.com/arklim/admin-panel-api/internal/infra/database"
	kafkainfra "github.com/arklim/admin-panel-api/internal/infra/kafka"
	"github.com/arklim/admin-panel-api/internal/infra/logger"
	redisinfra "github.com/arklim/admin-panel-api/internal/infra/redis"
	"github.com/arklim/admin-panel-api/internal/infra/security"
	postgresrepo "github.com/arklim/admin-panel-api/internal/repository/postgres"
	redisrepo "github.com/arklim/admin-panel-api/internal/repository/redis"
	"github.com/arklim/admin-panel-api/internal/transport/http/middleware"
	"github.com/arklim/admin-panel-api/internal/transport/http/routes"
	"github.com/arklim/admin-panel-api/internal/usecase"
)

// tokenSweepInterval paces the background purge of expired refresh rows.
const tokenSweepInterval = time.Hour

// Application bundles the wired service with its owned connections.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	auth     *usecase.AuthService
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	issuer, err := security.NewTokenIssuer(cfg.App.Name, cfg.JWT)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	// The database copy of the audit trail is authoritative; Kafka mirrors
	// it onto the bus when brokers are configured.
	var producer *kafkainfra.Producer
	var busSink port.AuditRecorder
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			busSink = kafkainfra.NewStubPublisher(log)
		} else {
			busSink = kafkainfra.NewAuditPublisher(producer, cfg.App, log)
			log.Info("kafka audit publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		busSink = kafkainfra.NewStubPublisher(log)
	}

	auditSink := auditinfra.NewFanOut(repos.AuditLogs, busSink)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "admin:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	authService := usecase.NewAuthService(repos.Users, repos.Tokens, issuer, auditSink, log)
	userService := usecase.NewUserService(repos.Users, auditSink, log)
	auditService := usecase.NewAuditService(repos.AuditLogs)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		TokenIssuer: issuer,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:  authService,
			Users: userService,
			Audit: auditService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		auth:     authService,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting admin panel API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	go a.sweepExpiredTokens(ctx)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// sweepExpiredTokens periodically removes refresh token rows past expiry
// until the context is cancelled.
func (a *Application) sweepExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			removed, err := a.auth.PurgeExpiredTokens(sweepCtx)
			cancel()
			if err != nil {
				a.logger.Warn("refresh token sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				a.logger.Info("removed expired refresh tokens", zap.Int64("count", removed))
			}
		}
	}
}
