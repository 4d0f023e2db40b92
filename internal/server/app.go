// Package server wires configuration, storage, services and both
// transports, and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/mitrasign/internal/logging"
	"github.com/dmitrijs2005/mitrasign/internal/server/config"
	"github.com/dmitrijs2005/mitrasign/internal/server/events"
	"github.com/dmitrijs2005/mitrasign/internal/server/metrics"
	"github.com/dmitrijs2005/mitrasign/internal/server/ratelimit"
	"github.com/dmitrijs2005/mitrasign/internal/server/reports"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mitrasign/internal/server/services"

	gs "github.com/dmitrijs2005/mitrasign/internal/server/grpc"
	hs "github.com/dmitrijs2005/mitrasign/internal/server/http"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	events  events.Publisher
	metrics *metrics.Metrics

	signatures   *services.SignatureService
	verification *services.VerificationService
	admin        *services.AdminService
	users        *services.UserService
	limiter      ratelimit.Limiter
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{
		config:  c,
		logger:  logger,
		db:      db,
		events:  events.Nop{},
		limiter: ratelimit.Unlimited{},
		metrics: metrics.New(),
	}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unreachable, rate limiting fails open until it recovers", "error", err)
		}
		app.limiter = ratelimit.NewRedisLimiter(app.redis, c.VerifyRateLimit, c.VerifyRateWindow)
	}

	if c.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(c.AMQPURL, c.AMQPExchange)
		if err != nil {
			logger.Warn(ctx, "event publishing disabled", "error", err)
		} else {
			app.events = p
		}
	}

	loc := c.Location()
	app.signatures = services.NewSignatureService(db, rm, services.NewIssuer(c.VerifyBaseURL), app.events, logger, c.DateLayout, loc)
	app.verification = services.NewVerificationService(db, rm, logger)
	app.admin = services.NewAdminService(db, rm, reports.NewS3Store(c), logger, c.DateLayout, loc)
	app.users = services.NewUserService(db, rm, c, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.verification, app.metrics, app.config.RequestTimeout)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := hs.NewServer(hs.Deps{
		Signatures:     app.signatures,
		Verification:   app.verification,
		Admin:          app.admin,
		Users:          app.users,
		Limiter:        app.limiter,
		Metrics:        app.metrics,
		Logger:         app.logger,
		SecretKey:      []byte(app.config.SecretKey),
		RequestTimeout: app.config.RequestTimeout,

		TrustProxyHeaders: app.config.TrustProxyHeaders,
	}).Router()

	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves both transports until ctx is cancelled or a signal arrives,
// then releases the shared resources.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	if err := app.events.Close(); err != nil {
		app.logger.Warn(ctx, "close event publisher", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "close redis", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "close db", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
