// Package server wires configuration, storage, services and transports
// together and runs the HTTP and gRPC endpoints until the process is told
// to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/socialgraph/internal/logging"
	"github.com/dmitrijs2005/socialgraph/internal/server/config"
	"github.com/dmitrijs2005/socialgraph/internal/server/httpapi"
	"github.com/dmitrijs2005/socialgraph/internal/server/metrics"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/socialgraph/internal/server/services"

	gs "github.com/dmitrijs2005/socialgraph/internal/server/grpc"
)

const dbProbeInterval = 15 * time.Second

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	metrics        *metrics.Metrics
	followService  *services.FollowService
	accountService *services.AccountService
}

// NewApp opens the database pool and builds the services. No connection is
// made until Run.
func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	return newApp(c, db, repomanager.NewPostgresRepositoryManager(), logger), nil
}

func newApp(c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *App {
	m := metrics.New()
	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		repomanager:    rm,
		metrics:        m,
		followService:  services.NewFollowService(db, rm, logger, m),
		accountService: services.NewAccountService(db, rm, c, logger),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema and serves until ctx is cancelled or a signal
// arrives. The pool is closed on return.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	httpServer := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.followService, app.accountService, app.metrics)
	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(gctx) })
	g.Go(func() error { return grpcServer.Run(gctx) })
	g.Go(func() error {
		app.watchDB(gctx, grpcServer)
		return nil
	})

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}

// watchDB reports the follow API as not serving while the database is
// unreachable.
func (app *App) watchDB(ctx context.Context, s *gs.GRPCServer) {
	ticker := time.NewTicker(dbProbeInterval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := app.db.PingContext(pingCtx)
			cancel()

			if (err == nil) != healthy {
				healthy = err == nil
				s.SetServing(healthy)
				if healthy {
					app.logger.Info(ctx, "database reachable again")
				} else {
					app.logger.Error(ctx, "database unreachable", "error", err)
				}
			}
		}
	}
}
