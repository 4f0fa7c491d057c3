// Package server wires the boostauth process together: it opens the account
// store, builds the password, token and identity components, and runs the
// HTTP session API next to the gRPC server until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/boostauth/internal/logging"
	"github.com/dmitrijs2005/boostauth/internal/server/auth"
	"github.com/dmitrijs2005/boostauth/internal/server/config"
	"github.com/dmitrijs2005/boostauth/internal/server/httpapi"
	"github.com/dmitrijs2005/boostauth/internal/server/identity"
	"github.com/dmitrijs2005/boostauth/internal/server/metrics"
	"github.com/dmitrijs2005/boostauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/boostauth/internal/server/services"

	gs "github.com/dmitrijs2005/boostauth/internal/server/grpc"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	store       *repomanager.Store
	authService *services.AuthService
	handler     http.Handler
	closeOnce   sync.Once
}

// NewApp opens the store named by c.DatabaseDSN (running migrations) and
// builds the services on top of it.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if c.UsesDefaultSecret() {
		logger.Warn(ctx, "using the default secret key; set BOOSTAUTH_SECRET_KEY in production")
	}
	if c.GoogleClientID == "" {
		logger.Warn(ctx, "google client id is not set; federated login will be rejected")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	hasher, err := auth.NewPasswordHasher(c.PasswordHash, c.BcryptCost,
		auth.WithHashObserver(collector.RecordHashDuration))
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	codec, err := auth.NewTokenCodec([]byte(c.SecretKey), c.TokenTTL, c.TokenIssuer)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	store, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	var keys auth.KeyProvider
	if c.GoogleClientID != "" {
		remote, err := auth.NewRemoteKeys(ctx, auth.GoogleCertsURL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("google keys: %w", err)
		}
		keys = remote
	}
	verifier := auth.NewGoogleVerifier(c.GoogleClientID, keys)
	resolver := identity.NewResolver(store.Accounts, c.LinkPolicy, logger)

	as := services.NewAuthService(store.Accounts, hasher, codec, verifier, resolver,
		services.WithLogger(logger),
		services.WithMetrics(collector),
		services.WithVerifierTimeout(c.VerifierTimeout),
	)

	handler := httpapi.NewRouter(httpapi.RouterDeps{
		Auth:    as,
		Logger:  logger,
		Metrics: metrics.Handler(registry),

		MaxPasswordBytes: hasher.MaxPasswordBytes(),
	})

	return &App{
		config:      c,
		logger:      logger,
		store:       store,
		authService: as,
		handler:     handler,
	}, nil
}

// Handler returns the HTTP session API.
func (app *App) Handler() http.Handler {
	return app.handler
}

// Close releases the account store. It is safe to call more than once.
func (app *App) Close() error {
	var err error
	app.closeOnce.Do(func() {
		err = app.store.Close()
	})
	return err
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Received signal", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startHTTPServer(ctx context.Context) error {
	listen, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context) error {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.authService)
	return s.Run(ctx)
}

// Run serves HTTP and gRPC until ctx is cancelled, a shutdown signal arrives
// or one of the servers fails. The store is closed before Run returns.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	run := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(gctx); err != nil {
				app.logger.Error(gctx, "server failed", "server", name, "error", err)
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	run("http", app.startHTTPServer)
	run("grpc", app.startGRPCServer)

	err := g.Wait()

	if cerr := app.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
