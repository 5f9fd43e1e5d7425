package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/reminder/internal/config"
	"github.com/klokku/reminder/internal/scheduler"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

// Application wires configuration, dependencies, router, scheduler and server lifecycle.
type Application struct {
	cfg       config.Application
	deps      *Dependencies
	router    *mux.Router
	srv       *http.Server
	scheduler *scheduler.Scheduler
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(ctx context.Context, cfg config.Application) (*Application, error) {
	deps, err := BuildDependencies(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	SetupMiddleware(r)
	RegisterRoutes(r, deps)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		location, err := cfg.Location()
		if err != nil {
			deps.Close()
			return nil, err
		}
		sched, err = scheduler.New(cfg.Scheduler, location, deps.ReminderService)
		if err != nil {
			deps.Close()
			return nil, err
		}
	}

	srv := &http.Server{
		Handler: r,
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		// Pipeline runs are bounded by the calendar and webhook timeouts.
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, deps: deps, router: r, srv: srv, scheduler: sched}, nil
}

// Handler exposes the router, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.router
}

// Run starts the scheduler and the HTTP server and blocks until ctx is done
// or the server fails.
func (a *Application) Run(ctx context.Context) error {
	defer a.deps.Close()

	if a.scheduler != nil {
		a.scheduler.Start()
		log.Info("Scheduler started")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if a.scheduler != nil {
		a.scheduler.Stop(shutdownCtx)
	}
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown failed: %v", err)
	}
	return runErr
}
