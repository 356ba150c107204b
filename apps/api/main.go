package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"github.com/practrac/practrac/apps/api/di"
	echoapi "github.com/practrac/practrac/apps/api/echo"
	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/services/metrics"
	"github.com/practrac/practrac/services/telemetry"
)

type app struct {
	dig.In
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	DB       core.DB
	Server   echoapi.Server
	Metrics  *metrics.Metrics
	CoachSvc coach.Service
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	conf := core.NewConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container := di.New(conf, os.Stdout, stop)
	return container.Invoke(func(a app) error {
		return serve(ctx, conf, a)
	})
}

func serve(ctx context.Context, conf *core.Config, a app) error {
	logger := a.Logger
	defer func() {
		if err := a.DB.Close(); err != nil {
			a.DBLogger.Error("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(logger)

	if conf.Server.Tracing {
		shutdownTracing, err := telemetry.Setup(conf, os.Stdout)
		if err != nil {
			return errors.Wrap(err, "setting up tracing")
		}
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	if conf.SingleCoach {
		if _, err := a.CoachSvc.EnsureDefaultCoach(ctx); err != nil {
			return errors.Wrap(err, "ensuring default coach")
		}
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus registry of the API.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	debugMux := http.NewServeMux()
	debugMux.Handle("/debug/", http.DefaultServeMux)
	debugMux.Handle("/metrics", a.Metrics.Handler())
	debugSrv := &http.Server{Addr: conf.Server.DebugHost, Handler: debugMux}

	// =========================================================================
	// Start API Service

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Addr))
		if err := a.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})
	g.Go(func() error {
		if err := debugSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
		return nil
	})

	// =========================================================================
	// Shutdown

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Start shutdown...")

		// give outstanding requests a deadline for completion
		sctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		_ = debugSrv.Shutdown(sctx)
		if err := a.Server.Stop(sctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(err.Error(), err)
		return err
	}
	return nil
}
