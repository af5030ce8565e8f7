package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"hosh/internal/dispatch"
	"hosh/internal/discovery"
	"hosh/internal/domain"
	"hosh/internal/probe/btc"
	"hosh/internal/probe/zec"
	"hosh/internal/query"
	"hosh/internal/rendercache"
	"hosh/internal/store"
	"hosh/internal/store/migrations"
	"hosh/internal/web"
	"hosh/internal/worker"
	"hosh/pkg/cache"
	"hosh/pkg/config"
	"hosh/pkg/httpserver"
	"hosh/pkg/logger"
	"hosh/pkg/metrics"
	"hosh/pkg/telemetry"
)

// runMain is the composition root's entry point: load config, wire the
// roles cfg.Roles names, and block until shutdown, mirroring the
// teacher's per-service main() (config -> logger -> clients -> server
// -> graceful shutdown) generalized across hosh's roles instead of one
// service per binary.
func runMain() error {
	cfg, err := loadConfig()
	if err != nil {
		logger.Init("error")
		logger.Log.Error("failed to load configuration", "error", err)
		return err
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	logger.Log.Info("starting hosh",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"roles", cfg.Roles.Run,
	)

	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		logger.Log.Error("failed to initialize tracing", "error", err)
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		_ = tracerProvider.Shutdown(shutdownCtx)
	}()

	st, err := store.Open(cfg.Store)
	if err != nil {
		logger.Log.Error("failed to open result store", "error", err)
		return err
	}
	defer st.Close()

	if err := migrations.Run(ctx, st.DB(), cfg.Store.AutoMigrate); err != nil {
		logger.Log.Error("failed to apply result store migrations", "error", err)
		return err
	}

	var wg sync.WaitGroup

	if cfg.Roles.Has("web") {
		srv, renderCache, err := buildWebServer(cfg, st)
		if err != nil {
			logger.Log.Error("failed to build web server", "error", err)
			return err
		}
		wg.Add(2)
		go func() {
			defer wg.Done()
			renderCache.Run(ctx, rendercache.DefaultTTL)
		}()
		go func() {
			defer wg.Done()
			runWebServer(ctx, cfg, srv)
		}()
	} else if cfg.Metrics.Enabled {
		// Non-web roles still expose /metrics for scraping, on their
		// own port, since they mount no other HTTP surface.
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartMetricsServer(cfg.Metrics.Port); err != nil {
				logger.Log.Error("metrics server failed", "error", err)
			}
		}()
	}

	if cfg.Roles.Has("checker-btc") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adapter := btc.NewAdapter(cfg.Proxy.Address())
			pool := worker.NewPool(domain.ModuleBTC, adapter, cfg.Dispatch.WebAPIURL, cfg.Dispatch.APIKey, cfg.Dispatch.MaxConcurrentChecks)
			pool.Run(ctx)
		}()
	}

	if cfg.Roles.Has("checker-zec") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adapter := zec.NewAdapter(cfg.Proxy.Address())
			pool := worker.NewPool(domain.ModuleZEC, adapter, cfg.Dispatch.WebAPIURL, cfg.Dispatch.APIKey, cfg.Dispatch.MaxConcurrentChecks)
			pool.Run(ctx)
		}()
	}

	if cfg.Roles.Has("discovery") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			discovery.New(st).Run(ctx, cfg.Discovery.Interval)
		}()
	}

	<-ctx.Done()
	logger.Log.Info("shutdown signal received, waiting for roles to stop")
	wg.Wait()
	logger.Log.Info("hosh stopped")
	return nil
}

// buildWebServer wires the Dispatch API and the public web surface
// behind one *http.ServeMux, fronted by the logging/CORS middleware
// stack, matching the teacher's gateway main's mux/middleware wiring.
func buildWebServer(cfg *config.Config, st *store.Store) (*httpserver.Server, *rendercache.Cache, error) {
	backend, err := cache.New(&cache.Options{
		Backend:       cfg.Cache.Driver,
		DefaultTTL:    cfg.Cache.DefaultTTL,
		MaxEntries:    cfg.Cache.MaxEntries,
		RedisAddr:     cfg.Cache.Address(),
		RedisPassword: cfg.Cache.Password,
		RedisDB:       cfg.Cache.DB,
	})
	if err != nil {
		return nil, nil, err
	}

	queryService := query.New(st)
	renderCache := rendercache.New(backend, queryService)

	mux := http.NewServeMux()
	dispatch.NewHandler(st).RegisterRoutes(mux, cfg.Dispatch.APIKey)
	web.NewHandler(renderCache, queryService, st).RegisterRoutes(mux)
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	var handler http.Handler = mux
	handler = httpserver.Logging(handler)
	if cfg.HTTP.CORS.Enabled {
		handler = httpserver.CORS(cfg.HTTP.CORS)(handler)
	}

	return httpserver.New(cfg, handler), renderCache, nil
}

// runWebServer uses Server.ListenAndServe/Shutdown rather than
// Server.Run: the composition root already owns one signal.NotifyContext
// for every role, so the web role must not register its own competing
// SIGINT/SIGTERM handler.
func runWebServer(ctx context.Context, cfg *config.Config, srv *httpserver.Server) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("web server shutdown error", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			logger.Log.Error("web server stopped unexpectedly", "error", err)
		}
	}
}
