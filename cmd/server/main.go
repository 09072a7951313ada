package main

import (
	"context"
	"errors"
	"fmt"
	netHttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetmon-server/internal/adapters/google"
	"fleetmon-server/internal/adapters/http"
	"fleetmon-server/internal/adapters/ssh"
	"fleetmon-server/internal/adapters/system"
	"fleetmon-server/internal/adapters/ws/metricsws"
	"fleetmon-server/internal/application/alert"
	"fleetmon-server/internal/application/auth"
	logsvc "fleetmon-server/internal/application/log"
	"fleetmon-server/internal/application/monitoring"
	"fleetmon-server/internal/application/server"
	"fleetmon-server/internal/application/workers"
	"fleetmon-server/internal/config"
	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
	"fleetmon-server/internal/telemetry"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// VERSION is set during build via ldflags
var VERSION = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:               "fleetmon",
		Short:             "Server fleet monitoring backend",
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, metrics stream and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(VERSION)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func migrate() error {
	cfg := config.Load()
	log := logger.New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.close()

	if err := st.migrate(ctx); err != nil {
		return err
	}

	log.Info("migrations applied", "driver", cfg.DBDriver)
	return nil
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.New(cfg)

	if cfg.JWTSecret == "" {
		panic("FATAL: JWT_SECRET is mandatory for Server!")
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.close()

	if err := st.migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	tm := telemetry.New()

	// Monitoring
	registry := monitoring.NewRegistry(
		cfg.Monitoring,
		monitoring.Repositories{
			Servers: st.servers,
			Metrics: st.metrics,
			Alerts:  st.alerts,
		},
		func(serverID string) monitoring.Sampler {
			return system.NewSampler(cfg.Monitoring.TopProcesses, log.With("server_id", serverID))
		},
		tm,
		log.With("component", "monitoring"),
	)

	if err := registry.Resume(ctx); err != nil {
		log.Error("failed to resume monitoring", "error", err)
	}

	// Services
	verifiers := map[domain.Provider]domain.IdentityVerifier{
		domain.ProviderGoogle: google.NewVerifier(cfg.GoogleTokenInfoURL, cfg.GoogleClientID),
	}
	authService := auth.NewService(st.users, verifiers, auth.Options{
		Secret:        cfg.JWTSecret,
		AccessExpiry:  cfg.JWTExpiry,
		RefreshExpiry: cfg.JWTRefreshExpiry,
	}, log)
	serverService := server.NewService(st.servers, registry, ssh.NewTester(ssh.DefaultTimeout), log)
	alertService := alert.NewService(st.alerts, log)
	logService := logsvc.NewService(st.logs)

	// WebSocket Handlers
	wsMetricsHandler, err := metricsws.NewHandler(ctx, registry, authService, cfg.Stream, cfg.AllowedOrigins, tm, log.With("component", "ws"))
	if err != nil {
		return fmt.Errorf("failed to build stream handler: %w", err)
	}

	router := http.NewRouter(cfg, &http.RouterDeps{
		WsMetrics: netHttp.HandlerFunc(wsMetricsHandler.Serve),
		Telemetry: tm,
		Tokens:    authService,
		Log:       log.With("component", "http"),

		Health:  http.NewHealthHandler(st.ping, VERSION),
		Auth:    http.NewAuthHandler(authService, cfg),
		Server:  http.NewServerHandler(serverService),
		Metrics: http.NewMetricsHandler(registry),
		Alert:   http.NewAlertHandler(alertService),
		Logs:    http.NewLogHandler(logService),
	})

	srv := http.NewServer(router, cfg.Address)

	manager := workers.NewManager(workers.NewScheduler(log), cfg, log, &workers.ManagerServices{
		Metrics:    st.metrics,
		Monitoring: registry,
		Telemetry:  tm,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http: starting server", "address", cfg.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, netHttp.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		manager.Start(gctx)
		manager.Wait()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http: server shutdown error", "error", err)
		}

		if err := registry.Close(shutdownCtx); err != nil {
			log.Error("monitoring: shutdown error", "error", err)
		}

		return nil
	})

	err = g.Wait()
	log.Info("server stopped")

	return err
}
