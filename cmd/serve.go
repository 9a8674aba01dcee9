package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/socialpilot/internal/config"
	"github.com/nextlevelbuilder/socialpilot/internal/tracing"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server, reply queue and strategy monitor",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	setupLogging()
	if err := serve(); err != nil {
		slog.Error("socialpilot exited", "error", err)
		os.Exit(1)
	}
}

func serve() error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "path", cfgPath, "hash", cfg.Hash(), "mode", cfg.Database.Mode)

	if cfg.Webhook.VerifyToken == "" {
		slog.Warn("SOCIALPILOT_VERIFY_TOKEN is not set; webhook subscription handshakes will be refused")
	}
	if cfg.Webhook.AppSecret == "" {
		slog.Warn("SOCIALPILOT_APP_SECRET is not set; webhook signatures are not checked")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.stores.Close()

	// Start blocks until Stop.
	go a.ledger.Start()
	defer a.ledger.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("socialpilot starting", "addr", addr, "webhook", cfg.Webhook.Path, "version", Version)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("graceful shutdown initiated")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			slog.Warn("http shutdown", "error", err)
		}
		if err := a.queue.Close(sctx); err != nil {
			slog.Warn("reply queue did not drain", "error", err, "stats", a.queue.Stats())
		}
		return nil
	})

	if cfg.Monitor.Enabled {
		g.Go(func() error {
			return a.monitor.Run(gctx, cfg.Monitor.Schedule, cfg.Monitor.RunAtStart)
		})
	}

	if a.pageDir != nil {
		g.Go(func() error {
			err := config.Watch(gctx, cfgPath, func(next *config.Config) {
				a.pageDir.Replace(next.PageList())
				slog.Info("pages reloaded", "pages", a.pageDir.Len())
			})
			if err != nil {
				// Serving continues with the pages loaded at startup.
				slog.Warn("config watch unavailable", "error", err)
			}
			return nil
		})
	}

	err = g.Wait()
	slog.Info("socialpilot stopped")
	return err
}
