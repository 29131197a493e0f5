package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itsneelabh/sushichat/chat"
	"github.com/itsneelabh/sushichat/core"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().Int("port", 8080, "HTTP port")
	cmd.Flags().Bool("dev", false, "development mode: text logs and request logging")
	_ = v.BindPFlag("port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("development", cmd.Flags().Lookup("dev"))
	return cmd
}

func serve(ctx context.Context, cfg *core.Config) error {
	a, err := buildApp(ctx, cfg, buildOptions{withModel: true})
	if err != nil {
		return err
	}

	opts := append([]chat.HandlerOption{
		chat.WithHandlerLogger(a.logger),
		chat.WithCORS(cfg.HTTP.CORS),
		chat.WithDevelopment(cfg.Development),
		chat.WithServiceName(cfg.Name),
	}, a.healthChecks()...)
	handler := chat.NewHandler(a.service, opts...)

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", map[string]interface{}{
			"address": srv.Addr,
			"cors":    cfg.HTTP.CORS.Enabled,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.logger.Error("HTTP server failed", map[string]interface{}{"error": err.Error()})
			_ = a.close(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down", map[string]interface{}{"timeout": cfg.HTTP.ShutdownTimeout.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	return a.close(shutdownCtx)
}
