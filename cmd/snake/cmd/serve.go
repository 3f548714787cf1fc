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

	"github.com/MeKo-Tech/snake/internal/config"
	"github.com/MeKo-Tech/snake/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the snake API",
	Long: `Start an HTTP server that relaxes contours over uploaded images.

The server provides the following endpoints:
  POST /snake   - Relax a contour over an uploaded image
  GET  /ws      - WebSocket endpoint streaming one message per pass
  GET  /health  - Health check endpoint
  GET  /metrics - Prometheus metrics

Examples:
  snake serve
  snake serve --port 8080
  snake serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		applyServeFlags(cmd, cfg)

		if err := cfg.Validate(); err != nil {
			return err
		}
		style, err := cfg.ToOverlayStyle()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := cfg.Server
		serverConfig := server.Config{
			Host:                s.Host,
			Port:                s.Port,
			CORSOrigin:          s.CORSOrigin,
			MaxUploadMB:         int64(s.MaxUploadMB),
			TimeoutSec:          s.TimeoutSec,
			MaxIterations:       s.MaxIterations,
			MaxNeighborhoodSize: s.MaxNeighborhoodSize,
			PipelineConfig:      cfg.ToPipelineConfig(),
			Style:               style,
			Logger:              slog.Default(),
			RateLimit: server.RateLimitConfig{
				Enabled:           s.RateLimitEnabled,
				RequestsPerMinute: s.RequestsPerMinute,
				RequestsPerHour:   s.RequestsPerHour,
				MaxRequestsPerDay: s.MaxRequestsPerDay,
				MaxDataPerDay:     s.MaxDataPerDay,
			},
		}

		snakeServer, err := server.NewServer(serverConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		mux := http.NewServeMux()
		snakeServer.SetupRoutes(mux)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", s.Host, s.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(s.TimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(s.TimeoutSec+5) * time.Second,
		}

		go func() {
			slog.Info("Starting snake server", "host", s.Host, "port", s.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", s.ShutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(s.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
			return err
		}
		slog.Info("Graceful shutdown completed")
		return nil
	},
}

// applyServeFlags copies explicitly set serve flags over the loaded config.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	s := &cfg.Server
	if f.Changed("host") {
		s.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		s.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		s.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		s.MaxUploadMB, _ = f.GetInt("max-upload-size")
	}
	if f.Changed("timeout") {
		s.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		s.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("max-iterations") {
		s.MaxIterations, _ = f.GetInt("max-iterations")
	}
	if f.Changed("max-neighborhood-size") {
		s.MaxNeighborhoodSize, _ = f.GetInt("max-neighborhood-size")
	}
	if f.Changed("rate-limit-enabled") {
		s.RateLimitEnabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		s.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		s.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		s.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		s.MaxDataPerDay, _ = f.GetInt64("max-data-per-day")
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	d := config.DefaultConfig().Server
	serveCmd.Flags().StringP("host", "H", d.Host, "server host")
	serveCmd.Flags().IntP("port", "p", d.Port, "server port")
	serveCmd.Flags().String("cors-origin", d.CORSOrigin, "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", d.MaxUploadMB, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", d.TimeoutSec, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", d.ShutdownTimeout, "shutdown timeout in seconds")
	serveCmd.Flags().Int("max-iterations", d.MaxIterations, "largest pass count a request may ask for")
	serveCmd.Flags().Int("max-neighborhood-size", d.MaxNeighborhoodSize, "widest search window a request may ask for")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", d.RateLimitEnabled, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", d.RequestsPerMinute, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", d.RequestsPerHour, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", d.MaxRequestsPerDay, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-data-per-day", d.MaxDataPerDay, "maximum data processed per day per client (bytes)")
}
