package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/leave"
	"github.com/kozaktomas/face-attendance/internal/recap"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance API server.
Capture stations post frames to /api/v1/recognize; staff control sessions,
manage the roster and leave requests, and download recaps over the same API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides web.port)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides web.host)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	zap.L().Info("storage ready", zap.String("driver", cfg.Database.Driver))

	publisher, err := events.New(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer publisher.Close()

	svc, err := newAttendanceService(cfg, store, publisher)
	if err != nil {
		return err
	}
	zap.L().Info("matcher ready", zap.String("strategy", cfg.Matcher.Strategy))

	server := web.NewServer(cfg.Web, web.Services{
		Attendance: svc,
		Leaves:     leave.NewService(store, publisher, cfg.Periods),
		Recap:      recap.NewEngine(store, cfg.Periods.Names()),
		Periods:    cfg.Periods,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("error during shutdown", zap.Error(err))
		}
	}()

	if cfg.Web.APIToken == "" {
		zap.L().Warn("web.api_token is empty, the API is unauthenticated")
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
