package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/database/sqlite"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/fingerprint"
	"github.com/kozaktomas/face-attendance/internal/matcher"
)

// openStore connects to the configured backend and applies its schema.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("ATTENDANCE_DATABASE_URL environment variable is required")
	}

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		return store, nil
	default:
		store, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return store, nil
	}
}

// newAttendanceService wires the recognition pipeline around store.
func newAttendanceService(cfg *config.Config, store database.Store, publisher events.Publisher) (*attendance.Service, error) {
	strategy, err := matcher.New(cfg.Matcher)
	if err != nil {
		return nil, err
	}
	return attendance.NewService(attendance.Options{
		Store:        store,
		Sessions:     attendance.NewSessionManager(cfg.Session.TTL, nil),
		Matcher:      strategy,
		Extractor:    fingerprint.NewFaceClient(cfg.Embedding.URL, fingerprint.WithRateLimit(cfg.Embedding.RateLimit)),
		Publisher:    publisher,
		Periods:      cfg.Periods,
		EmbeddingDim: cfg.Embedding.Dim,
	}), nil
}
