package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/events"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <dir>",
	Short: "Bulk-enroll faces from a directory of photos",
	Long: `Enroll faces for existing identities from a directory of photos.

Each file must be named after the identity's external ID, e.g. S-001.jpg.
The first detected face in each photo replaces the identity's stored face.
Files for unknown external IDs are reported and skipped.

Examples:
  face-attendance enroll ./photos
  face-attendance enroll ./photos --concurrency 8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel workers")
	enrollCmd.Flags().Bool("json", false, "Output as JSON")
}

// EnrollResult summarizes a bulk enrollment run
type EnrollResult struct {
	Files         int            `json:"files"`
	Enrolled      int            `json:"enrolled"`
	Skipped       int            `json:"skipped"`
	Failed        int            `json:"failed"`
	Errors        map[string]any `json:"errors,omitempty"`
	DurationHuman string         `json:"duration_human"`
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	jsonOutput := mustGetBool(cmd, "json")
	if concurrency < 1 {
		return errors.New("--concurrency must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	startTime := time.Now()

	files, err := listImages(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", args[0])
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newAttendanceService(cfg, store, &events.NoopPublisher{})
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetVisibility(!jsonOutput),
		progressbar.OptionFullWidth(),
	)

	result := EnrollResult{Files: len(files), Errors: map[string]any{}}
	var mu sync.Mutex
	record := func(file string, err error, skipped bool) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			result.Enrolled++
		case skipped:
			result.Skipped++
			result.Errors[filepath.Base(file)] = err.Error()
		default:
			result.Failed++
			result.Errors[filepath.Base(file)] = err.Error()
		}
		bar.Add(1) //nolint:errcheck
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, file := range files {
		g.Go(func() error {
			externalID := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			identity, err := store.GetIdentityByExternalID(gctx, externalID)
			if err != nil {
				// storage failures abort the run
				return fmt.Errorf("looking up %s: %w", externalID, err)
			}
			if identity == nil {
				record(file, fmt.Errorf("no identity with external ID %q", externalID), true)
				return nil
			}

			data, err := os.ReadFile(file) //nolint:gosec // path comes from the listed directory
			if err != nil {
				record(file, err, false)
				return nil
			}
			if _, err := svc.EnrollFace(gctx, identity.ID, data); err != nil {
				zap.L().Debug("enrollment failed", zap.String("file", file), zap.Error(err))
				record(file, err, false)
				return nil
			}
			record(file, nil, false)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	result.DurationHuman = time.Since(startTime).Round(time.Millisecond).String()

	if jsonOutput {
		return outputJSON(result)
	}
	fmt.Println()
	fmt.Printf("\nCompleted: %d enrolled, %d skipped, %d failed (of %d photos) in %s\n",
		result.Enrolled, result.Skipped, result.Failed, result.Files, result.DurationHuman)
	for file, msg := range result.Errors {
		fmt.Printf("  %s: %v\n", file, msg)
	}
	return nil
}
