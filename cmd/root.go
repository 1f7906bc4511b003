package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-attendance/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Face-recognition attendance for residential schools",
	Long: `Face Attendance records student attendance from capture stations that
post camera frames. Staff open a session for a date and period, start late
counting when the period begins, and pull recaps per class as JSON or XLSX.`,
	SilenceUsage: true,
}

func Execute() {
	defer zap.L().Sync() //nolint:errcheck
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the configuration and installs the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}
