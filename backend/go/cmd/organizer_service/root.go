package main

import (
	"fmt"
	"os"

	"file-organizer/backend/go/internal/config"
	"file-organizer/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "organizer_service",
	Short: "File organizer with RAG-assisted organization suggestions",
	Long: `organizer_service stores uploaded files, manages folders and tags, and asks a
two-stage model service for folder and tag suggestions using similar files as context.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "organizer_service: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to the YAML config file (empty for env and defaults only)")
}

// setup loads the config and initializes logging for a subcommand.
func setup() (*config.AppConfig, *logger.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.Logger.Level)
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return cfg, logger.New(cfg.App.Name), nil
}
