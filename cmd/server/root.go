package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cityfix/internal/config"
	"cityfix/internal/logging"
)

var devSecret bool

var rootCmd = &cobra.Command{
	Use:   "cityfix",
	Short: "CityFix issue reporting backend",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Overload(); err != nil {
			log.Println("Error loading .env file, skipping")
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&devSecret, "dev", false, "fall back to a development JWT secret when JWT_SECRET is unset")
	rootCmd.AddCommand(serveCmd, migrateCmd, ensureAdminCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err.Error())
	}
}

// loadConfig reads configuration and installs the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	load := config.Load
	if devSecret {
		load = config.LoadWithDefaults
	}
	cfg, err := load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(os.Stderr, cfg.Log)
	logger.Info("configuration loaded", slog.String("config", cfg.String()))
	return cfg, logger, nil
}
