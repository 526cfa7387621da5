// Package cmd wires the inspect and migrate subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:           "fedmig",
	Short:         "Inspect and migrate RabbitMQ federation configuration between brokers",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code: 0 on success,
// nothing-to-do or a declined prompt; 1 on missing configuration, failed
// authentication or a fatal fetch failure.
func Execute() int {
	// Local overrides, same contract as exporting the variables directly.
	_ = godotenv.Load()

	setupLogging("info")

	// Advisory failures never propagate out of the services; every error
	// reaching this point is a fatal precondition.
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// setupLogging installs a console-encoded global zap logger at the given
// level. Called again after config load so LOG_LEVEL takes effect.
func setupLogging(level string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return
	}
	zap.ReplaceGlobals(logger)
}
