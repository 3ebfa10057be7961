// Package cli provides the command-line interface for cosim.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any
// subcommands.
var rootCmd = &cobra.Command{
	Use:   "cosim",
	Short: "cosim runs discrete-event co-simulation scenarios for active distribution networks.",
	Long: `cosim runs discrete-event co-simulation scenarios for active distribution ` +
		`networks: it loads a scenario's bus/branch topology and agent roster, wires ` +
		`them onto the simulation kernel, and either runs the scenario to completion ` +
		`or reports static topology properties.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configureLogging loads .env (if present, silently ignored otherwise)
// and sets logrus's level from COSIM_LOG_LEVEL, defaulting to info.
func configureLogging() {
	_ = godotenv.Load()

	level, err := logrus.ParseLevel(envOrDefault("COSIM_LOG_LEVEL", "info"))
	if err != nil {
		logrus.WithError(err).Warn("cosim: invalid COSIM_LOG_LEVEL, defaulting to info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
