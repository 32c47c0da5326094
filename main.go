package main

import (
	"context"
	"fmt"
	"os"

	"github.com/RichardoC/gardenllm/internal/app"
	"github.com/RichardoC/gardenllm/internal/config"
	"github.com/RichardoC/gardenllm/internal/logger"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gardenllm",
	Short: "GardenLLM - gardening assistant backed by your plant database",
	Long: `gardenllm runs the garden assistant server and talks to it from the terminal.

Configuration is read from the environment (OPENAI_API_KEY, PLANT_BACKEND,
SQLITE_PATH, SPREADSHEET_ID, OPENWEATHER_API_KEY, CLIMATE_FILE, ...).

Examples:
  gardenllm serve
  gardenllm chat "Where is the basil?"
  gardenllm chat --mode database
  gardenllm plants list tomato
  gardenllm plants update "Sweet Basil" Location "Herb spiral"
  gardenllm weather impact`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(plantsCmd)
	rootCmd.AddCommand(weatherCmd)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}

// loadApp builds the application for one-off commands. Logs go to stderr at
// warn level unless --verbose is set.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log, err := logger.New(level, "console")
	if err != nil {
		return nil, err
	}
	return app.New(commandContext(cmd), cfg, log)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
