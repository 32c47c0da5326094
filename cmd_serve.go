package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/RichardoC/gardenllm/internal/app"
	"github.com/RichardoC/gardenllm/internal/config"
	"github.com/RichardoC/gardenllm/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long:  `Start the chat API, the plant and weather endpoints and the static web UI.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides HTTP_ADDR)")
	serveCmd.Flags().String("static", "", "Static files directory (overrides STATIC_DIR)")
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if static, _ := cmd.Flags().GetString("static"); static != "" {
		cfg.StaticDir = static
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	return a.Serve(ctx)
}
