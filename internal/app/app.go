// Package app assembles the garden assistant from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/RichardoC/gardenllm/internal/api"
	"github.com/RichardoC/gardenllm/internal/config"
	"github.com/RichardoC/gardenllm/internal/conversation"
	"github.com/RichardoC/gardenllm/internal/db"
	"github.com/RichardoC/gardenllm/internal/llm"
	"github.com/RichardoC/gardenllm/internal/plants"
	"github.com/RichardoC/gardenllm/internal/sheets"
	"github.com/RichardoC/gardenllm/internal/weather"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   *conversation.Store
	Plants  plants.Repository
	Weather *weather.Client
	Chat    *llm.Service

	closers []io.Closer
}

// New builds every component. A missing or unusable LLM key is not fatal:
// the chat service then only answers from the plant database.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Climate == nil {
		cfg.Climate = config.DefaultClimate()
	}

	estimator, err := conversation.NewEstimator(cfg.TokenEstimator, cfg.OpenAIModel)
	if err != nil {
		return nil, err
	}
	store := conversation.NewStore(conversation.Config{
		Timeout:        cfg.ConversationTimeout,
		MaxTokens:      cfg.MaxTokens,
		TokenBuffer:    cfg.TokenBuffer,
		MaxPerCategory: cfg.MaxPerCategory,
	},
		conversation.WithEstimator(estimator),
		conversation.WithLogger(logger.Named("conversation")))

	a := &App{Config: cfg, Logger: logger, Store: store}
	a.closers = append(a.closers, store)

	repo, err := OpenPlants(ctx, cfg, logger.Named("plants"))
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}
	a.Plants = repo
	if c, ok := repo.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.Weather = weather.NewClient(weather.Config{
		APIKey:    cfg.OpenWeatherAPIKey,
		BaseURL:   cfg.WeatherBaseURL,
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Location:  cfg.Location(),
		Timeout:   cfg.WeatherTimeout,
	}, weather.WithLogger(logger.Named("weather")))
	weatherCtx, err := weather.NewContextProvider(a.Weather, cfg.Climate.Location, cfg.WeatherCacheTTL, logger.Named("weather"))
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}

	model, err := llm.NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		logger.Warn("language model unavailable, only database answers will work", zap.Error(err))
	}
	a.Chat = llm.New(model, store, llm.Config{
		Timeout:      cfg.LLMTimeout,
		MaxTokens:    cfg.LLMMaxTokens,
		WeatherAware: cfg.WeatherAware,
		Climate:      cfg.Climate,
	},
		llm.WithPlants(repo),
		llm.WithWeather(weatherCtx, a.Weather),
		llm.WithLogger(logger.Named("chat")))

	return a, nil
}

// OpenPlants opens the configured plant backend.
func OpenPlants(ctx context.Context, cfg *config.Config, logger *zap.Logger) (plants.Repository, error) {
	switch cfg.PlantBackend {
	case config.BackendSheets:
		client, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:     cfg.SpreadsheetID,
			Range:             cfg.SheetRange,
			CredentialsJSON:   cfg.GoogleCredentials,
			CredentialsFile:   cfg.GoogleCredentialsFile,
			Endpoint:          cfg.SheetsEndpoint,
			RequestsPerMinute: cfg.SheetsRequestsPerMinute,
			Location:          cfg.Location(),
		}, sheets.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendSQLite, "":
		database, err := db.New(cfg.SQLitePath, db.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return database, nil
	}
	return nil, fmt.Errorf("unsupported plant backend %q", cfg.PlantBackend)
}

// Handler returns the HTTP API with the static UI.
func (a *App) Handler() http.Handler {
	return api.NewHandler(a.Store, a.Chat, a.Plants, a.Weather, a.Logger.Named("api")).Routes(a.Config.StaticDir)
}

// Serve runs the HTTP server and the conversation sweeper until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	a.Store.StartSweeper(ctx, a.Config.SweepInterval)

	server := &http.Server{
		Addr:              a.Config.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.Logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	a.Logger.Info("Server exited")
	return nil
}

// Close stops the sweeper and closes the plant database.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	a.closers = nil
	return err
}
