package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
)

// Config holds all environment backed configuration.
type Config struct {
	// HTTP Server
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8100"`
	StaticDir string `env:"STATIC_DIR" envDefault:"web"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json or console

	// LLM
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4-turbo"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMMaxTokens  int           `env:"LLM_MAX_TOKENS" envDefault:"1000"`
	WeatherAware  bool          `env:"WEATHER_AWARE_CHAT" envDefault:"true"` // add weather context to every chat turn

	// Conversation history
	ConversationTimeout time.Duration `env:"CONVERSATION_TIMEOUT" envDefault:"30m"`
	MaxTokens           int           `env:"CONVERSATION_MAX_TOKENS" envDefault:"4096"`
	TokenBuffer         int           `env:"CONVERSATION_TOKEN_BUFFER" envDefault:"512"`
	MaxPerCategory      int           `env:"CONVERSATION_MAX_PER_CATEGORY" envDefault:"2"`
	TokenEstimator      string        `env:"TOKEN_ESTIMATOR" envDefault:"chars"` // chars, words or tiktoken
	SweepInterval       time.Duration `env:"CONVERSATION_SWEEP_INTERVAL" envDefault:"5m"`

	// Plant database
	PlantBackend            string `env:"PLANT_BACKEND" envDefault:"sqlite"` // sheets or sqlite
	SQLitePath              string `env:"SQLITE_PATH" envDefault:"garden.db"`
	SpreadsheetID           string `env:"SPREADSHEET_ID"`
	SheetRange              string `env:"SHEET_RANGE" envDefault:"Plants!A1:P"`
	GoogleCredentials       string `env:"GOOGLE_CREDENTIALS"`
	GoogleCredentialsFile   string `env:"GOOGLE_CREDENTIALS_FILE"`
	SheetsEndpoint          string `env:"SHEETS_ENDPOINT"`
	SheetsRequestsPerMinute int    `env:"SHEETS_REQUESTS_PER_MINUTE" envDefault:"30"`

	// Weather
	OpenWeatherAPIKey string        `env:"OPENWEATHER_API_KEY"`
	WeatherBaseURL    string        `env:"WEATHER_BASE_URL" envDefault:"https://api.openweathermap.org/data/2.5"`
	Latitude          float64       `env:"WEATHER_LAT" envDefault:"29.7604"`
	Longitude         float64       `env:"WEATHER_LON" envDefault:"-95.3698"`
	Timezone          string        `env:"WEATHER_TIMEZONE" envDefault:"America/Chicago"`
	WeatherCacheTTL   time.Duration `env:"WEATHER_CACHE_TTL" envDefault:"5m"`
	WeatherTimeout    time.Duration `env:"WEATHER_TIMEOUT" envDefault:"10s"`

	// Climate profile, defaults to Houston when unset
	ClimateFile string   `env:"CLIMATE_FILE"`
	Climate     *Climate `env:"-"`
}

// Load parses the environment and the optional climate profile.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.ClimateFile) != "" {
		climate, err := LoadClimate(cfg.ClimateFile)
		if err != nil {
			return nil, err
		}
		cfg.Climate = climate
	} else {
		cfg.Climate = DefaultClimate()
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.PlantBackend = strings.ToLower(strings.TrimSpace(c.PlantBackend))
	switch c.PlantBackend {
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when PLANT_BACKEND is %s", BackendSQLite)
		}
	case BackendSheets:
		if strings.TrimSpace(c.SpreadsheetID) == "" {
			return fmt.Errorf("SPREADSHEET_ID is required when PLANT_BACKEND is %s", BackendSheets)
		}
	default:
		return fmt.Errorf("unsupported PLANT_BACKEND %q", c.PlantBackend)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("CONVERSATION_MAX_TOKENS must be positive")
	}
	if c.TokenBuffer < 0 || c.TokenBuffer >= c.MaxTokens {
		return fmt.Errorf("CONVERSATION_TOKEN_BUFFER must be between 0 and CONVERSATION_MAX_TOKENS")
	}
	if c.SheetsRequestsPerMinute <= 0 {
		return fmt.Errorf("SHEETS_REQUESTS_PER_MINUTE must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid WEATHER_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured weather timezone, or UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
