package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/RichardoC/gardenllm/internal/metrics"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL   = "https://api.openweathermap.org/data/2.5"
	DefaultLatitude  = 29.7604
	DefaultLongitude = -95.3698
)

var ErrUnavailable = errors.New("weather data unavailable")

type Config struct {
	APIKey    string
	BaseURL   string
	Latitude  float64
	Longitude float64
	Location  *time.Location
	Timeout   time.Duration
}

// Client talks to the OpenWeather 2.5 API. Calls go through a circuit
// breaker and concurrent forecast requests share one upstream call.
type Client struct {
	http    *resty.Client
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
			SetHeader("User-Agent", "GardenLLM/1.0").
			SetTimeout(cfg.Timeout),
		cfg:    cfg,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "openweather",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("weather circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"lat":   fmt.Sprintf("%g", c.cfg.Latitude),
				"lon":   fmt.Sprintf("%g", c.cfg.Longitude),
				"appid": c.cfg.APIKey,
				"units": "imperial",
			}).
			SetResult(result).
			Get(path)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", path, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("weather API error on %s (status %d)", path, resp.StatusCode())
		}
		return nil, nil
	})
	metrics.UpstreamRequests.WithLabelValues("weather", metrics.Status(err)).Inc()
	if err != nil {
		c.logger.Error("weather request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) Current(ctx context.Context) (*Current, error) {
	var raw currentResponse
	if err := c.get(ctx, "/weather", &raw); err != nil {
		return nil, err
	}

	cur := &Current{
		Temperature: raw.Main.Temp,
		FeelsLike:   raw.Main.FeelsLike,
		Humidity:    int(math.Round(raw.Main.Humidity)),
		WindSpeed:   raw.Wind.Speed,
		Pressure:    int(math.Round(raw.Main.Pressure)),
		Visibility:  raw.Visibility,
		Sunrise:     time.Unix(raw.Sys.Sunrise, 0).In(c.cfg.Location),
		Sunset:      time.Unix(raw.Sys.Sunset, 0).In(c.cfg.Location),
	}
	if len(raw.Weather) > 0 {
		cur.Description = raw.Weather[0].Description
		cur.Icon = raw.Weather[0].Icon
	}
	return cur, nil
}

func (c *Client) forecast(ctx context.Context) (*forecastResponse, error) {
	v, err, shared := c.group.Do("forecast", func() (interface{}, error) {
		var raw forecastResponse
		if err := c.get(ctx, "/forecast", &raw); err != nil {
			return nil, err
		}
		return &raw, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("shared forecast request")
	}
	return v.(*forecastResponse), nil
}

// Daily folds the 3-hour forecast into at most days local calendar days.
func (c *Client) Daily(ctx context.Context, days int) ([]Day, error) {
	raw, err := c.forecast(ctx)
	if err != nil {
		return nil, err
	}
	out := aggregateDays(raw.List, c.cfg.Location)
	if days > 0 && len(out) > days {
		out = out[:days]
	}
	return out, nil
}

// Hourly returns up to hours forecast blocks starting at the current time.
func (c *Client) Hourly(ctx context.Context, hours int) ([]Hour, error) {
	raw, err := c.forecast(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now().Unix()
	out := make([]Hour, 0, len(raw.List))
	for _, item := range raw.List {
		if item.Dt < now {
			continue
		}
		t := time.Unix(item.Dt, 0).In(c.cfg.Location)
		out = append(out, Hour{
			Time:            t,
			Label:           t.Format("Mon 03 PM"),
			RainProbability: round(item.Pop*100, 1),
			Description:     item.description(),
			WindSpeed:       round(item.Wind.Speed, 1),
			Temperature:     round(item.Main.Temp, 1),
		})
	}
	if hours > 0 && len(out) > hours {
		out = out[:hours]
	}
	return out, nil
}

type dayAccumulator struct {
	date       time.Time
	tempMin    float64
	tempMax    float64
	maxPop     float64
	maxPopDesc string
	humidity   []float64
	windSpeed  []float64
	pressure   []float64
}

func aggregateDays(items []forecastItem, loc *time.Location) []Day {
	byDate := make(map[string]*dayAccumulator)
	for _, item := range items {
		t := time.Unix(item.Dt, 0).In(loc)
		key := t.Format("2006-01-02")
		acc, ok := byDate[key]
		if !ok {
			acc = &dayAccumulator{
				date:    time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc),
				tempMin: math.Inf(1),
				tempMax: math.Inf(-1),
			}
			byDate[key] = acc
		}
		acc.tempMin = math.Min(acc.tempMin, item.Main.TempMin)
		acc.tempMax = math.Max(acc.tempMax, item.Main.TempMax)
		acc.humidity = append(acc.humidity, item.Main.Humidity)
		acc.windSpeed = append(acc.windSpeed, item.Wind.Speed)
		acc.pressure = append(acc.pressure, item.Main.Pressure)
		if item.Pop > acc.maxPop {
			acc.maxPop = item.Pop
			acc.maxPopDesc = item.description()
		}
	}

	out := make([]Day, 0, len(byDate))
	for _, acc := range byDate {
		out = append(out, Day{
			Date:            acc.date,
			TempMin:         round(acc.tempMin, 1),
			TempMax:         round(acc.tempMax, 1),
			Humidity:        int(math.Round(mean(acc.humidity))),
			WindSpeed:       round(mean(acc.windSpeed), 1),
			Pressure:        int(math.Round(mean(acc.pressure))),
			RainProbability: round(acc.maxPop*100, 1),
			RainDescription: acc.maxPopDesc,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
