package weather

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RichardoC/gardenllm/internal/models"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const (
	DefaultContextTTL = 5 * time.Minute
	// FallbackTTL bounds how long the "unavailable" message is cached.
	FallbackTTL = 30 * time.Second

	// forecastBlocks covers the next 24 hours of 3-hour blocks.
	forecastBlocks = 8

	rainEventThreshold  = 30.0
	rainBriefThreshold  = 10.0
	highTempThreshold   = 90.0
	lowTempThreshold    = 40.0
	windEventThreshold  = 15.0
	maxRainEvents       = 2
	maxWindEvents       = 1
	contextCacheEntries = 16
)

// Source is the part of Client the context provider needs.
type Source interface {
	Current(ctx context.Context) (*Current, error)
	Hourly(ctx context.Context, hours int) ([]Hour, error)
}

// ContextProvider turns live weather into short system messages for the model.
type ContextProvider struct {
	source   Source
	location string
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger

	cache *lru.Cache
}

type cacheEntry struct {
	messages  []models.Message
	expiresAt time.Time
}

func NewContextProvider(source Source, location string, ttl time.Duration, logger *zap.Logger) (*ContextProvider, error) {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New(contextCacheEntries)
	if err != nil {
		return nil, err
	}
	return &ContextProvider{
		source:   source,
		location: location,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		cache:    cache,
	}, nil
}

// Messages returns the current-weather and forecast system messages, cached
// for the provider's TTL. When no data can be fetched a single fallback
// message is returned instead and cached for at most FallbackTTL.
// Upstream calls run without holding any lock.
func (p *ContextProvider) Messages(ctx context.Context) []models.Message {
	if v, ok := p.cache.Get(p.location); ok {
		entry := v.(cacheEntry)
		if p.now().Before(entry.expiresAt) {
			p.logger.Debug("using cached weather context")
			return copyMessages(entry.messages)
		}
	}

	var msgs []models.Message
	if cur, err := p.source.Current(ctx); err != nil {
		p.logger.Warn("current weather unavailable", zap.Error(err))
	} else {
		msgs = append(msgs, models.Message{
			Role:     models.RoleSystem,
			Category: models.CategoryWeatherCurrent,
			Content:  p.formatCurrent(*cur),
		})
	}

	if hours, err := p.source.Hourly(ctx, forecastBlocks); err != nil {
		p.logger.Warn("forecast unavailable", zap.Error(err))
	} else if summary := FormatForecast(hours); summary != "" {
		msgs = append(msgs, models.Message{
			Role:     models.RoleSystem,
			Category: models.CategoryWeatherForecast,
			Content:  summary,
		})
	}

	ttl := p.ttl
	if len(msgs) == 0 {
		msgs = append(msgs, p.Fallback())
		ttl = min(ttl, FallbackTTL)
	}

	p.cache.Add(p.location, cacheEntry{messages: msgs, expiresAt: p.now().Add(ttl)})
	return copyMessages(msgs)
}

// Fallback is the message used when no weather data is available.
func (p *ContextProvider) Fallback() models.Message {
	return models.Message{
		Role:     models.RoleSystem,
		Category: models.CategoryWeatherCurrent,
		Content:  fmt.Sprintf("Weather data is currently unavailable. Answer based on general %s climate.", p.location),
	}
}

func (p *ContextProvider) formatCurrent(c Current) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current weather in %s: %s°F", p.location, num(c.Temperature))
	if c.Description != "" {
		fmt.Fprintf(&b, ", %s", strings.ToLower(c.Description))
	}
	fmt.Fprintf(&b, ", humidity %d%%, wind %s mph.", c.Humidity, num(c.WindSpeed))
	return b.String()
}

// FormatForecast summarizes forecast blocks: significant events when there are
// any, otherwise the temperature range.
func FormatForecast(hours []Hour) string {
	if len(hours) == 0 {
		return ""
	}

	high, low := hours[0].Temperature, hours[0].Temperature
	hasRain := false
	var rain, wind []string
	for _, h := range hours {
		if h.Temperature > high {
			high = h.Temperature
		}
		if h.Temperature < low {
			low = h.Temperature
		}
		if h.RainProbability > rainBriefThreshold {
			hasRain = true
		}
		if h.RainProbability > rainEventThreshold {
			rain = append(rain, fmt.Sprintf("%s%% chance of rain at %s", num(h.RainProbability), h.Label))
		}
		if h.WindSpeed > windEventThreshold {
			wind = append(wind, fmt.Sprintf("Windy conditions (%s mph) at %s", num(h.WindSpeed), h.Label))
		}
	}

	var temps []string
	if high > highTempThreshold {
		temps = append(temps, fmt.Sprintf("High temperature of %s°F expected", num(high)))
	}
	if low < lowTempThreshold {
		temps = append(temps, fmt.Sprintf("Low temperature of %s°F expected", num(low)))
	}

	if len(rain) == 0 && len(temps) == 0 && len(wind) == 0 {
		if hasRain {
			return fmt.Sprintf("Forecast: High %s°F, low %s°F with some rain possible.", num(high), num(low))
		}
		return fmt.Sprintf("Forecast: High %s°F, low %s°F, no significant weather expected.", num(high), num(low))
	}

	var parts []string
	if len(rain) > 0 {
		parts = append(parts, strings.Join(rain[:min(len(rain), maxRainEvents)], ", "))
	}
	if len(temps) > 0 {
		parts = append(parts, strings.Join(temps, ", "))
	}
	if len(wind) > 0 {
		parts = append(parts, strings.Join(wind[:min(len(wind), maxWindEvents)], ", "))
	}
	return "Forecast: " + strings.Join(parts, "; ") + "."
}

func num(v float64) string {
	return strconv.FormatFloat(round(v, 1), 'f', -1, 64)
}

func copyMessages(msgs []models.Message) []models.Message {
	return append([]models.Message(nil), msgs...)
}
