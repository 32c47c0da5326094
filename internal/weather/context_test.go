package weather

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RichardoC/gardenllm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	current *Current
	hours   []Hour
	err     error
	calls   int
}

func (f *fakeSource) Current(context.Context) (*Current, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.current, nil
}

func (f *fakeSource) Hourly(context.Context, int) ([]Hour, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hours, nil
}

func TestContextProvider_Messages(t *testing.T) {
	src := &fakeSource{
		current: &Current{Temperature: 78.4, Description: "Scattered Clouds", Humidity: 65, WindSpeed: 12.5},
		hours: []Hour{
			{Label: "Mon 03 PM", Temperature: 80, RainProbability: 5},
			{Label: "Mon 06 PM", Temperature: 72},
		},
	}
	p, err := NewContextProvider(src, "Houston, TX, USA", time.Minute, nil)
	require.NoError(t, err)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	msgs := p.Messages(context.Background())
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Equal(t, models.CategoryWeatherCurrent, msgs[0].Category)
	assert.Equal(t, "Current weather in Houston, TX, USA: 78.4°F, scattered clouds, humidity 65%, wind 12.5 mph.", msgs[0].Content)
	assert.Equal(t, models.CategoryWeatherForecast, msgs[1].Category)
	assert.Equal(t, "Forecast: High 80°F, low 72°F, no significant weather expected.", msgs[1].Content)

	msgs[0].Content = "mutated"
	again := p.Messages(context.Background())
	assert.Equal(t, 1, src.calls)
	assert.NotEqual(t, "mutated", again[0].Content)

	now = now.Add(2 * time.Minute)
	p.Messages(context.Background())
	assert.Equal(t, 2, src.calls)
}

func TestContextProvider_Fallback(t *testing.T) {
	src := &fakeSource{err: errors.New("down")}
	p, err := NewContextProvider(src, "Houston, TX, USA", 0, nil)
	require.NoError(t, err)

	msgs := p.Messages(context.Background())
	require.Len(t, msgs, 1)
	assert.Equal(t, models.CategoryWeatherCurrent, msgs[0].Category)
	assert.Equal(t, "Weather data is currently unavailable. Answer based on general Houston, TX, USA climate.", msgs[0].Content)
}

func TestContextProvider_FallbackExpiresEarly(t *testing.T) {
	src := &fakeSource{err: errors.New("down")}
	p, err := NewContextProvider(src, "Houston, TX, USA", 5*time.Minute, nil)
	require.NoError(t, err)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.Messages(context.Background())
	p.Messages(context.Background())
	assert.Equal(t, 1, src.calls)

	src.err = nil
	src.current = &Current{Temperature: 81, Humidity: 60}
	now = now.Add(FallbackTTL + time.Second)
	msgs := p.Messages(context.Background())
	assert.Equal(t, 2, src.calls)
	assert.Contains(t, msgs[0].Content, "81°F")
}

// slowSource blocks every Current call until release is closed.
type slowSource struct {
	entered atomic.Int32
	release chan struct{}
}

func (s *slowSource) Current(context.Context) (*Current, error) {
	s.entered.Add(1)
	<-s.release
	return &Current{Temperature: 70}, nil
}

func (s *slowSource) Hourly(context.Context, int) ([]Hour, error) {
	return nil, nil
}

func TestContextProvider_FetchesDoNotSerialize(t *testing.T) {
	src := &slowSource{release: make(chan struct{})}
	p, err := NewContextProvider(src, "Houston, TX, USA", time.Minute, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Messages(context.Background())
		}()
	}

	assert.Eventually(t, func() bool { return src.entered.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	close(src.release)
	wg.Wait()
}

func TestFormatForecast(t *testing.T) {
	tests := []struct {
		name  string
		hours []Hour
		want  string
	}{
		{"empty", nil, ""},
		{
			"calm",
			[]Hour{{Temperature: 70, RainProbability: 5}, {Temperature: 80}},
			"Forecast: High 80°F, low 70°F, no significant weather expected.",
		},
		{
			"light rain",
			[]Hour{{Temperature: 70, RainProbability: 20}, {Temperature: 75.25}},
			"Forecast: High 75.3°F, low 70°F with some rain possible.",
		},
		{
			"events",
			[]Hour{
				{Label: "Mon 03 PM", Temperature: 95, RainProbability: 40},
				{Label: "Mon 06 PM", Temperature: 80, RainProbability: 50, WindSpeed: 20},
				{Label: "Mon 09 PM", Temperature: 75, RainProbability: 60, WindSpeed: 18},
			},
			"Forecast: 40% chance of rain at Mon 03 PM, 50% chance of rain at Mon 06 PM; " +
				"High temperature of 95°F expected; Windy conditions (20 mph) at Mon 06 PM.",
		},
		{
			"cold snap",
			[]Hour{{Label: "Tue 03 AM", Temperature: 35}, {Temperature: 50}},
			"Forecast: Low temperature of 35°F expected.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatForecast(tt.hours))
		})
	}
}
