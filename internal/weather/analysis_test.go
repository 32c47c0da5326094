package weather

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name     string
		current  Current
		temp     string
		humidity string
		wind     string
	}{
		{"frost", Current{Temperature: 28, Humidity: 50, WindSpeed: 2}, "Frost risk", "Moderate humidity", "Light winds"},
		{"cold", Current{Temperature: 45, Humidity: 25, WindSpeed: 12}, "Cold conditions", "Low humidity", "Moderate winds"},
		{"mild", Current{Temperature: 72, Humidity: 80, WindSpeed: 10}, "Good growing", "Moderate humidity", "Light winds"},
		{"warm", Current{Temperature: 90, Humidity: 85, WindSpeed: 25}, "Warm conditions", "High humidity", "High winds"},
		{"hot", Current{Temperature: 101, Humidity: 30, WindSpeed: 0}, "High heat", "Moderate humidity", "Light winds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			impact := Analyze(tt.current)
			assert.True(t, strings.HasPrefix(impact.Temperature, tt.temp), impact.Temperature)
			assert.True(t, strings.HasPrefix(impact.Humidity, tt.humidity), impact.Humidity)
			assert.True(t, strings.HasPrefix(impact.Wind, tt.wind), impact.Wind)
		})
	}
}

func TestAdvicePrompt(t *testing.T) {
	p := AdvicePrompt(Current{Temperature: 91, FeelsLike: 99, Humidity: 70, Description: "clear sky", WindSpeed: 4}, "Houston, TX, USA", "Hardiness Zone: 9a/9b")

	assert.Contains(t, p, "Houston, TX, USA climate")
	assert.Contains(t, p, "- Temperature: 91°F")
	assert.Contains(t, p, "- Humidity: 70%")
	assert.Contains(t, p, "Hardiness Zone: 9a/9b")
	for _, s := range adviceSections {
		assert.Contains(t, p, s+":")
	}
}
