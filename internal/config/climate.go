package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Climate describes the local growing conditions handed to the model.
type Climate struct {
	Location       string   `yaml:"location"`
	Aliases        []string `yaml:"aliases"`
	HardinessZone  string   `yaml:"hardiness_zone"`
	Summary        string   `yaml:"summary"`
	SummerHighs    string   `yaml:"summer_highs"`
	WinterLows     string   `yaml:"winter_lows"`
	Humidity       string   `yaml:"humidity"`
	Rainfall       string   `yaml:"rainfall"`
	Soil           string   `yaml:"soil"`
	GrowingSeasons string   `yaml:"growing_seasons"`
	Frost          string   `yaml:"frost"`
}

func DefaultClimate() *Climate {
	return &Climate{
		Location:       "Houston, TX, USA",
		Aliases:        []string{"Houston, TX", "Houston, Texas, USA", "Houston, Texas", "Houston"},
		HardinessZone:  "9a/9b",
		Summary:        "Hot and humid subtropical climate with mild winters",
		SummerHighs:    "90-100°F (32-38°C)",
		WinterLows:     "30-40°F (-1-4°C)",
		Humidity:       "60-80%",
		Rainfall:       "50+ inches annually, heavy spring/fall rains",
		Soil:           "Clay soil, alkaline pH (7.0-8.0)",
		GrowingSeasons: "Spring (Feb-May), Fall (Sept-Nov), avoid peak summer heat",
		Frost:          "Occasional freezes, protect sensitive plants",
	}
}

// LoadClimate reads a YAML climate profile. Missing fields keep the default values.
func LoadClimate(path string) (*Climate, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("climate file path is empty")
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read climate file %q: %w", cleanPath, err)
	}

	climate := DefaultClimate()
	fromFile := &Climate{}
	if err := yaml.Unmarshal(data, fromFile); err != nil {
		return nil, fmt.Errorf("parse climate file %q: %w", cleanPath, err)
	}
	if fromFile.Location != "" {
		climate.Aliases = nil
	}
	merge(&climate.Location, fromFile.Location)
	merge(&climate.HardinessZone, fromFile.HardinessZone)
	merge(&climate.Summary, fromFile.Summary)
	merge(&climate.SummerHighs, fromFile.SummerHighs)
	merge(&climate.WinterLows, fromFile.WinterLows)
	merge(&climate.Humidity, fromFile.Humidity)
	merge(&climate.Rainfall, fromFile.Rainfall)
	merge(&climate.Soil, fromFile.Soil)
	merge(&climate.GrowingSeasons, fromFile.GrowingSeasons)
	merge(&climate.Frost, fromFile.Frost)
	if len(fromFile.Aliases) > 0 {
		climate.Aliases = fromFile.Aliases
	}
	return climate, nil
}

func merge(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// City is the first component of Location, e.g. "Houston".
func (c *Climate) City() string {
	city, _, _ := strings.Cut(c.Location, ",")
	return strings.TrimSpace(city)
}

// Supports reports whether location names this climate's location or one of its aliases.
func (c *Climate) Supports(location string) bool {
	location = strings.ToLower(strings.TrimSpace(location))
	if location == "" {
		return false
	}
	if location == strings.ToLower(c.Location) {
		return true
	}
	for _, a := range c.Aliases {
		if location == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// Context renders the profile as prompt text.
func (c *Climate) Context() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Location: %s\n", c.Location)
	fmt.Fprintf(&b, "Climate: %s\n", c.Summary)
	fmt.Fprintf(&b, "Growing season: %s\n", c.GrowingSeasons)
	fmt.Fprintf(&b, "Hardiness Zone: %s\n", c.HardinessZone)
	fmt.Fprintf(&b, "Temperature Range: Summer %s, Winter %s\n", c.SummerHighs, c.WinterLows)
	fmt.Fprintf(&b, "Humidity: %s\n", c.Humidity)
	fmt.Fprintf(&b, "Rainfall: %s\n", c.Rainfall)
	fmt.Fprintf(&b, "Soil: %s\n", c.Soil)
	fmt.Fprintf(&b, "Frost: %s", c.Frost)
	return b.String()
}
