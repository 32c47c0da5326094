package weather

import "time"

// Current is the present observation, imperial units.
type Current struct {
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    int       `json:"humidity"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	WindSpeed   float64   `json:"wind_speed"`
	Pressure    int       `json:"pressure"`
	Visibility  int       `json:"visibility"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
}

// Day aggregates the 3-hour forecast blocks of one local calendar day.
type Day struct {
	Date            time.Time `json:"date"`
	TempMin         float64   `json:"temp_min"`
	TempMax         float64   `json:"temp_max"`
	Humidity        int       `json:"humidity"`
	WindSpeed       float64   `json:"wind_speed"`
	Pressure        int       `json:"pressure"`
	RainProbability float64   `json:"rain_probability"`
	RainDescription string    `json:"rain_description"`
}

// Hour is one forecast block from now on.
type Hour struct {
	Time            time.Time `json:"time"`
	Label           string    `json:"label"`
	RainProbability float64   `json:"rain_probability"`
	Description     string    `json:"description"`
	WindSpeed       float64   `json:"wind_speed"`
	Temperature     float64   `json:"temperature"`
}

type condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Weather []condition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility int `json:"visibility"`
	Sys        struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type forecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Weather []condition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Pop float64 `json:"pop"`
}

type forecastResponse struct {
	List []forecastItem `json:"list"`
}

func (i forecastItem) description() string {
	if len(i.Weather) == 0 {
		return ""
	}
	return capitalize(i.Weather[0].Description)
}
