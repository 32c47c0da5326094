package weather

// Impact describes what the current conditions mean for the garden.
type Impact struct {
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
	Wind        string `json:"wind"`
}

func Analyze(c Current) Impact {
	var impact Impact

	switch t := c.Temperature; {
	case t < 32:
		impact.Temperature = "Frost risk - protect sensitive plants"
	case t < 50:
		impact.Temperature = "Cold conditions - limit outdoor planting"
	case t > 95:
		impact.Temperature = "High heat - provide shade and extra water"
	case t > 85:
		impact.Temperature = "Warm conditions - monitor water needs"
	default:
		impact.Temperature = "Good growing conditions"
	}

	switch h := c.Humidity; {
	case h > 80:
		impact.Humidity = "High humidity - watch for fungal diseases"
	case h < 30:
		impact.Humidity = "Low humidity - increase watering frequency"
	default:
		impact.Humidity = "Moderate humidity - normal care"
	}

	switch w := c.WindSpeed; {
	case w > 20:
		impact.Wind = "High winds - protect plants and secure containers"
	case w > 10:
		impact.Wind = "Moderate winds - monitor for damage"
	default:
		impact.Wind = "Light winds - normal conditions"
	}
	return impact
}
