package weather

import (
	"fmt"
	"strings"
)

// AdviceSystemPrompt asks the model for HTML structured care advice.
const AdviceSystemPrompt = "You are a knowledgeable gardening expert specializing in weather-aware plant care. " +
	"Always format your responses with proper HTML tags including <h4>, <ul>, and <li> tags for structure."

var adviceSections = []string{
	"Watering Recommendations",
	"Protection Measures",
	"Maintenance Tasks",
	"Special Considerations",
}

// AdvicePrompt builds the request for plant care recommendations from the
// current conditions and the local climate description.
func AdvicePrompt(c Current, location, climate string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the current weather conditions and %s climate, provide clear, actionable plant care recommendations.\n\n", location)
	b.WriteString("Current Weather:\n")
	fmt.Fprintf(&b, "- Temperature: %s°F\n", num(c.Temperature))
	fmt.Fprintf(&b, "- Feels like: %s°F\n", num(c.FeelsLike))
	fmt.Fprintf(&b, "- Humidity: %d%%\n", c.Humidity)
	fmt.Fprintf(&b, "- Conditions: %s\n", c.Description)
	fmt.Fprintf(&b, "- Wind Speed: %s mph\n\n", num(c.WindSpeed))
	if climate != "" {
		fmt.Fprintf(&b, "Local climate:\n%s\n\n", climate)
	}
	b.WriteString("Please provide specific, actionable plant care advice in this format:\n\n")
	for _, s := range adviceSections {
		fmt.Fprintf(&b, "<h4 class=\"%s\">%s:</h4>\n<ul class=\"%s\">\n[%s]\n</ul>\n\n", headingClass, s, listClass, strings.ToLower(s))
	}
	b.WriteString("Keep the advice practical, specific, and easy to follow. Use bullet points and clear language.")
	return b.String()
}
