package llm

import (
	"fmt"
	"strings"

	"github.com/RichardoC/gardenllm/internal/config"
	"github.com/RichardoC/gardenllm/internal/models"
)

const (
	notFoundReply   = "I couldn't find any plants matching '%s' in the database."
	emptyGardenText = "There are currently no plants in the database."
)

// SystemPrompt returns the instructions for a conversation mode. Unknown
// modes get the general prompt.
func SystemPrompt(mode string, climate *config.Climate) string {
	location := "the user's area"
	if climate != nil && climate.Location != "" {
		location = climate.Location
	}

	var b strings.Builder
	switch mode {
	case models.ModeDatabase:
		fmt.Fprintf(&b, "You are a gardening assistant with access to the user's garden database for a garden in %s. ", location)
		b.WriteString("Answer from the plant records you are given. ")
		b.WriteString("If a plant is not in the garden database, say so instead of guessing. ")
		b.WriteString("Plants can grow in several locations; list every location a record names.")
	case models.ModeImageAnalysis:
		b.WriteString("You are an expert in plant identification and plant health. ")
		b.WriteString("Identify the plants in the images you are shown, point out pests, disease or stress, ")
		fmt.Fprintf(&b, "and suggest care suited to %s.", location)
	default:
		fmt.Fprintf(&b, "You are a helpful gardening assistant for a garden in %s. ", location)
		b.WriteString("Give practical, specific advice and keep answers concise.")
	}

	if climate != nil {
		b.WriteString("\n\nLocal climate:\n")
		b.WriteString(climate.Context())
	}
	return b.String()
}

func validMode(mode string) bool {
	switch mode {
	case models.ModeGeneral, models.ModeDatabase, models.ModeImageAnalysis:
		return true
	}
	return false
}

// plantData renders records for the model. Photo columns are left out; links
// are added to the reply afterwards.
func plantData(found []models.Plant) string {
	var b strings.Builder
	b.WriteString("Plant records from the garden database:")
	for _, p := range found {
		b.WriteString("\n")
		for _, kv := range p.Details() {
			fmt.Fprintf(&b, "\n%s: %s", kv[0], kv[1])
		}
	}
	return b.String()
}

func plantList(names []string) string {
	return fmt.Sprintf("The following plants are in the garden: %s. These are all the plants currently in the database.",
		strings.Join(names, ", "))
}

func locationReply(found []models.Plant) string {
	var parts []string
	for _, p := range found {
		if p.Location != "" {
			parts = append(parts, fmt.Sprintf("The %s is located in the %s.", p.Name, p.Location))
		} else {
			parts = append(parts, fmt.Sprintf("I found %s, but its location is not specified.", p.Name))
		}
	}
	for _, p := range found {
		if link := p.PhotoLink(); link != "" {
			parts = append(parts, fmt.Sprintf("\nYou can see a photo of the %s here: %s", p.Name, link))
		}
	}
	return strings.Join(parts, "\n")
}

func photoReply(found []models.Plant) string {
	parts := make([]string, 0, len(found))
	for _, p := range found {
		if link := p.PhotoLink(); link != "" {
			parts = append(parts, fmt.Sprintf("Here's what %s looks like:\n%s", p.Name, link))
		} else {
			parts = append(parts, fmt.Sprintf("I found %s, but there's no photo available.", p.Name))
		}
	}
	return strings.Join(parts, "\n\n")
}

func photoLinks(found []models.Plant) string {
	var b strings.Builder
	for _, p := range found {
		if link := p.PhotoLink(); link != "" {
			fmt.Fprintf(&b, "\n\nYou can see a photo of %s here: %s", p.Name, link)
		}
	}
	return b.String()
}
