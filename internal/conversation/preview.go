package conversation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RichardoC/gardenllm/internal/models"
)

const (
	noConversationTitle = "No conversation"
	maxTitleLen         = 50
	maxSummaryPart      = 148
)

// Preview is a short, human readable digest of a conversation.
type Preview struct {
	ConversationID  string    `json:"conversation_id"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	PlantsMentioned []string  `json:"plants_mentioned"`
	KeyTopics       []string  `json:"key_topics"`
	Actions         []string  `json:"actions"`
	MessageCount    int       `json:"message_count"`
	Mode            string    `json:"mode"`
	LastActivity    time.Time `json:"last_activity"`
}

type matcher struct {
	name string
	re   *regexp.Regexp
}

func matchers(pairs ...string) []matcher {
	out := make([]matcher, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, matcher{name: pairs[i], re: regexp.MustCompile(`(?i)` + pairs[i+1])})
	}
	return out
}

var knownPlants = matchers(
	"tomato", `\btomato(?:es)?\b`,
	"pepper", `\bpeppers?\b`,
	"basil", `\bbasil\b`,
	"rosemary", `\brosemary\b`,
	"thyme", `\bthyme\b`,
	"oregano", `\boregano\b`,
	"lavender", `\blavenders?\b`,
	"rose", `\broses?\b`,
	"mint", `\bmint\b`,
	"parsley", `\bparsley\b`,
	"cilantro", `\bcilantro\b`,
	"sage", `\bsage\b`,
	"cucumber", `\bcucumbers?\b`,
	"lettuce", `\blettuces?\b`,
	"squash", `\bsquash(?:es)?\b`,
	"zucchini", `\bzucchinis?\b`,
	"bean", `\bbeans?\b`,
	"pea", `\bpeas?\b`,
	"carrot", `\bcarrots?\b`,
	"onion", `\bonions?\b`,
	"garlic", `\bgarlic\b`,
	"potato", `\bpotato(?:es)?\b`,
	"okra", `\bokra\b`,
	"eggplant", `\beggplants?\b`,
	"kale", `\bkale\b`,
	"spinach", `\bspinach\b`,
	"strawberry", `\bstrawberr(?:y|ies)\b`,
	"blueberry", `\bblueberr(?:y|ies)\b`,
	"lemon", `\blemons?\b`,
	"lime", `\blimes?\b`,
	"fig", `\bfigs?\b`,
	"hibiscus", `\bhibiscus\b`,
	"hydrangea", `\bhydrangeas?\b`,
	"azalea", `\bazaleas?\b`,
	"camellia", `\bcamellias?\b`,
	"gardenia", `\bgardenias?\b`,
	"jasmine", `\bjasmines?\b`,
	"marigold", `\bmarigolds?\b`,
	"sunflower", `\bsunflowers?\b`,
	"zinnia", `\bzinnias?\b`,
	"fern", `\bferns?\b`,
	"palm", `\bpalms?\b`,
)

var keyTopics = matchers(
	"water", `\bwater(?:ing|ed|s)?\b|\birrigat`,
	"sun", `\bsun(?:light|ny)?\b|\bshade\b`,
	"care", `\bcar(?:e|ing)\b`,
	"fertilize", `\bfertili[sz]|\bfeed(?:ing)?\b`,
	"prune", `\bprun(?:e|es|ed|ing)\b`,
	"pest", `\bpests?\b|\binsects?\b|\baphids?\b|\bbugs?\b`,
	"soil", `\bsoil\b|\bmulch|\bcompost`,
	"frost", `\bfrost|\bfreez|\bcold\b`,
	"weather", `\bweather\b|\bforecast\b|\brain\b`,
)

var topicLabels = map[string]string{
	"water":     "Watering",
	"sun":       "Sunlight",
	"care":      "Plant care",
	"fertilize": "Fertilizing",
	"prune":     "Pruning",
	"pest":      "Pest control",
	"soil":      "Soil",
	"frost":     "Frost protection",
	"weather":   "Weather",
}

var userActions = matchers(
	"Plant added", `\badd(?:ed|ing)?\s+(?:a\s+|new\s+)?plant\b|\bnew plant\b`,
	"Plant identification", `\bidentify\b|\bwhat (?:is|kind of) (?:this|that) plant\b|\bwhat plant is\b`,
	"Location query", `\bwhere (?:is|are|can i find)\b|\blocation of\b`,
	"Care advice", `\bcare\b|\bhow (?:do|should|can) i (?:grow|water|prune|fertili[sz]e|plant|maintain)\b`,
	"Weather check", `\bweather\b|\bforecast\b`,
)

// BuildPreview derives title, topics, plants and actions from user and
// assistant messages. System messages are ignored.
func BuildPreview(conv models.Conversation) Preview {
	p := Preview{
		ConversationID:  conv.ID,
		Title:           noConversationTitle,
		PlantsMentioned: []string{},
		KeyTopics:       []string{},
		Actions:         []string{},
		Mode:            conv.Mode,
		LastActivity:    conv.LastActivity,
	}

	var text strings.Builder
	var firstUser, lastAssistant string
	actions := make(map[string]bool)
	for _, m := range conv.Messages {
		if m.Role == models.RoleSystem {
			continue
		}
		p.MessageCount++
		text.WriteString(m.Content)
		text.WriteString("\n")

		switch m.Role {
		case models.RoleUser:
			if firstUser == "" {
				firstUser = m.Content
			}
			for _, a := range userActions {
				if a.re.MatchString(m.Content) {
					actions[a.name] = true
				}
			}
			if m.Mode == models.ModeImageAnalysis || len(m.Images) > 0 {
				actions["Plant identification"] = true
			}
		case models.RoleAssistant:
			lastAssistant = m.Content
		}
		if p.Mode == "" {
			p.Mode = m.Mode
		}
	}
	if p.MessageCount == 0 {
		return p
	}

	all := text.String()
	p.PlantsMentioned = findInOrder(knownPlants, all)
	for _, t := range keyTopics {
		if t.re.MatchString(all) {
			p.KeyTopics = append(p.KeyTopics, t.name)
		}
	}
	for _, a := range userActions {
		if actions[a.name] {
			p.Actions = append(p.Actions, a.name)
		}
	}

	p.Title = title(p.PlantsMentioned, p.KeyTopics, firstUser)
	p.Summary = truncate(firstUser, maxSummaryPart)
	if lastAssistant != "" {
		p.Summary += " → " + truncate(lastAssistant, maxSummaryPart)
	}
	return p
}

// ContextLine renders the preview as one sentence for prompt hand-over between modes.
func (p Preview) ContextLine(maxLen int) string {
	if p.MessageCount == 0 {
		return ""
	}
	parts := []string{}
	if p.Mode != "" {
		parts = append(parts, fmt.Sprintf("Previous mode: %s", p.Mode))
	}
	if len(p.PlantsMentioned) > 0 {
		parts = append(parts, "plants discussed: "+strings.Join(p.PlantsMentioned, ", "))
	}
	if len(p.KeyTopics) > 0 {
		parts = append(parts, "topics: "+strings.Join(p.KeyTopics, ", "))
	}
	parts = append(parts, fmt.Sprintf("%d messages", p.MessageCount))
	line := strings.Join(parts, "; ") + "."
	if maxLen > 0 {
		line = truncate(line, maxLen)
	}
	return line
}

func findInOrder(ms []matcher, text string) []string {
	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for _, m := range ms {
		if loc := m.re.FindStringIndex(text); loc != nil {
			hits = append(hits, hit{m.name, loc[0]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}

func title(plants, topics []string, firstUser string) string {
	switch {
	case len(plants) == 1:
		return capitalize(plants[0])
	case len(plants) == 2:
		return capitalize(plants[0]) + " and " + capitalize(plants[1])
	case len(plants) > 2:
		return fmt.Sprintf("%s, %s and %d more", capitalize(plants[0]), capitalize(plants[1]), len(plants)-2)
	case len(topics) > 0:
		return topicLabels[topics[0]] + " discussion"
	}
	if t := truncate(strings.TrimSpace(firstUser), maxTitleLen); t != "" {
		return t
	}
	return "Garden conversation"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:n])
	}
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
