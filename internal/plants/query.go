package plants

import (
	"regexp"
	"strings"
)

// Kind classifies what a chat message asks about the garden.
type Kind string

const (
	KindNone     Kind = "none"
	KindList     Kind = "list"
	KindLocation Kind = "location"
	KindPhoto    Kind = "photo"
	KindInfo     Kind = "info"
)

// Query is the result of Analyze.
type Query struct {
	Kind    Kind   `json:"kind"`
	Term    string `json:"term,omitempty"`
	Weather bool   `json:"weather"`
}

var listPhrases = []string{
	"what plants",
	"list of plants",
	"all plants",
	"which plants",
	"show all plants",
	"tell me about the plants",
}

var locationPhrases = []string{"where is", "where are", "location of", "where can i find"}

var photoPhrases = []string{"look like", "show me", "picture of", "photo of"}

var weatherWords = []string{"weather", "forecast", "temperature", "rain", "humidity", "wind"}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`where (?:is|are) (?:the\s+)?([a-z\s]+)`),
	regexp.MustCompile(`location of (?:the\s+)?([a-z\s]+)`),
	regexp.MustCompile(`where can i find (?:the\s+)?([a-z\s]+)`),
}

var termPatterns = []*regexp.Regexp{
	regexp.MustCompile(`about\s+(?:the\s+)?([a-z\s]+\b)`),
	regexp.MustCompile(`how\s+(?:do\s+)?(?:i\s+)?(?:grow|care\s+for|plant|maintain)\s+(?:a\s+)?([a-z\s]+\b)`),
	regexp.MustCompile(`show\s+me\s+(?:the\s+)?([a-z\s]+\b)`),
	regexp.MustCompile(`what\s+does\s+(?:a\s+)?([a-z\s]+)\s+look\s+like`),
	regexp.MustCompile(`picture\s+of\s+(?:a\s+)?([a-z\s]+\b)`),
	regexp.MustCompile(`photo\s+of\s+(?:a\s+)?([a-z\s]+\b)`),
	regexp.MustCompile(`^([a-z\s]+)$`),
}

var (
	leadingFiller  = regexp.MustCompile(`^(?:(?:my|the|a|an|our|your)\s+)+`)
	trailingFiller = regexp.MustCompile(`\s+(?:in|at|on)\s+(?:my|the|our)\s+(?:garden|yard|bed|beds|patio)$`)
)

// Analyze extracts the plant search term from a chat message and classifies it.
// A Term of "*" with KindList means every plant.
func Analyze(message string) Query {
	msg := strings.ToLower(strings.TrimSpace(message))
	q := Query{Kind: KindNone, Weather: containsAny(msg, weatherWords)}
	if msg == "" {
		return q
	}

	if containsAny(msg, listPhrases) {
		q.Kind, q.Term = KindList, "*"
		return q
	}

	q.Term = extractTerm(msg)
	if q.Term == "" {
		return q
	}
	switch {
	case containsAny(msg, locationPhrases):
		q.Kind = KindLocation
	case containsAny(msg, photoPhrases):
		q.Kind = KindPhoto
	default:
		q.Kind = KindInfo
	}
	return q
}

func extractTerm(msg string) string {
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return cleanTerm(m[1])
		}
	}
	for _, re := range termPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return cleanTerm(m[1])
		}
	}
	return ""
}

func cleanTerm(term string) string {
	term = strings.Join(strings.Fields(term), " ")
	term = leadingFiller.ReplaceAllString(term, "")
	term = trailingFiller.ReplaceAllString(term, "")
	return strings.TrimSpace(term)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
