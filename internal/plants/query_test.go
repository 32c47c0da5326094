package plants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		message string
		kind    Kind
		term    string
		weather bool
	}{
		{"What plants do I have?", KindList, "*", false},
		{"Show all plants please", KindList, "*", false},
		{"Where is the rosemary?", KindLocation, "rosemary", false},
		{"Where are my tomatoes in the garden", KindLocation, "tomatoes", false},
		{"Where can I find the Peggy Martin rose?", KindLocation, "peggy martin rose", false},
		{"What does a fig look like?", KindPhoto, "fig", false},
		{"Show me the lavender", KindPhoto, "lavender", false},
		{"Picture of a hibiscus", KindPhoto, "hibiscus", false},
		{"Tell me about basil", KindInfo, "basil", false},
		{"How do I grow okra?", KindInfo, "okra", false},
		{"How do I care for my roses?", KindInfo, "roses", false},
		{"basil", KindInfo, "basil", false},
		{"Will it rain tomorrow?", KindNone, "", true},
		{"What's the forecast for the tomatoes?", KindNone, "", true},
		{"", KindNone, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			q := Analyze(tt.message)
			assert.Equal(t, tt.kind, q.Kind)
			assert.Equal(t, tt.term, q.Term)
			assert.Equal(t, tt.weather, q.Weather)
		})
	}
}
