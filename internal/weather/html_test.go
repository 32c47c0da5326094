package weather

import (
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalize(t *testing.T, in string) string {
	t.Helper()
	out, err := NormalizeAdviceHTML(in)
	require.NoError(t, err)
	return out
}

func TestNormalizeAdviceHTML_AddsMissingClasses(t *testing.T) {
	in := `<h4>Watering</h4><ul><li>Water deeply</li></ul>`
	want := `<h4 class="` + headingClass + `">Watering</h4><ul class="` + listClass + `"><li class="` + itemClass + `">Water deeply</li></ul>`
	assert.Equal(t, want, normalize(t, in))
}

func TestNormalizeAdviceHTML_KeepsExistingClasses(t *testing.T) {
	in := `<h4 class="custom">Pruning</h4><ul class="x"><li>Trim</li><li class="y">Shape</li></ul>`
	want := `<h4 class="custom">Pruning</h4><ul class="x"><li class="` + itemClass + `">Trim</li><li class="y">Shape</li></ul>`
	assert.Equal(t, want, normalize(t, in))
}

func TestNormalizeAdviceHTML_PlainText(t *testing.T) {
	in := "Watering Recommendations:\n- Water early\n* Mulch beds\n\nProtection:\n• Cover tender plants & pots"
	want := `<h4 class="` + headingClass + `">Watering Recommendations</h4>` + "\n" +
		`<ul class="` + listClass + `">` + "\n" +
		`<li class="` + itemClass + `">Water early</li>` + "\n" +
		`<li class="` + itemClass + `">Mulch beds</li>` + "\n" +
		"</ul>\n" +
		`<h4 class="` + headingClass + `">Protection</h4>` + "\n" +
		`<ul class="` + listClass + `">` + "\n" +
		`<li class="` + itemClass + `">Cover tender plants &amp; pots</li>` + "\n" +
		"</ul>"
	assert.Equal(t, want, normalize(t, in))
}

func TestNormalizeAdviceHTML_PatternsHaveTimeout(t *testing.T) {
	for _, re := range []*regexp2.Regexp{structuredTags, bareHeading, bareList, bareItem, bulletPrefix} {
		assert.Equal(t, matchTimeout, re.MatchTimeout, re.String())
	}
}
