package weather

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

const (
	headingClass = "text-lg font-semibold text-green-800 mb-2"
	listClass    = "list-disc list-inside space-y-1 mb-4"
	itemClass    = "text-gray-700"
)

var (
	structuredTags = regexp2.MustCompile(`<h4>|<ul>|<li>|<h4\s|<ul\s|<li\s`, regexp2.None)
	bareHeading    = regexp2.MustCompile(`<h4(?![^>]*class=)`, regexp2.None)
	bareList       = regexp2.MustCompile(`<ul(?![^>]*class=)`, regexp2.None)
	bareItem       = regexp2.MustCompile(`<li(?![^>]*class=)`, regexp2.None)
	bulletPrefix   = regexp2.MustCompile(`^[-•*]\s*`, regexp2.None)
)

func init() {
	for _, re := range []*regexp2.Regexp{structuredTags, bareHeading, bareList, bareItem, bulletPrefix} {
		re.MatchTimeout = matchTimeout
	}
}

const matchTimeout = time.Second

// NormalizeAdviceHTML makes model output render consistently: tags missing a
// class get the standard one, and plain text sections become headed lists.
// On error content is returned unchanged.
func NormalizeAdviceHTML(content string) (string, error) {
	structured, err := structuredTags.MatchString(content)
	if err != nil {
		return content, fmt.Errorf("detect advice structure: %w", err)
	}
	if !structured {
		return plainToHTML(content), nil
	}

	out := content
	for _, r := range []struct {
		re  *regexp2.Regexp
		tag string
		cls string
	}{
		{bareHeading, "<h4", headingClass},
		{bareList, "<ul", listClass},
		{bareItem, "<li", itemClass},
	} {
		replaced, err := r.re.Replace(out, fmt.Sprintf(`%s class="%s"`, r.tag, r.cls), -1, -1)
		if err != nil {
			return content, fmt.Errorf("add %s classes: %w", r.tag, err)
		}
		out = replaced
	}
	return out, nil
}

func plainToHTML(content string) string {
	var parts []string
	for _, section := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n") {
		lines := strings.Split(strings.TrimSpace(section), "\n")
		header := strings.TrimSpace(strings.ReplaceAll(lines[0], ":", ""))
		if header == "" || strings.HasPrefix(header, "<") {
			continue
		}
		parts = append(parts, fmt.Sprintf(`<h4 class="%s">%s</h4>`, headingClass, html.EscapeString(header)))
		parts = append(parts, fmt.Sprintf(`<ul class="%s">`, listClass))
		for _, line := range lines[1:] {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "<") {
				continue
			}
			if trimmed, err := bulletPrefix.Replace(line, "", -1, 1); err == nil {
				line = trimmed
			}
			parts = append(parts, fmt.Sprintf(`<li class="%s">%s</li>`, itemClass, html.EscapeString(line)))
		}
		parts = append(parts, "</ul>")
	}
	return strings.Join(parts, "\n")
}
