// Package report turns free-form model evaluations of a lab report into a
// structured model.Analysis.
package report

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/lab-assistant/internal/model"
)

var scoreRe = regexp.MustCompile(`(?i)Completeness Score:\s*(\d+)/10`)

// headings maps the literal marker to the section it opens. The score heading
// is not a section; its line falls into whatever section is open.
var headings = []struct {
	marker  string
	section string
}{
	{model.HeadingMissing, model.SectionMissing},
	{model.HeadingTips, model.SectionTips},
	{model.HeadingFeedback, model.SectionFeedback},
}

// Parse extracts the completeness score and heading sections from raw. It
// never fails: missing structure shows up as absent fields, and Raw always
// carries the input unchanged.
func Parse(raw string) model.Analysis {
	return model.Analysis{
		Score:    Score(raw),
		Sections: Sections(raw),
		Raw:      raw,
	}
}

// Score returns the first "Completeness Score: N/10" value, or nil when
// there is none or it falls outside 1..10.
func Score(raw string) *int {
	m := scoreRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > 10 {
		return nil
	}
	return &n
}

// Sections splits raw by heading markers. A repeated heading restarts its
// section, so only the last occurrence survives. Lines before the first
// heading and blank lines are dropped.
func Sections(raw string) map[string][]string {
	sections := make(map[string][]string)
	current := ""

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if name, ok := headingOf(line); ok {
			current = name
			sections[name] = []string{}
			continue
		}
		if strings.TrimSpace(line) == "" || current == "" {
			continue
		}
		sections[current] = append(sections[current], line)
	}
	return sections
}

func headingOf(line string) (string, bool) {
	for _, h := range headings {
		if strings.Contains(line, h.marker) {
			return h.section, true
		}
	}
	return "", false
}
