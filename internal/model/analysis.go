package model

// Response section names produced by heading-based splitting.
const (
	SectionMissing  = "Missing Sections"
	SectionTips     = "Improvement Tips"
	SectionFeedback = "Detailed Feedback"
)

// Literal heading markers requested by the analysis prompt and matched by
// the response parser.
const (
	HeadingMissing  = "### " + SectionMissing + ":"
	HeadingScore    = "### Completeness Score: X/10"
	HeadingTips     = "### " + SectionTips + ":"
	HeadingFeedback = "### " + SectionFeedback + ":"
)

// SectionNames lists the response sections in display order.
func SectionNames() []string {
	return []string{SectionMissing, SectionTips, SectionFeedback}
}

// ScoreBand buckets a completeness score for display.
type ScoreBand string

const (
	BandNone ScoreBand = ""
	BandGood ScoreBand = "good"
	BandFair ScoreBand = "fair"
	BandPoor ScoreBand = "poor"
)

// Analysis is the structured view of a lab report evaluation. Raw always
// holds the full model output, whatever the parser managed to recover.
type Analysis struct {
	Score    *int                `json:"score"`
	Sections map[string][]string `json:"sections"`
	Raw      string              `json:"raw"`
}

// HasScore reports whether a completeness score was found.
func (a Analysis) HasScore() bool {
	return a.Score != nil
}

// Section returns the lines of a named section and whether its heading appeared.
func (a Analysis) Section(name string) ([]string, bool) {
	lines, ok := a.Sections[name]
	return lines, ok
}

// Band classifies the score: 8 and above is good, 5 to 7 fair, below 5 poor.
func (a Analysis) Band() ScoreBand {
	if a.Score == nil {
		return BandNone
	}
	switch s := *a.Score; {
	case s >= 8:
		return BandGood
	case s >= 5:
		return BandFair
	default:
		return BandPoor
	}
}

// Percent returns the score as a completion percentage, or 0 without a score.
func (a Analysis) Percent() int {
	if a.Score == nil {
		return 0
	}
	return *a.Score * 10
}
