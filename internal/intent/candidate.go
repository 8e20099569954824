package intent

import (
	"fmt"
	"strings"

	"skillrouter/internal/catalog"
)

// Source identifies which matching strategy produced a candidate.
type Source string

const (
	SourceKeyword Source = "keyword"
	SourcePattern Source = "pattern"
	SourcePrimary Source = "primary"
)

// rank orders sources for tie-breaking: primary > pattern > keyword.
func (s Source) rank() int {
	switch s {
	case SourcePrimary:
		return 3
	case SourcePattern:
		return 2
	case SourceKeyword:
		return 1
	}
	return 0
}

// Candidate is one query-skill pair surviving ranking. At most one
// candidate exists per skill; the highest-confidence source wins.
type Candidate struct {
	Skill      *catalog.Skill
	Confidence float64
	Base       float64
	Source     Source

	// ExtractedArgs holds named capture groups from pattern/primary matches.
	ExtractedArgs map[string]string

	Explanation string
}

// Command renders the candidate as an executable command line.
func (c Candidate) Command() string {
	return catalog.FormatCommand(c.Skill.Name, c.ExtractedArgs)
}

// FormatSuggestions renders ranked candidates for plain-text display.
func FormatSuggestions(candidates []Candidate) string {
	if len(candidates) == 0 {
		return "No matching skills found for your query."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Intent detection results (%d matches):\n", len(candidates))
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Command())
		fmt.Fprintf(&b, "   confidence: %.0f%% | source: %s\n", c.Confidence*100, c.Source)
		if c.Skill.Description != "" {
			fmt.Fprintf(&b, "   %s\n", c.Skill.Description)
		}
		if c.Explanation != "" {
			fmt.Fprintf(&b, "   %s\n", c.Explanation)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
