package academy

import "slices"

type Pattern struct {
	ID         string `json:"id" yaml:"id"`
	Title      string `json:"title" yaml:"title"`
	Difficulty string `json:"difficulty" yaml:"difficulty"`
	Category   string `json:"category" yaml:"category"`
}

var patterns = []Pattern{
	{ID: "engulfing", Title: "Engulfing Pattern", Difficulty: "beginner", Category: "reversal"},
	{ID: "pin-bar", Title: "Pin Bar", Difficulty: "beginner", Category: "reversal"},
	{ID: "break-retest", Title: "Break and Retest", Difficulty: "intermediate", Category: "breakout"},
	{ID: "order-block", Title: "Order Block", Difficulty: "advanced", Category: "institutional"},
}

// Patterns returns the pattern catalog.
func Patterns() []Pattern {
	return slices.Clone(patterns)
}

func LookupPattern(id string) (Pattern, bool) {
	i := slices.IndexFunc(patterns, func(p Pattern) bool { return p.ID == id })
	if i < 0 {
		return Pattern{}, false
	}
	return patterns[i], true
}
