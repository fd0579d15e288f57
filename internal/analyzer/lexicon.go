package analyzer

// Lexicon holds the keyword tables classification runs against. Tables are
// ordered; competitor matches are reported in table order.
type Lexicon struct {
	Competitors     []string
	BugKeywords     []string
	FeatureKeywords []string
}

// DefaultLexicon is the built-in table set, used until an operator-managed
// lexicon is loaded and as the fallback when none is configured.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Competitors: []string{
			"asana",
			"monday.com",
			"clickup",
			"trello",
			"jira",
			"basecamp",
		},
		BugKeywords: []string{
			"bug",
			"crash",
			"error",
			"laggy",
		},
		FeatureKeywords: []string{
			"feature",
			"idea",
			"wish",
			"suggestion",
		},
	}
}

func (l Lexicon) clone() Lexicon {
	return Lexicon{
		Competitors:     append([]string(nil), l.Competitors...),
		BugKeywords:     append([]string(nil), l.BugKeywords...),
		FeatureKeywords: append([]string(nil), l.FeatureKeywords...),
	}
}
