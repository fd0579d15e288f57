package actions

import (
	"fmt"

	"insightstream/internal/constants"
	"insightstream/pkg/models"
)

// renderSummary builds the one-line ticket title: platform plus a truncated
// slice of the feedback text.
func renderSummary(label string, record models.EnrichedRecord) string {
	return fmt.Sprintf("%s from %s: %s...", label, record.SourcePlatform, truncate(record.TextContent, constants.SummaryTruncateLen))
}

func renderDescription(record models.EnrichedRecord) string {
	return fmt.Sprintf(
		"Source: %s\n"+
			"Message ID: %s\n"+
			"Original Text: %s\n"+
			"Sentiment: %s\n"+
			"Author: %s (ID: %s)\n"+
			"Original URL: %s\n"+
			"\n---\nAutomated by InsightStream AI",
		record.SourcePlatform,
		record.MessageID,
		record.TextContent,
		record.Sentiment,
		record.AuthorName(),
		record.AuthorID(),
		record.OriginalURL,
	)
}

func renderReplySubject(record models.EnrichedRecord) string {
	return fmt.Sprintf("Thank You for your Feedback on FlowHub! (Ref: %s)", record.MessageID)
}

// customerEmail resolves the reply-to address. Connectors put a contact email
// in author_info when the platform exposes one; otherwise a placeholder
// address keyed on the username is used.
func customerEmail(record models.EnrichedRecord) string {
	if v, ok := record.AuthorInfo["email"].(string); ok && v != "" {
		return v
	}
	name := record.AuthorName()
	if name == models.OriginalURLNotAvailable {
		name = "anonymous"
	}
	return fmt.Sprintf("customer_%s@example.com", name)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
