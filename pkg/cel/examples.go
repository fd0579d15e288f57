package cel

var PredicateExamples = map[string]string{
	"negative_bug":        `sentiment == "negative" && category == "bug_report"`,
	"competitor_mention":  `detected_competitors.size() > 0`,
	"specific_competitor": `"asana" in detected_competitors`,
	"platform_filter":     `source_platform == "app_store_review"`,
	"keyword_match":       `text_content.contains("refund")`,
	"vip_author":          `has(author_info.tier) && author_info.tier == "enterprise"`,
	"no_reply_sent":       `sentiment == "positive" && !has_auto_reply`,
	"combined":            `sentiment == "negative" && (category == "bug_report" || detected_competitors.size() > 0)`,
}
