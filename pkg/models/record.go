package models

import (
	"encoding/json"
	"strings"
	"time"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type Category string

const (
	CategoryBugReport                Category = "bug_report"
	CategoryFeatureRequest           Category = "feature_request"
	CategoryGeneralFeedback          Category = "general_feedback"
	CategoryNegativeCompetitorReview Category = "negative_competitor_review"
)

// OriginalURLNotAvailable is the sentinel stored when a source has no permalink.
const OriginalURLNotAvailable = "N/A"

// NormalizedRecord is the platform-agnostic feedback item produced by the
// connectors. It is never mutated after construction.
type NormalizedRecord struct {
	MessageID      string                 `json:"message_id"`
	SourcePlatform string                 `json:"source_platform"`
	TimestampUTC   string                 `json:"timestamp_utc"`
	TextContent    string                 `json:"text_content"`
	AuthorInfo     map[string]interface{} `json:"author_info"`
	OriginalURL    string                 `json:"original_url"`
	RawMetadata    map[string]interface{} `json:"raw_metadata"`
}

// EnrichedRecord is a NormalizedRecord augmented with the classification
// produced by the processor.
type EnrichedRecord struct {
	NormalizedRecord
	Sentiment              Sentiment `json:"sentiment"`
	Category               Category  `json:"category"`
	DetectedCompetitors    []string  `json:"detected_competitors"`
	AutoReplyText          *string   `json:"auto_reply_text"`
	ProcessingTimestampUTC string    `json:"processing_timestamp_utc"`
}

// normalizedRecordKeys lists every key the normalized schema declares. A
// document missing any of them is malformed, even if the value is null.
var normalizedRecordKeys = []string{
	"message_id",
	"source_platform",
	"timestamp_utc",
	"text_content",
	"author_info",
	"original_url",
	"raw_metadata",
}

// ParseNormalizedRecord decodes and validates a normalized feedback document.
// Unknown keys are ignored; missing declared keys and empty identifiers fail
// fast with a ValidationError.
func ParseNormalizedRecord(data []byte) (*NormalizedRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Field: "document", Message: "invalid JSON: " + err.Error()}
	}

	for _, key := range normalizedRecordKeys {
		if _, ok := raw[key]; !ok {
			return nil, &ValidationError{Field: key, Message: "required schema key is missing"}
		}
	}

	var rec NormalizedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &ValidationError{Field: "document", Message: "schema mismatch: " + err.Error()}
	}

	rec.TextContent = strings.TrimSpace(rec.TextContent)

	if rec.MessageID == "" {
		return nil, &ValidationError{Field: "message_id", Message: "message_id must be a non-empty string"}
	}
	if rec.SourcePlatform == "" {
		return nil, &ValidationError{Field: "source_platform", Message: "source_platform must be a non-empty string"}
	}
	if rec.OriginalURL == "" {
		rec.OriginalURL = OriginalURLNotAvailable
	}

	return &rec, nil
}

// ParseEnrichedRecord decodes an enriched feedback document as published by
// the processor.
func ParseEnrichedRecord(data []byte) (*EnrichedRecord, error) {
	var rec EnrichedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &ValidationError{Field: "document", Message: "invalid JSON: " + err.Error()}
	}
	if rec.MessageID == "" {
		return nil, &ValidationError{Field: "message_id", Message: "message_id must be a non-empty string"}
	}
	if rec.DetectedCompetitors == nil {
		rec.DetectedCompetitors = []string{}
	}
	return &rec, nil
}

// Clone returns a deep copy so enrichment can augment without touching the
// source record.
func (r NormalizedRecord) Clone() NormalizedRecord {
	out := r
	out.AuthorInfo = cloneMap(r.AuthorInfo)
	out.RawMetadata = cloneMap(r.RawMetadata)
	return out
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// AuthorName extracts a display name from the platform-specific author
// attributes, falling back across the keys the connectors are known to use.
func (r NormalizedRecord) AuthorName() string {
	for _, key := range []string{"username", "nickname"} {
		if v, ok := r.AuthorInfo[key].(string); ok && v != "" {
			return v
		}
	}
	return OriginalURLNotAvailable
}

// AuthorID extracts the platform author id, if any.
func (r NormalizedRecord) AuthorID() string {
	if v, ok := r.AuthorInfo["id"].(string); ok && v != "" {
		return v
	}
	return OriginalURLNotAvailable
}

// HasAutoReply reports whether a non-empty auto reply was generated.
func (r EnrichedRecord) HasAutoReply() bool {
	return r.AutoReplyText != nil && *r.AutoReplyText != ""
}

// FormatTimestampUTC renders a timestamp the way the pipeline stores them:
// UTC, second precision, trailing Z.
func FormatTimestampUTC(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z07:00")
}
