package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	DefaultRawFeedbackTopic        = "raw-feedback"
	DefaultClassifiedFeedbackTopic = "classified-feedback"
)

const (
	CacheKeyPrefixScore = "score:"
)

const (
	DefaultMongoDBName = "insightstream"

	LexiconCollection      = "lexicons"
	RoutingRulesCollection = "routing_rules"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000

	SummaryTruncateLen = 70
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	// Sentiment score thresholds; a band of width 0.4 centered at zero maps
	// to neutral.
	DefaultPositiveThreshold = 0.2
	DefaultNegativeThreshold = -0.2
)

const (
	DefaultScoreCacheTTL = time.Hour
)
