package models

import "time"

// ConfigUpdateEvent announces that operator-managed tables changed and the
// listening service should reload them.
type ConfigUpdateEvent struct {
	EventType   string                 `json:"event_type"`
	ServiceType string                 `json:"service_type"`
	RuleID      string                 `json:"rule_id,omitempty"`
	Action      string                 `json:"action"`
	Timestamp   time.Time              `json:"timestamp"`
	ChangedBy   string                 `json:"changed_by,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeLexiconUpdated     = "lexicon_updated"
	EventTypeRoutingRuleUpdated = "routing_rule_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionReload = "reload"
)

const (
	ServiceTypeProcessor = "processor"
	ServiceTypeActions   = "actions"
)
