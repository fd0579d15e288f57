package router

import (
	"context"
	"sync"

	celgo "github.com/google/cel-go/cel"

	"insightstream/internal/logger"
	"insightstream/pkg/cel"
	"insightstream/pkg/metrics"
	"insightstream/pkg/models"
)

type Tag string

const (
	TagTodoTracker  Tag = "todo_tracker"
	TagIssueTracker Tag = "issue_tracker"
	TagAutoReply    Tag = "auto_reply"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Action is one downstream dispatch decision. Priority is only set for tags
// that carry one.
type Action struct {
	Tag      Tag      `json:"tag"`
	Priority Priority `json:"priority,omitempty"`
	RuleID   string   `json:"rule_id,omitempty"`
}

// builtinRule is an independent predicate over the enriched record. Rules are
// not mutually exclusive; several may tag the same record.
type builtinRule struct {
	tag      Tag
	matches  func(models.EnrichedRecord) bool
	priority func(models.EnrichedRecord) Priority
}

var builtinRules = []builtinRule{
	{
		tag: TagTodoTracker,
		matches: func(r models.EnrichedRecord) bool {
			return r.Category == models.CategoryFeatureRequest
		},
	},
	{
		tag: TagIssueTracker,
		matches: func(r models.EnrichedRecord) bool {
			return r.Category == models.CategoryBugReport
		},
		priority: func(r models.EnrichedRecord) Priority {
			if r.Sentiment == models.SentimentNegative {
				return PriorityHigh
			}
			return PriorityMedium
		},
	},
	{
		tag: TagAutoReply,
		matches: func(r models.EnrichedRecord) bool {
			return r.Sentiment == models.SentimentPositive &&
				r.HasAutoReply() &&
				r.Category != models.CategoryBugReport
		},
	},
}

type compiledRule struct {
	rule    RoutingRule
	program celgo.Program
}

// Router maps an enriched record to its downstream actions. The built-in
// rules implement the dispatch contract; operator-defined CEL rules loaded
// from the repository extend it at runtime.
type Router struct {
	repo      RuleRepository
	evaluator *cel.Evaluator
	custom    []compiledRule
	customMu  sync.RWMutex
	logger    logger.Logger
}

func New(repo RuleRepository, log logger.Logger) (*Router, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	return &Router{
		repo:      repo,
		evaluator: evaluator,
		logger:    log,
	}, nil
}

// Route evaluates every rule independently and returns the matched actions.
// negative_competitor_review matches no built-in rule on purpose: those
// records are stored for human review only.
func (r *Router) Route(ctx context.Context, record models.EnrichedRecord) []Action {
	actions := []Action{}

	for _, rule := range builtinRules {
		if !rule.matches(record) {
			continue
		}
		action := Action{Tag: rule.tag}
		if rule.priority != nil {
			action.Priority = rule.priority(record)
		}
		actions = append(actions, action)
		metrics.RouterActionsTotal.WithLabelValues(string(rule.tag)).Inc()
	}

	actions = append(actions, r.routeCustom(ctx, record, actions)...)
	return actions
}

// routeCustom runs operator-defined rules. An evaluation error skips that
// rule; routing of a record never fails outright.
func (r *Router) routeCustom(ctx context.Context, record models.EnrichedRecord, existing []Action) []Action {
	r.customMu.RLock()
	rules := r.custom
	r.customMu.RUnlock()

	var actions []Action
	for _, compiled := range rules {
		matched, err := r.evaluator.RunPredicate(ctx, compiled.program, record)
		if err != nil {
			r.logger.ErrorwCtx(ctx, "Routing rule evaluation error",
				"rule_id", compiled.rule.ID,
				"rule_name", compiled.rule.Name,
				"error", err,
			)
			continue
		}
		if !matched {
			continue
		}

		tag := Tag(compiled.rule.Tag)
		if hasTag(existing, tag) || hasTag(actions, tag) {
			continue
		}

		actions = append(actions, Action{Tag: tag, RuleID: compiled.rule.ID})
		metrics.RouterActionsTotal.WithLabelValues(compiled.rule.Tag).Inc()
	}

	return actions
}

func hasTag(actions []Action, tag Tag) bool {
	for _, a := range actions {
		if a.Tag == tag {
			return true
		}
	}
	return false
}

// ReloadRules recompiles the operator-defined rule set. Rules that fail to
// compile are dropped with an error log; the rest still load.
func (r *Router) ReloadRules(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	rules, err := r.repo.GetActiveRules(ctx)
	if err != nil {
		return err
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		program, err := r.evaluator.CompilePredicate(rule.Expression)
		if err != nil {
			r.logger.ErrorwCtx(ctx, "Failed to compile routing rule",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"error", err,
			)
			continue
		}
		compiled = append(compiled, compiledRule{rule: rule, program: program})
	}

	r.customMu.Lock()
	r.custom = compiled
	r.customMu.Unlock()

	metrics.SetRouterCustomRules(len(compiled))
	r.logger.InfowCtx(ctx, "Successfully reloaded routing rules",
		"rules_count", len(compiled),
	)
	return nil
}
