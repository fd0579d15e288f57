package actions

import (
	"context"

	"insightstream/internal/logger"
	"insightstream/internal/router"
	"insightstream/pkg/logging"
	"insightstream/pkg/metrics"
	"insightstream/pkg/models"
	"insightstream/pkg/tracing"
)

// IssueTracker files a ticket and returns its key.
type IssueTracker interface {
	CreateIssue(ctx context.Context, summary, description, priority string) (string, error)
}

// TodoTracker files a to-do item and returns its id.
type TodoTracker interface {
	CreateTodo(ctx context.Context, title, description string) (string, error)
}

// Mailer delivers the generated auto-reply.
type Mailer interface {
	Send(ctx context.Context, toEmail, subject, body string) error
}

// Dispatcher consumes enriched records, asks the router which actions apply,
// and fires each one. Integrations are fire-and-forget: a failed dispatch is
// logged and counted but never fails the record, since the record is already
// persisted by the storage consumer.
type Dispatcher struct {
	router *router.Router
	issues IssueTracker
	todos  TodoTracker
	mailer Mailer
	logger logger.Logger
}

func NewDispatcher(r *router.Router, issues IssueTracker, todos TodoTracker, mailer Mailer, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		router: r,
		issues: issues,
		todos:  todos,
		mailer: mailer,
		logger: log,
	}
}

// Handle is the broker handler for the classified feedback topic. Malformed
// envelopes are consumed without retry; they can never become valid.
func (d *Dispatcher) Handle(ctx context.Context, envelope models.PushEnvelope) error {
	ctx, span := tracing.GetTracer("actions").Start(ctx, "actions.handle")
	defer span.End()

	payload, err := envelope.DecodePayload()
	if err != nil {
		d.logger.WarnwCtx(ctx, "Skipping envelope with undecodable payload",
			"message_id", envelope.MessageID,
			"error", err,
		)
		return nil
	}

	record, err := models.ParseEnrichedRecord(payload)
	if err != nil {
		d.logger.WarnwCtx(ctx, "Skipping malformed enriched record",
			"message_id", envelope.MessageID,
			"error", err,
		)
		return nil
	}

	ctx = logging.WithMessageID(ctx, record.MessageID)
	ctx = logging.WithPlatform(ctx, record.SourcePlatform)

	routed := d.router.Route(ctx, *record)
	if len(routed) == 0 {
		d.logger.DebugwCtx(ctx, "No actions for record",
			"category", record.Category,
			"sentiment", record.Sentiment,
		)
		return nil
	}

	for _, action := range routed {
		d.dispatch(ctx, action, *record)
	}

	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, action router.Action, record models.EnrichedRecord) {
	var err error

	switch action.Tag {
	case router.TagIssueTracker:
		err = d.createIssue(ctx, action, record)
	case router.TagTodoTracker:
		err = d.createTodo(ctx, record)
	case router.TagAutoReply:
		err = d.sendReply(ctx, record)
	default:
		d.logger.WarnwCtx(ctx, "No handler for action tag",
			"tag", action.Tag,
			"rule_id", action.RuleID,
		)
		return
	}

	if err != nil {
		metrics.ActionDispatchTotal.WithLabelValues(string(action.Tag), "error").Inc()
		d.logger.ErrorwCtx(ctx, "Action dispatch failed",
			"tag", action.Tag,
			"error", err,
		)
		return
	}

	metrics.ActionDispatchTotal.WithLabelValues(string(action.Tag), "success").Inc()
}

func (d *Dispatcher) createIssue(ctx context.Context, action router.Action, record models.EnrichedRecord) error {
	if d.issues == nil {
		d.logger.WarnwCtx(ctx, "Issue tracker not configured, skipping")
		return nil
	}

	priority := "Medium"
	if action.Priority == router.PriorityHigh {
		priority = "High"
	}

	key, err := d.issues.CreateIssue(ctx,
		renderSummary("Bug Report", record),
		renderDescription(record),
		priority,
	)
	if err != nil {
		return err
	}

	d.logger.InfowCtx(ctx, "Issue created",
		"issue_key", key,
		"priority", priority,
	)
	return nil
}

func (d *Dispatcher) createTodo(ctx context.Context, record models.EnrichedRecord) error {
	if d.todos == nil {
		d.logger.WarnwCtx(ctx, "Todo tracker not configured, skipping")
		return nil
	}

	id, err := d.todos.CreateTodo(ctx,
		renderSummary("Feature Request", record),
		renderDescription(record),
	)
	if err != nil {
		return err
	}

	d.logger.InfowCtx(ctx, "Todo created",
		"todo_id", id,
	)
	return nil
}

func (d *Dispatcher) sendReply(ctx context.Context, record models.EnrichedRecord) error {
	if d.mailer == nil {
		d.logger.WarnwCtx(ctx, "Mailer not configured, skipping")
		return nil
	}

	if !record.HasAutoReply() {
		return nil
	}

	to := customerEmail(record)
	if err := d.mailer.Send(ctx, to, renderReplySubject(record), *record.AutoReplyText); err != nil {
		return err
	}

	d.logger.InfowCtx(ctx, "Auto-reply sent",
		"to", to,
	)
	return nil
}
