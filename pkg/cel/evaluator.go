package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"insightstream/pkg/models"
)

// Evaluator compiles and runs routing predicates against enriched feedback
// records. Predicates must evaluate to bool.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("message_id", cel.StringType),
		cel.Variable("source_platform", cel.StringType),
		cel.Variable("text_content", cel.StringType),
		cel.Variable("sentiment", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("detected_competitors", cel.ListType(cel.StringType)),
		cel.Variable("has_auto_reply", cel.BoolType),
		cel.Variable("author_info", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("raw_metadata", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidatePredicate(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("routing predicate must return bool, got %v", ast.OutputType())
	}

	return nil
}

// CompilePredicate returns a reusable program so rule sets can be compiled
// once at load time instead of per record.
func (e *Evaluator) CompilePredicate(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("routing predicate must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

func (e *Evaluator) EvaluatePredicate(ctx context.Context, expression string, record models.EnrichedRecord) (bool, error) {
	program, err := e.CompilePredicate(expression)
	if err != nil {
		return false, err
	}

	return e.RunPredicate(ctx, program, record)
}

func (e *Evaluator) RunPredicate(ctx context.Context, program cel.Program, record models.EnrichedRecord) (bool, error) {
	result, _, err := program.ContextEval(ctx, recordToVars(record))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func recordToVars(record models.EnrichedRecord) map[string]interface{} {
	competitors := record.DetectedCompetitors
	if competitors == nil {
		competitors = []string{}
	}

	authorInfo := record.AuthorInfo
	if authorInfo == nil {
		authorInfo = map[string]interface{}{}
	}

	rawMetadata := record.RawMetadata
	if rawMetadata == nil {
		rawMetadata = map[string]interface{}{}
	}

	return map[string]interface{}{
		"message_id":           record.MessageID,
		"source_platform":      record.SourcePlatform,
		"text_content":         record.TextContent,
		"sentiment":            string(record.Sentiment),
		"category":             string(record.Category),
		"detected_competitors": competitors,
		"has_auto_reply":       record.HasAutoReply(),
		"author_info":          authorInfo,
		"raw_metadata":         rawMetadata,
	}
}
