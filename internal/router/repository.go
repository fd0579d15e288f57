package router

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"insightstream/internal/constants"
)

// RoutingRule is an operator-defined dispatch rule: a CEL predicate over the
// enriched record plus the action tag to attach when it matches.
type RoutingRule struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	Expression string    `bson:"expression"`
	Tag        string    `bson:"tag"`
	Enabled    bool      `bson:"enabled"`
	Priority   int       `bson:"priority"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

type RuleRepository interface {
	GetActiveRules(ctx context.Context) ([]RoutingRule, error)
}

type MongoDBRuleRepository struct {
	collection *mongo.Collection
}

func NewRuleRepository(db *mongo.Database) RuleRepository {
	return &MongoDBRuleRepository{
		collection: db.Collection(constants.RoutingRulesCollection),
	}
}

func (r *MongoDBRuleRepository) GetActiveRules(ctx context.Context) ([]RoutingRule, error) {
	filter := bson.M{"enabled": true}
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find routing rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []RoutingRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode routing rules: %w", err)
	}

	return rules, nil
}
