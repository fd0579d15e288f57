package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"insightstream/internal/constants"
	"insightstream/internal/router"
)

func TestRuleRepositoryReturnsEnabledRulesInPriorityOrder(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	ctx := context.Background()
	collection := infra.MongoDB.Collection(constants.RoutingRulesCollection)

	_, err := collection.InsertMany(ctx, []interface{}{
		bson.M{"_id": "rule-b", "name": "second", "expression": `sentiment == "negative"`, "tag": "escalation", "enabled": true, "priority": 2},
		bson.M{"_id": "rule-a", "name": "first", "expression": `sentiment == "positive"`, "tag": "praise_log", "enabled": true, "priority": 1},
		bson.M{"_id": "rule-c", "name": "disabled", "expression": `true`, "tag": "noop", "enabled": false, "priority": 0},
	})
	require.NoError(t, err)

	repo := router.NewRuleRepository(infra.MongoDB)
	rules, err := repo.GetActiveRules(ctx)
	require.NoError(t, err)

	require.Len(t, rules, 2)
	assert.Equal(t, "rule-a", rules[0].ID)
	assert.Equal(t, "rule-b", rules[1].ID)
}

func TestRuleRepositoryEmpty(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	repo := router.NewRuleRepository(infra.MongoDB)
	rules, err := repo.GetActiveRules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rules)
}
