package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"insightstream/internal/analyzer"
	"insightstream/internal/constants"
)

func TestLexiconRepositoryDefaultsWhenEmpty(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := analyzer.NewLexiconRepository(infra.MongoDB)

	lexicon, err := repo.GetLexicon(context.Background())
	require.NoError(t, err)
	assert.Equal(t, analyzer.DefaultLexicon(), lexicon)
}

func TestLexiconRepositoryMergesEnabledTables(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	ctx := context.Background()
	collection := infra.MongoDB.Collection(constants.LexiconCollection)

	_, err := collection.InsertMany(ctx, []interface{}{
		bson.M{"table": "competitors", "keywords": []string{"rivalware", "competex"}, "enabled": true, "priority": 1},
		bson.M{"table": "bug_keywords", "keywords": []string{"broken", "freezes"}, "enabled": true, "priority": 1},
		bson.M{"table": "feature_keywords", "keywords": []string{"wishlist"}, "enabled": false, "priority": 1},
	})
	require.NoError(t, err)

	repo := analyzer.NewLexiconRepository(infra.MongoDB)
	lexicon, err := repo.GetLexicon(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"rivalware", "competex"}, lexicon.Competitors)
	assert.Equal(t, []string{"broken", "freezes"}, lexicon.BugKeywords)
	// Disabled table falls back to the defaults.
	assert.Equal(t, analyzer.DefaultLexicon().FeatureKeywords, lexicon.FeatureKeywords)
}
