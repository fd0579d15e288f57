package analyzer

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"insightstream/internal/constants"
)

type LexiconRepository interface {
	GetLexicon(ctx context.Context) (Lexicon, error)
}

type lexiconDocument struct {
	Table    string   `bson:"table"`
	Keywords []string `bson:"keywords"`
	Enabled  bool     `bson:"enabled"`
	Priority int      `bson:"priority"`
}

const (
	tableCompetitors = "competitors"
	tableBugKeywords = "bug_keywords"
	tableFeatures    = "feature_keywords"
)

type MongoDBLexiconRepository struct {
	collection *mongo.Collection
}

func NewLexiconRepository(db *mongo.Database) LexiconRepository {
	return &MongoDBLexiconRepository{
		collection: db.Collection(constants.LexiconCollection),
	}
}

// GetLexicon assembles the keyword tables from enabled lexicon documents.
// Tables absent from the store fall back to the built-in defaults so a
// partially seeded database never disables a classification rule.
func (r *MongoDBLexiconRepository) GetLexicon(ctx context.Context) (Lexicon, error) {
	filter := bson.M{"enabled": true}
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return Lexicon{}, fmt.Errorf("failed to find lexicon documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []lexiconDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return Lexicon{}, fmt.Errorf("failed to decode lexicon documents: %w", err)
	}

	lexicon := DefaultLexicon()
	for _, doc := range docs {
		switch doc.Table {
		case tableCompetitors:
			lexicon.Competitors = doc.Keywords
		case tableBugKeywords:
			lexicon.BugKeywords = doc.Keywords
		case tableFeatures:
			lexicon.FeatureKeywords = doc.Keywords
		}
	}

	return lexicon, nil
}
