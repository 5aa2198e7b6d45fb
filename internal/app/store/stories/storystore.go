// internal/app/store/stories/storystore.go
package storystore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/socialhub/internal/app/system/indexes"
	"github.com/dalemusser/socialhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("stories"), now: time.Now}
}

// ForUsers returns live stories by any of userIDs, newest first. The TTL
// monitor only runs once a minute, so expired stories are filtered here too.
func (s *Store) ForUsers(ctx context.Context, userIDs []string) ([]models.Story, error) {
	if len(userIDs) == 0 {
		return []models.Story{}, nil
	}
	cutoff := s.now().UTC().Add(-indexes.StoryTTL)
	cur, err := s.c.Find(ctx,
		bson.M{
			"user":       bson.M{"$in": userIDs},
			"created_at": bson.M{"$gt": cutoff},
		},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find stories: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Story{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode stories: %w", err)
	}
	return out, nil
}
