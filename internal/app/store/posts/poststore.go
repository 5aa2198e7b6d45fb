// internal/app/store/posts/poststore.go
package poststore

import (
	"context"
	"fmt"

	"github.com/dalemusser/socialhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FeedLimit caps the number of posts returned by Feed.
const FeedLimit = 50

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("posts")}
}

// Feed returns the newest posts written by any of userIDs, at most limit
// (FeedLimit when limit <= 0 or larger).
func (s *Store) Feed(ctx context.Context, userIDs []string, limit int64) ([]models.Post, error) {
	if limit <= 0 || limit > FeedLimit {
		limit = FeedLimit
	}
	if len(userIDs) == 0 {
		return []models.Post{}, nil
	}
	cur, err := s.c.Find(ctx,
		bson.M{"user": bson.M{"$in": userIDs}},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("find feed: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Post{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return out, nil
}
