// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"fmt"

	"github.com/dalemusser/socialhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

func between(a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"from_user_id": a, "to_user_id": b},
		bson.M{"from_user_id": b, "to_user_id": a},
	}}
}

// Conversation returns every message exchanged between a and b, oldest first.
func (s *Store) Conversation(ctx context.Context, a, b string) ([]models.Message, error) {
	cur, err := s.c.Find(ctx, between(a, b),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return out, nil
}

// MarkSeen flags every unseen message sent from -> to as seen.
func (s *Store) MarkSeen(ctx context.Context, from, to string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"from_user_id": from, "to_user_id": to, "seen": false},
		bson.M{"$set": bson.M{"seen": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}
	return res.ModifiedCount, nil
}
