// internal/domain/models/story.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Story expires 24 hours after CreatedAt via a TTL index.
type Story struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User            string             `bson:"user" json:"user"`
	Content         string             `bson:"content,omitempty" json:"content,omitempty"`
	MediaURL        string             `bson:"media_url,omitempty" json:"media_url,omitempty"`
	MediaType       string             `bson:"media_type" json:"media_type"` // text | image | video
	BackgroundColor string             `bson:"background_color,omitempty" json:"background_color,omitempty"`
	ViewsCount      []string           `bson:"views_count" json:"views_count"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}
