// internal/domain/models/post.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post types.
const (
	PostText          = "text"
	PostImage         = "image"
	PostTextWithImage = "text_with_image"
)

type Post struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User       string             `bson:"user" json:"user"`
	Content    string             `bson:"content,omitempty" json:"content,omitempty"`
	ImageURLs  []string           `bson:"image_urls" json:"image_urls"`
	PostType   string             `bson:"post_type" json:"post_type"`
	LikesCount []string           `bson:"likes_count" json:"likes_count"` // ids of users who liked
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
