// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FromUserID  string             `bson:"from_user_id" json:"from_user_id"`
	ToUserID    string             `bson:"to_user_id" json:"to_user_id"`
	Text        string             `bson:"text,omitempty" json:"text,omitempty"`
	MessageType string             `bson:"message_type" json:"message_type"` // text | image
	MediaURL    string             `bson:"media_url,omitempty" json:"media_url,omitempty"`
	Seen        bool               `bson:"seen" json:"seen"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
