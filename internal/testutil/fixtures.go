package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/socialhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given provider id and email.
func (f *Fixtures) CreateUser(ctx context.Context, id, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:          id,
		Email:       email,
		FullName:    "Test " + id,
		Username:    id,
		Followers:   []string{},
		Following:   []string{},
		Connections: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("CreateUser: %v", err)
	}
	return u
}

// Connect records a mutual connection between a and b.
func (f *Fixtures) Connect(ctx context.Context, a, b string) {
	f.t.Helper()
	users := f.db.Collection("users")
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		_, err := users.UpdateByID(ctx, pair[0], bson.M{
			"$addToSet": bson.M{"connections": pair[1]},
		})
		if err != nil {
			f.t.Fatalf("Connect: %v", err)
		}
	}
}

// CreatePost inserts a text post by userID at the given time.
func (f *Fixtures) CreatePost(ctx context.Context, userID, content string, at time.Time) models.Post {
	f.t.Helper()
	p := models.Post{
		ID:         primitive.NewObjectID(),
		User:       userID,
		Content:    content,
		ImageURLs:  []string{},
		PostType:   models.PostText,
		LikesCount: []string{},
		CreatedAt:  at.UTC(),
	}
	if _, err := f.db.Collection("posts").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("CreatePost: %v", err)
	}
	return p
}

// CreateStory inserts a text story by userID at the given time.
func (f *Fixtures) CreateStory(ctx context.Context, userID, content string, at time.Time) models.Story {
	f.t.Helper()
	s := models.Story{
		ID:         primitive.NewObjectID(),
		User:       userID,
		Content:    content,
		MediaType:  "text",
		ViewsCount: []string{},
		CreatedAt:  at.UTC(),
	}
	if _, err := f.db.Collection("stories").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("CreateStory: %v", err)
	}
	return s
}

// CreateMessage inserts a text message from one user to another.
func (f *Fixtures) CreateMessage(ctx context.Context, from, to, text string, at time.Time) models.Message {
	f.t.Helper()
	m := models.Message{
		ID:          primitive.NewObjectID(),
		FromUserID:  from,
		ToUserID:    to,
		Text:        text,
		MessageType: "text",
		CreatedAt:   at.UTC(),
	}
	if _, err := f.db.Collection("messages").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("CreateMessage: %v", err)
	}
	return m
}
