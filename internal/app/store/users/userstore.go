// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dalemusser/socialhub/internal/app/system/normalize"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/socialhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrMissingID    = errors.New("user id is required")
	ErrMissingEmail = errors.New("user email is required")
)

// maxUsernameAttempts bounds how many suffixed handles are tried.
const maxUsernameAttempts = 5

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Profile is the identity-provider view of a user.
type Profile struct {
	ID             string
	Email          string
	FullName       string
	ProfilePicture string
}

func (p Profile) normalized() (Profile, error) {
	p.Email = normalize.Email(p.Email)
	p.FullName = normalize.Name(p.FullName)
	if p.ID == "" {
		return p, ErrMissingID
	}
	if p.Email == "" {
		return p, ErrMissingEmail
	}
	return p, nil
}

// GetByID loads a user by provider id. Returns ErrNotFound if absent.
func (s *Store) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Sync creates the user if missing, otherwise refreshes the provider-owned
// fields. A new user gets a username derived from the email, suffixed with
// random digits when the plain handle is taken. Reports whether a document
// was inserted.
func (s *Store) Sync(ctx context.Context, p Profile) (bool, error) {
	p, err := p.normalized()
	if err != nil {
		return false, err
	}

	base := normalize.Username(p.Email)
	if base == "" {
		base = "user"
	}
	candidate := base
	now := time.Now().UTC()

	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		set := bson.M{
			"email":      p.Email,
			"full_name":  p.FullName,
			"updated_at": now,
		}
		if p.ProfilePicture != "" {
			set["profile_picture"] = p.ProfilePicture
		}
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": p.ID},
			bson.M{
				"$set": set,
				"$setOnInsert": bson.M{
					"username":    candidate,
					"followers":   []string{},
					"following":   []string{},
					"connections": []string{},
					"created_at":  now,
				},
			},
			options.Update().SetUpsert(true),
		)
		if err == nil {
			return res.UpsertedCount > 0, nil
		}
		if !wafflemongo.IsDup(err) {
			return false, fmt.Errorf("sync user %s: %w", p.ID, err)
		}
		taken, lookupErr := s.usernameTaken(ctx, candidate, p.ID)
		if lookupErr != nil {
			return false, fmt.Errorf("sync user %s: %w", p.ID, lookupErr)
		}
		if !taken {
			// The conflict was on email, not the handle.
			return false, fmt.Errorf("sync user %s: %w", p.ID, err)
		}
		candidate = fmt.Sprintf("%s%d", base, rand.IntN(10000))
	}
	return false, fmt.Errorf("sync user %s: no free username for %q", p.ID, base)
}

func (s *Store) usernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"username": username,
		"_id":      bson.M{"$ne": exceptID},
	}, options.Count().SetLimit(1))
	return n > 0, err
}

// Update refreshes the provider-owned fields of an existing user.
// Returns ErrNotFound if the user does not exist.
func (s *Store) Update(ctx context.Context, p Profile) error {
	p, err := p.normalized()
	if err != nil {
		return err
	}
	set := bson.M{
		"email":      p.Email,
		"full_name":  p.FullName,
		"updated_at": time.Now().UTC(),
	}
	if p.ProfilePicture != "" {
		set["profile_picture"] = p.ProfilePicture
	}
	res, err := s.c.UpdateByID(ctx, p.ID, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user %s: %w", p.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user by id and returns the number of documents removed.
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	if id == "" {
		return 0, ErrMissingID
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("delete user %s: %w", id, err)
	}
	return res.DeletedCount, nil
}
