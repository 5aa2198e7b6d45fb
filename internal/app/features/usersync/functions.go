// Package usersync keeps the users collection in step with the identity
// provider. Its functions are served by the background-job webhook.
package usersync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	userstore "github.com/dalemusser/socialhub/internal/app/store/users"
	"github.com/dalemusser/socialhub/internal/app/system/jobs"
	"github.com/dalemusser/socialhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Event names emitted by the identity provider.
const (
	EventUserCreated = "clerk/user.created"
	EventUserUpdated = "clerk/user.updated"
	EventUserDeleted = "clerk/user.deleted"
)

var errNoUserID = errors.New("event carries no user id")

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// providerUser is the subset of the provider's user object we read.
type providerUser struct {
	ID                    string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
}

// primaryEmail prefers the address flagged primary, else the first one.
func (u providerUser) primaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID != "" && e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (u providerUser) profile() userstore.Profile {
	return userstore.Profile{
		ID:             u.ID,
		Email:          u.primaryEmail(),
		FullName:       strings.TrimSpace(u.FirstName + " " + u.LastName),
		ProfilePicture: u.ImageURL,
	}
}

func decode(ev jobs.Event) (providerUser, error) {
	var u providerUser
	if err := json.Unmarshal(ev.Data, &u); err != nil {
		return u, jobs.NoRetry(fmt.Errorf("decode %s: %w", ev.Name, err))
	}
	if u.ID == "" {
		return u, jobs.NoRetry(errNoUserID)
	}
	return u, nil
}

// Syncer owns the user-sync functions.
type Syncer struct {
	users *userstore.Store
	Log   *zap.Logger
}

func NewSyncer(db *mongo.Database, logger *zap.Logger) *Syncer {
	return &Syncer{users: userstore.New(db), Log: logger}
}

// Functions returns the job functions to register.
func (s *Syncer) Functions() []jobs.Function {
	return []jobs.Function{
		{ID: "sync-user-from-clerk", Name: "Sync user from Clerk", Trigger: EventUserCreated, Run: s.created},
		{ID: "update-user-from-clerk", Name: "Update user from Clerk", Trigger: EventUserUpdated, Run: s.updated},
		{ID: "delete-user-with-clerk", Name: "Delete user with Clerk", Trigger: EventUserDeleted, Run: s.deleted},
	}
}

func invalid(err error) error {
	if errors.Is(err, userstore.ErrMissingID) || errors.Is(err, userstore.ErrMissingEmail) {
		return jobs.NoRetry(err)
	}
	return err
}

func (s *Syncer) created(ctx context.Context, in jobs.Input) (any, error) {
	u, err := decode(in.Event)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	created, err := s.users.Sync(ctx, u.profile())
	if err != nil {
		return nil, invalid(err)
	}
	s.Log.Info("user synced", zap.String("user_id", u.ID), zap.Bool("created", created))
	return map[string]any{"user_id": u.ID, "created": created}, nil
}

// updated falls back to Sync when the user was never created locally, so a
// missed created event does not lose the account.
func (s *Syncer) updated(ctx context.Context, in jobs.Input) (any, error) {
	u, err := decode(in.Event)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	err = s.users.Update(ctx, u.profile())
	if errors.Is(err, userstore.ErrNotFound) {
		if _, err = s.users.Sync(ctx, u.profile()); err == nil {
			s.Log.Info("user created from update", zap.String("user_id", u.ID))
		}
	}
	if err != nil {
		return nil, invalid(err)
	}
	return map[string]any{"user_id": u.ID, "updated": true}, nil
}

func (s *Syncer) deleted(ctx context.Context, in jobs.Input) (any, error) {
	u, err := decode(in.Event)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	n, err := s.users.Delete(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.Log.Info("user deleted", zap.String("user_id", u.ID), zap.Int64("deleted", n))
	return map[string]any{"user_id": u.ID, "deleted": n}, nil
}
