// internal/domain/models/user.go
package models

import "time"

// User mirrors an identity-provider account. The _id is the provider's user
// id, so it is a string rather than an ObjectID.
type User struct {
	ID             string    `bson:"_id" json:"_id"`
	Email          string    `bson:"email" json:"email"`
	FullName       string    `bson:"full_name" json:"full_name"`
	Username       string    `bson:"username,omitempty" json:"username,omitempty"`
	Bio            string    `bson:"bio,omitempty" json:"bio,omitempty"`
	ProfilePicture string    `bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`
	CoverPhoto     string    `bson:"cover_photo,omitempty" json:"cover_photo,omitempty"`
	Location       string    `bson:"location,omitempty" json:"location,omitempty"`
	Followers      []string  `bson:"followers" json:"followers"`
	Following      []string  `bson:"following" json:"following"`
	Connections    []string  `bson:"connections" json:"connections"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// Network returns the ids whose content appears in the user's feed: the
// user, their connections and everyone they follow, without duplicates.
func (u User) Network() []string {
	seen := map[string]bool{u.ID: true}
	out := []string{u.ID}
	for _, list := range [][]string{u.Connections, u.Following} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
