package userstore_test

import (
	"errors"
	"strings"
	"testing"

	userstore "github.com/dalemusser/socialhub/internal/app/store/users"
	"github.com/dalemusser/socialhub/internal/app/system/indexes"
	"github.com/dalemusser/socialhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) (*userstore.Store, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return userstore.New(db), db
}

func TestStore_Sync_Creates(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Sync(ctx, userstore.Profile{
		ID:       "user_1",
		Email:    "  Jane.Doe@Example.com ",
		FullName: " Jane   Doe ",
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}

	u, err := store.GetByID(ctx, "user_1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if u.Email != "jane.doe@example.com" {
		t.Errorf("email not normalized: %q", u.Email)
	}
	if u.FullName != "Jane Doe" {
		t.Errorf("name not normalized: %q", u.FullName)
	}
	if u.Username != "jane.doe" {
		t.Errorf("username = %q, want jane.doe", u.Username)
	}
	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if u.Followers == nil || u.Connections == nil {
		t.Error("expected empty relationship arrays, got nil")
	}
}

func TestStore_Sync_Idempotent(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := userstore.Profile{ID: "user_1", Email: "a@example.com", FullName: "A"}
	if _, err := store.Sync(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.FullName = "A Renamed"
	created, err := store.Sync(ctx, p)
	if err != nil {
		t.Fatalf("second Sync failed: %v", err)
	}
	if created {
		t.Error("expected created=false on replay")
	}
	u, _ := store.GetByID(ctx, "user_1")
	if u.FullName != "A Renamed" || u.Username != "a" {
		t.Errorf("unexpected user after replay: %+v", u)
	}
}

func TestStore_Sync_UsernameTaken(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Sync(ctx, userstore.Profile{ID: "u1", Email: "sam@one.com", FullName: "Sam"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Sync(ctx, userstore.Profile{ID: "u2", Email: "sam@two.com", FullName: "Sam"}); err != nil {
		t.Fatalf("Sync with taken handle failed: %v", err)
	}
	u, err := store.GetByID(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if u.Username == "sam" || !strings.HasPrefix(u.Username, "sam") {
		t.Errorf("expected suffixed username, got %q", u.Username)
	}
}

func TestStore_Sync_Validates(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Sync(ctx, userstore.Profile{Email: "a@b.c"}); !errors.Is(err, userstore.ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
	if _, err := store.Sync(ctx, userstore.Profile{ID: "x", Email: "  "}); !errors.Is(err, userstore.ErrMissingEmail) {
		t.Errorf("expected ErrMissingEmail, got %v", err)
	}
}

func TestStore_Update(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Update(ctx, userstore.Profile{ID: "ghost", Email: "g@example.com"})
	if !errors.Is(err, userstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := store.Sync(ctx, userstore.Profile{ID: "u1", Email: "a@example.com", FullName: "A"}); err != nil {
		t.Fatal(err)
	}
	err = store.Update(ctx, userstore.Profile{
		ID: "u1", Email: "new@example.com", FullName: "New Name", ProfilePicture: "https://img/x.png",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	u, _ := store.GetByID(ctx, "u1")
	if u.Email != "new@example.com" || u.FullName != "New Name" || u.ProfilePicture != "https://img/x.png" {
		t.Errorf("unexpected user after update: %+v", u)
	}
	if u.Username != "a" {
		t.Errorf("update should not touch username, got %q", u.Username)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Sync(ctx, userstore.Profile{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatal(err)
	}
	n, err := store.Delete(ctx, "u1")
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	n, err = store.Delete(ctx, "u1")
	if err != nil || n != 0 {
		t.Fatalf("second Delete = %d, %v", n, err)
	}
	if _, err := store.GetByID(ctx, "u1"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
