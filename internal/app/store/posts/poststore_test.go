package poststore_test

import (
	"testing"
	"time"

	poststore "github.com/dalemusser/socialhub/internal/app/store/posts"
	"github.com/dalemusser/socialhub/internal/testutil"
)

func TestStore_Feed_FiltersAndOrders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := poststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().Add(-time.Hour)
	fx.CreatePost(ctx, "me", "old", base)
	fx.CreatePost(ctx, "friend", "newer", base.Add(time.Minute))
	fx.CreatePost(ctx, "stranger", "hidden", base.Add(2*time.Minute))

	posts, err := store.Feed(ctx, []string{"me", "friend"}, 0)
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].Content != "newer" || posts[1].Content != "old" {
		t.Errorf("expected newest first, got %q then %q", posts[0].Content, posts[1].Content)
	}
}

func TestStore_Feed_Limit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := poststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < poststore.FeedLimit+5; i++ {
		fx.CreatePost(ctx, "me", "p", base.Add(time.Duration(i)*time.Second))
	}

	posts, err := store.Feed(ctx, []string{"me"}, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != poststore.FeedLimit {
		t.Errorf("expected %d posts, got %d", poststore.FeedLimit, len(posts))
	}

	posts, _ = store.Feed(ctx, []string{"me"}, 3)
	if len(posts) != 3 {
		t.Errorf("expected 3 posts, got %d", len(posts))
	}
}

func TestStore_Feed_NoUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := poststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	posts, err := store.Feed(ctx, nil, 10)
	if err != nil || posts == nil || len(posts) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v, %v", posts, err)
	}
}
