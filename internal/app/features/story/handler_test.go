package story_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/socialhub/internal/app/features/story"
	"github.com/dalemusser/socialhub/internal/app/system/jsonerr"
	"github.com/dalemusser/socialhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRouter(db *mongo.Database) http.Handler {
	logger := zap.NewNop()
	return story.Routes(story.NewHandler(db, jsonerr.NewErrorLogger(logger), logger))
}

func TestServeGet_RequiresSignIn(t *testing.T) {
	rec := testutil.NewRecorder()
	newRouter(testutil.OfflineDB(t)).ServeHTTP(rec, httptest.NewRequest("GET", "/get", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestServeGet_LiveStoriesOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateUser(ctx, "me", "me@example.com")
	now := time.Now()
	fx.CreateStory(ctx, "me", "today", now.Add(-time.Hour))
	fx.CreateStory(ctx, "me", "yesterday", now.Add(-30*time.Hour))

	rec := testutil.NewRecorder()
	newRouter(db).ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/get", "me"))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Stories []struct {
			Content string `json:"content"`
		} `json:"stories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Stories) != 1 || body.Stories[0].Content != "today" {
		t.Errorf("unexpected stories: %s", rec.Body.String())
	}
}
