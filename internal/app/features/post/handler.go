// internal/app/features/post/handler.go
package post

import (
	"context"
	"errors"
	"net/http"

	poststore "github.com/dalemusser/socialhub/internal/app/store/posts"
	userstore "github.com/dalemusser/socialhub/internal/app/store/users"
	"github.com/dalemusser/socialhub/internal/app/system/auth"
	"github.com/dalemusser/socialhub/internal/app/system/jsonerr"
	"github.com/dalemusser/socialhub/internal/app/system/respond"
	"github.com/dalemusser/socialhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	users  *userstore.Store
	posts  *poststore.Store
	ErrLog *jsonerr.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *jsonerr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		users:  userstore.New(db),
		posts:  poststore.New(db),
		ErrLog: errLog,
		Log:    logger,
	}
}

// ServeFeed handles GET /api/post/feed: the newest posts by the caller,
// their connections and the users they follow.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.users.GetByID(ctx, id.UserID)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.Fail(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.ErrLog.Log(w, r, http.StatusInternalServerError, "failed to load user", err)
		return
	}

	posts, err := h.posts.Feed(ctx, u.Network(), poststore.FeedLimit)
	if err != nil {
		h.ErrLog.Log(w, r, http.StatusInternalServerError, "failed to load feed", err)
		return
	}
	respond.OK(w, map[string]any{"posts": posts})
}
