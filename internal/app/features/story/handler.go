// internal/app/features/story/handler.go
package story

import (
	"context"
	"errors"
	"net/http"

	storystore "github.com/dalemusser/socialhub/internal/app/store/stories"
	userstore "github.com/dalemusser/socialhub/internal/app/store/users"
	"github.com/dalemusser/socialhub/internal/app/system/auth"
	"github.com/dalemusser/socialhub/internal/app/system/jsonerr"
	"github.com/dalemusser/socialhub/internal/app/system/respond"
	"github.com/dalemusser/socialhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	users   *userstore.Store
	stories *storystore.Store
	ErrLog  *jsonerr.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *jsonerr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		users:   userstore.New(db),
		stories: storystore.New(db),
		ErrLog:  errLog,
		Log:     logger,
	}
}

// ServeGet handles GET /api/story/get.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
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

	stories, err := h.stories.ForUsers(ctx, u.Network())
	if err != nil {
		h.ErrLog.Log(w, r, http.StatusInternalServerError, "failed to load stories", err)
		return
	}
	respond.OK(w, map[string]any{"stories": stories})
}
