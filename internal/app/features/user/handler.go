// internal/app/features/user/handler.go
package user

import (
	"context"
	"errors"
	"net/http"

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
	ErrLog *jsonerr.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *jsonerr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		users:  userstore.New(db),
		ErrLog: errLog,
		Log:    logger,
	}
}

// ServeData handles GET /api/user/data: the caller's own user document.
func (h *Handler) ServeData(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
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
	respond.OK(w, map[string]any{"user": u})
}
