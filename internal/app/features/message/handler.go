// internal/app/features/message/handler.go
package message

import (
	"context"
	"net/http"
	"strings"

	messagestore "github.com/dalemusser/socialhub/internal/app/store/messages"
	"github.com/dalemusser/socialhub/internal/app/system/auth"
	"github.com/dalemusser/socialhub/internal/app/system/jsonerr"
	"github.com/dalemusser/socialhub/internal/app/system/respond"
	"github.com/dalemusser/socialhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	messages *messagestore.Store
	ErrLog   *jsonerr.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *jsonerr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		messages: messagestore.New(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}

// ServeConversation handles GET /api/message/{userID}. Messages the other
// user sent to the caller are marked seen before the thread is returned.
func (h *Handler) ServeConversation(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)
	other := strings.TrimSpace(chi.URLParam(r, "userID"))
	if other == "" {
		respond.Fail(w, http.StatusBadRequest, "userID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.messages.MarkSeen(ctx, other, id.UserID); err != nil {
		h.ErrLog.Log(w, r, http.StatusInternalServerError, "failed to update messages", err)
		return
	}
	msgs, err := h.messages.Conversation(ctx, id.UserID, other)
	if err != nil {
		h.ErrLog.Log(w, r, http.StatusInternalServerError, "failed to load messages", err)
		return
	}
	respond.OK(w, map[string]any{"messages": msgs})
}
