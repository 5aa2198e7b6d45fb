package home

import (
	"io"
	"net/http"
)

// Liveness is the body served on GET /.
const Liveness = "Server is running"

// Handler answers the liveness check. It needs no database.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – liveness                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, Liveness)
}
