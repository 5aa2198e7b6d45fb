// Package respond writes the {"success": ...} envelope used by the API routers.
package respond

import (
	"encoding/json"
	"net/http"
)

// OK writes 200 with {"success": true} merged with fields.
func OK(w http.ResponseWriter, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	write(w, http.StatusOK, body)
}

// Fail writes status with {"success": false, "message": msg}.
func Fail(w http.ResponseWriter, status int, msg string) {
	write(w, status, map[string]any{"success": false, "message": msg})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
