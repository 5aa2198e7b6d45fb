package respond_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/socialhub/internal/app/system/respond"
)

func TestOK_SuccessWins(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.OK(rec, map[string]any{"user": "u1", "success": false})

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || body["success"] != true || body["user"] != "u1" {
		t.Errorf("got %d %v", rec.Code, body)
	}
}

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.Fail(rec, http.StatusNotFound, "User not found")

	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusNotFound || body["success"] != false || body["message"] != "User not found" {
		t.Errorf("got %d %v", rec.Code, body)
	}
}
