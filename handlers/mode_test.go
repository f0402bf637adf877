package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"doorbell-core/models"
	"doorbell-core/storage"
)

func getMode(t *testing.T, h *ModeHandler) string {
	t.Helper()
	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/api/mode", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp models.ModeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp.Mode
}

func TestModeDefaultsAndPersists(t *testing.T) {
	t.Parallel()
	store := storage.NewMemoryStore()
	h := NewModeHandler(store)

	if got := getMode(t, h); got != DefaultMode {
		t.Fatalf("mode = %q, want %q", got, DefaultMode)
	}

	w := httptest.NewRecorder()
	h.Set(w, httptest.NewRequest(http.MethodPost, "/api/mode", strings.NewReader(`{"mode":"NIGHT"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("POST status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp models.ModeUpdateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Status != "ok" || resp.Mode != "NIGHT" {
		t.Fatalf("POST response = %+v, %v", resp, err)
	}

	if got := getMode(t, NewModeHandler(store)); got != "NIGHT" {
		t.Fatalf("mode after restart = %q, want NIGHT", got)
	}
}

func TestModeRejectsBadInput(t *testing.T) {
	t.Parallel()
	h := NewModeHandler(storage.NewMemoryStore())

	for _, body := range []string{`{`, `{}`, `{"mode":"` + strings.Repeat("m", 32) + `"}`, `{"mode":"` + strings.Repeat("ü", 16) + `"}`} {
		w := httptest.NewRecorder()
		h.Set(w, httptest.NewRequest(http.MethodPost, "/api/mode", strings.NewReader(body)))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q status = %d, want %d", body, w.Code, http.StatusBadRequest)
		}
	}
	if got := getMode(t, h); got != DefaultMode {
		t.Fatalf("mode = %q, want unchanged default", got)
	}
}
