package handlers

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"doorbell-core/middleware"
	"doorbell-core/models"
)

func postLogin(h *AuthHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Login(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body %q: %v", w.Body.String(), err)
	}
	return body.Error
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()
	h := NewAuthHandler(newTestGuard(t))

	w := postLogin(h, `{"username":"admin","password":"password123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp models.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := hex.DecodeString(resp.Token); err != nil || len(resp.Token) != 32 {
		t.Fatalf("token = %q", resp.Token)
	}
	if resp.User.Username != "admin" || resp.User.Role != "admin" || resp.Message != "Login successful" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestLoginRejectsBadInput(t *testing.T) {
	t.Parallel()
	h := NewAuthHandler(newTestGuard(t))

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{name: "empty", body: "", status: http.StatusBadRequest, msg: "invalid body"},
		{name: "not json", body: "{", status: http.StatusBadRequest, msg: "invalid json"},
		{name: "missing password", body: `{"username":"admin"}`, status: http.StatusBadRequest, msg: "missing fields"},
		{name: "number username", body: `{"username":1,"password":"x"}`, status: http.StatusBadRequest, msg: "missing fields"},
		{name: "long username", body: `{"username":"` + strings.Repeat("a", 32) + `","password":"x"}`, status: http.StatusBadRequest, msg: "invalid username"},
		{name: "multibyte username over 31 bytes", body: `{"username":"` + strings.Repeat("é", 16) + `","password":"x"}`, status: http.StatusBadRequest, msg: "invalid username"},
		{name: "oversized body", body: `{"username":"admin","password":"` + strings.Repeat("p", 600) + `"}`, status: http.StatusBadRequest, msg: "invalid body"},
		{name: "wrong password", body: `{"username":"admin","password":"nope"}`, status: http.StatusUnauthorized, msg: "invalid credentials"},
	}
	for _, tt := range tests {
		w := postLogin(h, tt.body)
		if w.Code != tt.status {
			t.Fatalf("%s: status = %d, want %d", tt.name, w.Code, tt.status)
		}
		if got := errorOf(t, w); got != tt.msg {
			t.Fatalf("%s: error = %q, want %q", tt.name, got, tt.msg)
		}
	}
}

func TestLogoutThenValidateFails(t *testing.T) {
	t.Parallel()
	g := newTestGuard(t)
	h := NewAuthHandler(g)

	var resp models.LoginResponse
	_ = json.Unmarshal(postLogin(h, `{"username":"admin","password":"password123"}`).Body.Bytes(), &resp)

	validate := middleware.RequireSession(g)(http.HandlerFunc(h.ValidateToken))
	check := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/validate-token", nil)
		req.Header.Set("Authorization", "Bearer "+resp.Token)
		w := httptest.NewRecorder()
		validate.ServeHTTP(w, req)
		return w
	}

	w := check()
	if w.Code != http.StatusOK {
		t.Fatalf("validate status = %d, want %d", w.Code, http.StatusOK)
	}
	var vr models.ValidateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &vr); err != nil || !vr.Valid || vr.User.Username != "admin" {
		t.Fatalf("validate response = %+v, %v", vr, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	lw := httptest.NewRecorder()
	h.Logout(lw, req)
	if lw.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want %d", lw.Code, http.StatusOK)
	}
	var lr models.LogoutResponse
	if err := json.Unmarshal(lw.Body.Bytes(), &lr); err != nil || !lr.Success {
		t.Fatalf("logout response = %+v, %v", lr, err)
	}

	if w := check(); w.Code != http.StatusUnauthorized {
		t.Fatalf("validate after logout status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	t.Parallel()
	h := NewAuthHandler(newTestGuard(t))

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	w := httptest.NewRecorder()
	h.Logout(w, req)
	if w.Code != http.StatusUnauthorized || errorOf(t, w) != "not logged in" {
		t.Fatalf("logout = %d %q", w.Code, w.Body.String())
	}
}
