package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"doorbell-core/middleware"
	"doorbell-core/models"
	"doorbell-core/session"
	"doorbell-core/utils"
)

const maxLoginBody = 512

type AuthHandler struct {
	Guard *session.Guard
}

func NewAuthHandler(g *session.Guard) *AuthHandler {
	return &AuthHandler{Guard: g}
}

// Login expects the attempt to have been charged by middleware.LoginRateLimit.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLoginBody))
	if err != nil || len(body) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var req models.LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			utils.WriteError(w, http.StatusBadRequest, "missing fields")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		if utils.MissingField(err) {
			utils.WriteError(w, http.StatusBadRequest, "missing fields")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, utils.ValidationErrorMessage(err))
		return
	}

	s, err := h.Guard.Authenticate(r.Context(), *req.Username, *req.Password)
	if err != nil {
		middleware.WriteSessionError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.LoginResponse{
		Token:   s.Token,
		User:    userInfo(s.User),
		Message: "Login successful",
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Guard.Logout(middleware.BearerToken(r)); err != nil {
		middleware.WriteSessionError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.LogoutResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// ValidateToken must be mounted behind middleware.RequireSession.
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, session.ErrNotLoggedIn.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.ValidateResponse{Valid: true, User: userInfo(user)})
}

func userInfo(u session.User) models.UserInfo {
	return models.UserInfo{Username: u.Username, Role: u.Role}
}
