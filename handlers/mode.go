package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"doorbell-core/apperr"
	"doorbell-core/models"
	"doorbell-core/storage"
	"doorbell-core/utils"
)

const (
	DefaultMode = "AUTO"

	modeNamespace = "app"
	modeKey       = "mode"
	maxModeBody   = 128
)

// ModeHandler serves the application mode value, persisted in the "app"
// namespace so it survives a restart.
type ModeHandler struct {
	Store storage.Store
	mu    sync.Mutex
}

func NewModeHandler(store storage.Store) *ModeHandler {
	return &ModeHandler{Store: store}
}

func (h *ModeHandler) load(ctx context.Context) (string, error) {
	hd, err := h.Store.Open(ctx, modeNamespace)
	if err != nil {
		return "", err
	}
	defer hd.Close()

	mode, err := hd.GetString(ctx, modeKey)
	if errors.Is(err, apperr.ErrNotFound) {
		return DefaultMode, nil
	}
	return mode, err
}

func (h *ModeHandler) save(ctx context.Context, mode string) error {
	hd, err := h.Store.Open(ctx, modeNamespace)
	if err != nil {
		return err
	}
	defer hd.Close()

	if err := hd.SetString(ctx, modeKey, mode); err != nil {
		return err
	}
	return hd.Commit(ctx)
}

func (h *ModeHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	mode, err := h.load(r.Context())
	h.mu.Unlock()
	if err != nil {
		slog.Error("reading mode failed", slog.String("err", err.Error()))
		utils.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.ModeResponse{Mode: mode})
}

func (h *ModeHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req models.ModeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxModeBody)).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ValidationErrorMessage(err))
		return
	}

	h.mu.Lock()
	err := h.save(r.Context(), req.Mode)
	h.mu.Unlock()
	if err != nil {
		slog.Error("saving mode failed", slog.String("err", err.Error()))
		utils.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.ModeUpdateResponse{Status: "ok", Mode: req.Mode})
}
