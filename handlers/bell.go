package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"doorbell-core/device"
	"doorbell-core/models"
	"doorbell-core/utils"
)

type BellHandler struct {
	Bell *device.Bell
}

func NewBellHandler(b *device.Bell) *BellHandler {
	return &BellHandler{Bell: b}
}

func (h *BellHandler) Status(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, models.BellStatusResponse{Ringing: h.Bell.Ringing()})
}

func (h *BellHandler) Ring(w http.ResponseWriter, r *http.Request) {
	var req models.BellRingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 128)).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ValidationErrorMessage(err))
		return
	}

	err := h.Bell.RingAsync(time.Duration(req.DurationMS) * time.Millisecond)
	switch {
	case errors.Is(err, device.ErrBellBusy):
		utils.WriteError(w, http.StatusConflict, "bell already ringing")
		return
	case err != nil:
		utils.WriteError(w, http.StatusServiceUnavailable, "bell unavailable")
		return
	}
	utils.WriteJSON(w, http.StatusAccepted, models.BellRingResponse{Status: "ringing", DurationMS: req.DurationMS})
}
