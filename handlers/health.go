package handlers

import (
	"net/http"
	"time"

	"doorbell-core/models"
	"doorbell-core/utils"
	"doorbell-core/wifi"
)

// NetworkStatus is satisfied by *wifi.Manager.
type NetworkStatus interface {
	Mode() wifi.Mode
	State() wifi.State
	SSID() string
}

type HealthHandler struct {
	Network NetworkStatus
}

func NewHealthHandler(n NetworkStatus) *HealthHandler {
	return &HealthHandler{Network: n}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Mode:      h.Network.Mode().String(),
		State:     h.Network.State().String(),
		SSID:      h.Network.SSID(),
		Timestamp: time.Now().UTC(),
	})
}
