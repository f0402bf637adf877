package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"doorbell-core/apperr"
	"doorbell-core/device"
	"doorbell-core/models"
	"doorbell-core/storage"
	"doorbell-core/utils"
	"doorbell-core/wifi"
)

const maxFormBody = 256

const wifiConfigPage = `<!DOCTYPE html>
<html>
<head><meta name="viewport" content="width=device-width, initial-scale=1"><title>Doorbell setup</title></head>
<body>
<h2>WiFi Configuration</h2>
<form action="/wifi_config" method="post">
SSID:<br>
<input type="text" name="ssid" maxlength="32"><br>
Password:<br>
<input type="password" name="password" maxlength="64"><br><br>
<input type="submit" value="Save">
</form>
</body>
</html>
`

// WiFiConfigHandler is the setup-mode credential form. A successful save
// restarts the device so the next boot joins the new network.
type WiFiConfigHandler struct {
	Store        storage.Store
	Restarter    device.Restarter
	RestartDelay time.Duration
}

func NewWiFiConfigHandler(store storage.Store, r device.Restarter, delay time.Duration) *WiFiConfigHandler {
	return &WiFiConfigHandler{Store: store, Restarter: r, RestartDelay: delay}
}

func (h *WiFiConfigHandler) Form(w http.ResponseWriter, r *http.Request) {
	utils.WriteText(w, http.StatusOK, "text/html", wifiConfigPage)
}

func (h *WiFiConfigHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid form")
		return
	}
	if _, ok := r.PostForm["ssid"]; !ok {
		utils.WriteError(w, http.StatusBadRequest, "missing ssid")
		return
	}

	form := models.WiFiConfigForm{
		SSID:     r.PostForm.Get("ssid"),
		Password: r.PostForm.Get("password"),
	}
	if err := utils.ValidateStruct(&form); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ValidationErrorMessage(err))
		return
	}

	creds := wifi.Credentials{SSID: form.SSID, Password: form.Password}
	if err := wifi.SaveCredentials(r.Context(), h.Store, creds); err != nil {
		if errors.Is(err, apperr.ErrInvalidParam) {
			utils.WriteError(w, http.StatusBadRequest, "invalid credentials")
			return
		}
		slog.Error("saving credentials failed", slog.String("err", err.Error()))
		utils.WriteError(w, http.StatusInternalServerError, "failed to save credentials")
		return
	}

	slog.Info("credentials saved from setup form", slog.String("ssid", creds.SSID))
	utils.WriteText(w, http.StatusOK, "text/plain", "Credentials saved. Restarting...")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	time.AfterFunc(h.RestartDelay, func() {
		h.Restarter.Restart("wifi_config")
	})
}
