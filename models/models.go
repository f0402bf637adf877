package models

import "time"

// LoginRequest fields are pointers so an absent field is distinguishable
// from an empty string.
type LoginRequest struct {
	Username *string `json:"username" validate:"required,maxbytes=31"`
	Password *string `json:"password" validate:"required,maxbytes=64"`
}

type UserInfo struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type LoginResponse struct {
	Token   string   `json:"token"`
	User    UserInfo `json:"user"`
	Message string   `json:"message"`
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ValidateResponse struct {
	Valid bool     `json:"valid"`
	User  UserInfo `json:"user"`
}

type ModeRequest struct {
	Mode string `json:"mode" validate:"required,maxbytes=31"`
}

type ModeResponse struct {
	Mode string `json:"mode"`
}

type ModeUpdateResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// WiFiConfigForm is the AP-mode credential form. An empty password selects
// an open network.
type WiFiConfigForm struct {
	SSID     string `form:"ssid" validate:"required,maxbytes=32"`
	Password string `form:"password" validate:"maxbytes=64"`
}

type BellRingRequest struct {
	DurationMS int64 `json:"duration_ms" validate:"required,min=1,max=10000"`
}

type BellStatusResponse struct {
	Ringing bool `json:"ringing"`
}

type BellRingResponse struct {
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Mode      string    `json:"mode"`
	State     string    `json:"state"`
	SSID      string    `json:"ssid"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
