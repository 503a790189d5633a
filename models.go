package main

type GarminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type StravaCodeRequest struct {
	Code string `json:"code"`
}

type StravaTokenRequest struct {
	Token string `json:"token"`
}

// APIResponse is the envelope every JSON endpoint returns. Data is only set
// on success, so a failure body never carries a partial list.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
