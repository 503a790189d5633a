package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"runimate-gateway/internal/aggregate"
	"runimate-gateway/internal/garmin"
	"runimate-gateway/internal/provider"
	"runimate-gateway/internal/strava"
)

const (
	stravaCallbackPath = "/api/strava/callback"

	// Page sizes for the two Strava modes.
	stravaCombinedPageSize = 20
	stravaTokenPageSize    = 30

	maxBodyBytes = 1 << 20
)

type server struct {
	activities  *aggregate.Service
	strava      *strava.Client
	frontendURL string
}

func newRouter(s *server) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.home).Methods("GET")
	r.HandleFunc("/healthz", s.health).Methods("GET")
	r.HandleFunc("/api/garmin", s.garminActivities).Methods("POST")
	r.HandleFunc("/api/strava", s.stravaCombined).Methods("POST")
	r.HandleFunc("/api/strava/login", s.stravaLogin).Methods("GET")
	r.HandleFunc(stravaCallbackPath, s.stravaCallback).Methods("GET")
	r.HandleFunc("/api/strava/activities", s.stravaActivities).Methods("POST")

	return r
}

// newHandler wraps the router with CORS, logging and panic recovery.
func newHandler(s *server, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(loggingMiddleware(recoverMiddleware(newRouter(s))))
}

func (s *server) home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Runimate Server is Running!"))
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *server) garminActivities(w http.ResponseWriter, r *http.Request) {
	var req GarminLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	creds := provider.Credentials{Email: req.Email, Password: req.Password}
	s.respondActivities(w, r, provider.Garmin, creds, garmin.DefaultPageSize)
}

func (s *server) stravaCombined(w http.ResponseWriter, r *http.Request) {
	if !s.requireStrava(w) {
		return
	}
	var req StravaCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	creds := provider.Credentials{AuthorizationCode: req.Code}
	s.respondActivities(w, r, provider.Strava, creds, stravaCombinedPageSize)
}

func (s *server) stravaActivities(w http.ResponseWriter, r *http.Request) {
	var req StravaTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	creds := provider.Credentials{AccessToken: req.Token}
	s.respondActivities(w, r, provider.Strava, creds, stravaTokenPageSize)
}

func (s *server) stravaLogin(w http.ResponseWriter, r *http.Request) {
	if s.strava == nil || !s.strava.Configured() {
		http.Error(w, "Strava login is not configured", http.StatusServiceUnavailable)
		return
	}
	redirectURI := strava.RedirectURI(r.Host, stravaCallbackPath)
	authURL, err := s.strava.AuthCodeURL(redirectURI)
	if err != nil {
		log.Printf("Strava authorize unavailable: %v", err)
		http.Error(w, "Strava login is not configured", http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *server) stravaCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		log.Printf("Strava authorization denied: %s", e)
		http.Error(w, "Strava authorization was denied", http.StatusBadRequest)
		return
	}
	if s.frontendURL == "" {
		http.Error(w, "Frontend redirect is not configured", http.StatusServiceUnavailable)
		return
	}
	target, err := url.Parse(s.frontendURL)
	if err != nil {
		http.Error(w, "Frontend redirect is not configured", http.StatusServiceUnavailable)
		return
	}

	token, err := s.strava.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		msg := "Strava token exchange failed"
		if d := provider.Detail(err); d != "" {
			msg += ": " + d
		}
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	tq := target.Query()
	tq.Set("token", token)
	target.RawQuery = tq.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *server) respondActivities(w http.ResponseWriter, r *http.Request, tag provider.Tag, creds provider.Credentials, limit int) {
	activities, err := s.activities.Fetch(r.Context(), tag, creds, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: activities})
}

func (s *server) requireStrava(w http.ResponseWriter) bool {
	if s.strava != nil && s.strava.Configured() {
		return true
	}
	writeJSON(w, http.StatusServiceUnavailable, APIResponse{Success: false, Message: "Strava is not configured"})
	return false
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "invalid request body", Error: err.Error()})
		return false
	}
	return true
}

// writeError maps the provider error taxonomy onto a failure response.
func writeError(w http.ResponseWriter, err error) {
	resp := APIResponse{Success: false}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, provider.ErrInvalidCredentials):
		status = http.StatusBadRequest
		resp.Message = provider.Detail(err)
		if resp.Message == "" {
			resp.Message = "invalid credentials"
		}
	case errors.Is(err, provider.ErrUnknownProvider):
		status = http.StatusBadRequest
		resp.Message = "unknown provider"
	case errors.Is(err, provider.ErrTokenExchange):
		status = http.StatusUnauthorized
		resp.Message = "token exchange failed"
		resp.Error = provider.Detail(err)
	case errors.Is(err, provider.ErrAuth):
		status = http.StatusUnauthorized
		resp.Message = "login failed or provider server error"
	case errors.Is(err, provider.ErrFetch):
		status = http.StatusBadGateway
		resp.Message = "failed to fetch activities"
		resp.Error = provider.Detail(err)
	default:
		log.Printf("Unhandled error: %v", err)
		resp.Message = "internal server error"
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
