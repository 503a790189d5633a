package main

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// loggingMiddleware logs one line per request. Bodies are never logged since
// they carry passwords, codes and tokens.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Printf("RES: %d - %s %s - %v [%s]", wrapper.statusCode, r.Method, r.URL.Path, time.Since(start), id)
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// recoverMiddleware turns a handler panic into a JSON 500.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				log.Printf("Panic recovered: %s %s: %v", r.Method, r.URL.Path, err)
				writeJSON(w, http.StatusInternalServerError, APIResponse{Success: false, Message: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
