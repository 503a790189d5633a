package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cli/browser"

	"runimate-gateway/internal/aggregate"
	"runimate-gateway/internal/config"
	"runimate-gateway/internal/garmin"
	"runimate-gateway/internal/strava"
)

func main() {
	configPath := flag.String("config", "", "Optional TOML file with provider endpoints.")
	openLogin := flag.Bool("open", false, "Open the local Strava login page in a browser once the server is up.")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.StravaEnabled() {
		log.Println("STRAVA_CLIENT_ID or STRAVA_CLIENT_SECRET not set, Strava login is disabled")
	}

	stravaClient := strava.NewClient(strava.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		AuthURL:      cfg.Strava.AuthURL,
		TokenURL:     cfg.Strava.TokenURL,
		APIURL:       cfg.Strava.APIURL,
		Timeout:      cfg.Timeout.Duration,
	})
	garminClient := garmin.NewClient(garmin.Config{
		LoginURL:      cfg.Garmin.LoginURL,
		TicketURL:     cfg.Garmin.TicketURL,
		ActivitiesURL: cfg.Garmin.ActivitiesURL,
		Timeout:       cfg.Timeout.Duration,
	})

	s := &server{
		activities:  aggregate.New(garminClient, stravaClient),
		strava:      stravaClient,
		frontendURL: cfg.FrontendURL,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newHandler(s, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2*cfg.Timeout.Duration + 10*time.Second, // one login plus one fetch
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", srv.Addr, err)
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
		log.Println("Stopped serving new connections.")
	}()

	if *openLogin {
		loginURL := "http://localhost:" + cfg.Port + "/api/strava/login"
		if err := browser.OpenURL(loginURL); err != nil {
			log.Printf("Failed to open browser, visit %s: %v", loginURL, err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP shutdown error: %v", err)
	}
	log.Println("Graceful shutdown complete.")
}
