// Package config loads the gateway configuration once at startup from an
// optional TOML file, a .env file and the process environment, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	defaultPort    = "8080"
	defaultTimeout = 15 * time.Second
)

type Config struct {
	Port           string       `toml:"port"`
	FrontendURL    string       `toml:"frontend_url"`
	AllowedOrigins []string     `toml:"allowed_origins"`
	Timeout        Duration     `toml:"provider_timeout"`
	Strava         StravaConfig `toml:"strava"`
	Garmin         GarminConfig `toml:"garmin"`
}

type StravaConfig struct {
	// ClientID and ClientSecret come from the environment only.
	ClientID     string `toml:"-"`
	ClientSecret string `toml:"-"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	APIURL       string `toml:"api_url"`
}

type GarminConfig struct {
	LoginURL      string `toml:"login_url"`
	TicketURL     string `toml:"ticket_url"`
	ActivitiesURL string `toml:"activities_url"`
}

// Duration decodes TOML strings such as "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads the configuration. tomlPath may be empty. A missing .env file is
// not an error.
func Load(tomlPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: failed to load .env file: %v", err)
	}

	cfg := &Config{
		Port:           defaultPort,
		AllowedOrigins: []string{"*"},
		Timeout:        Duration{defaultTimeout},
	}

	if tomlPath != "" {
		if _, err := toml.DecodeFile(tomlPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", tomlPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.FrontendURL, "FRONTEND_URL")
	setString(&c.Strava.ClientID, "STRAVA_CLIENT_ID")
	setString(&c.Strava.ClientSecret, "STRAVA_CLIENT_SECRET")
	setString(&c.Strava.AuthURL, "STRAVA_AUTH_URL")
	setString(&c.Strava.TokenURL, "STRAVA_TOKEN_URL")
	setString(&c.Strava.APIURL, "STRAVA_API_URL")
	setString(&c.Garmin.LoginURL, "GARMIN_LOGIN_URL")
	setString(&c.Garmin.TicketURL, "GARMIN_TICKET_URL")
	setString(&c.Garmin.ActivitiesURL, "GARMIN_ACTIVITIES_URL")

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}

	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PROVIDER_TIMEOUT %q: %w", v, err)
		}
		c.Timeout = Duration{d}
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = strings.TrimSpace(v)
	}
}

// Validate rejects configuration the server cannot run with. Missing Strava
// credentials are allowed; StravaEnabled reports them.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("provider timeout must be positive, got %v", c.Timeout.Duration)
	}
	if c.FrontendURL != "" {
		u, err := url.Parse(c.FrontendURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid FRONTEND_URL %q", c.FrontendURL)
		}
	}
	return nil
}

func (c *Config) StravaEnabled() bool {
	return c.Strava.ClientID != "" && c.Strava.ClientSecret != ""
}
