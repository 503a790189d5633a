// Package strava implements the OAuth2 provider: authorization URL
// construction, authorization-code exchange and bearer-authenticated
// activity fetch restricted to runs.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"runimate-gateway/internal/provider"
)

const (
	DefaultAuthURL  = "https://www.strava.com/oauth/authorize"
	DefaultTokenURL = "https://www.strava.com/oauth/token"
	DefaultAPIURL   = "https://www.strava.com/api/v3"

	// Scope is the read-only activity scope requested at authorization.
	Scope = "activity:read_all"

	// DefaultPageSize applies when the caller passes no limit.
	DefaultPageSize = 30

	activityTypeRun = "Run"
)

var ErrNotConfigured = errors.New("strava client is not configured")

// maxResponseBytes caps how much of an activity list response is read.
var maxResponseBytes int64 = 8 << 20

type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	APIURL       string
	Timeout      time.Duration
}

type Client struct {
	oauth  oauth2.Config
	apiURL string
	http   *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return &Client{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{Scope},
		},
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		http:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Configured() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

func (c *Client) Tag() provider.Tag {
	return provider.Strava
}

// RedirectURI builds the callback URL for host. Local development hosts use
// plain http; everything else uses https.
func RedirectURI(host, path string) string {
	scheme := "https"
	if isLocalHost(host) {
		scheme = "http"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: path}
	return u.String()
}

func isLocalHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	}
	return false
}

// AuthCodeURL returns the provider authorization URL the browser should be
// redirected to.
func (c *Client) AuthCodeURL(redirectURI string) (string, error) {
	if !c.Configured() || c.oauth.Endpoint.AuthURL == "" {
		return "", ErrNotConfigured
	}
	cfg := c.oauth
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL("", oauth2.SetAuthURLParam("approval_prompt", "auto")), nil
}

// Exchange trades an authorization code for an access token. An empty code
// fails before any network call.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", provider.NewError(provider.Strava, provider.ErrTokenExchange, errors.New("authorization code is required"))
	}
	if !c.Configured() {
		return "", provider.NewError(provider.Strava, provider.ErrTokenExchange, ErrNotConfigured)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		log.Printf("strava: token exchange failed: %v", err)
		return "", provider.NewError(provider.Strava, provider.ErrTokenExchange, exchangeCause(err))
	}
	if tok.AccessToken == "" {
		return "", provider.NewError(provider.Strava, provider.ErrTokenExchange, errors.New("response has no access token"))
	}
	return tok.AccessToken, nil
}

// exchangeCause reduces an oauth2 error to the remote message worth showing
// to the caller.
func exchangeCause(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.ErrorDescription != "" {
			return errors.New(rerr.ErrorDescription)
		}
		if msg := gjson.GetBytes(rerr.Body, "message"); msg.Exists() {
			return fmt.Errorf("status %d: %s", rerr.Response.StatusCode, msg.String())
		}
		return fmt.Errorf("status %d", rerr.Response.StatusCode)
	}
	return err
}

func (c *Client) ValidateCredentials(creds provider.Credentials) error {
	if !creds.HasOAuth() {
		return provider.NewError(provider.Strava, provider.ErrInvalidCredentials, errors.New("authorization code or access token is required"))
	}
	return nil
}

// Authenticate uses an access token as-is, otherwise exchanges the
// authorization code. The session is the bearer token string.
func (c *Client) Authenticate(ctx context.Context, creds provider.Credentials) (provider.Session, error) {
	if tok := strings.TrimSpace(creds.AccessToken); tok != "" {
		return tok, nil
	}
	return c.Exchange(ctx, creds.AuthorizationCode)
}

// FetchActivities returns the athlete's most recent runs. Other activity
// types are dropped.
func (c *Client) FetchActivities(ctx context.Context, session provider.Session, limit int) ([]provider.RawActivity, error) {
	token, ok := session.(string)
	if !ok || token == "" {
		return nil, provider.NewError(provider.Strava, provider.ErrFetch, fmt.Errorf("unexpected session type %T", session))
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	u := c.apiURL + "/athlete/activities?" + url.Values{"per_page": {strconv.Itoa(limit)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, provider.NewError(provider.Strava, provider.ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	httpClient.Timeout = c.http.Timeout

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, provider.NewError(provider.Strava, provider.ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, provider.NewError(provider.Strava, provider.ErrFetch, err)
	}
	if int64(len(body)) > maxResponseBytes {
		return nil, provider.NewError(provider.Strava, provider.ErrFetch, fmt.Errorf("response exceeds %d bytes", maxResponseBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("strava: activity fetch failed with status %d", resp.StatusCode)
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if m := gjson.GetBytes(body, "message"); m.Exists() {
			msg += ": " + m.String()
		}
		return nil, provider.NewError(provider.Strava, provider.ErrFetch, errors.New(msg))
	}

	var all []provider.RawActivity
	if err := json.Unmarshal(body, &all); err != nil {
		return nil, provider.NewError(provider.Strava, provider.ErrFetch, fmt.Errorf("decode activities: %w", err))
	}
	return runsOnly(all), nil
}

func runsOnly(all []provider.RawActivity) []provider.RawActivity {
	runs := make([]provider.RawActivity, 0, len(all))
	for _, raw := range all {
		if gjson.GetBytes(raw, "type").String() == activityTypeRun {
			runs = append(runs, raw)
		}
	}
	return runs
}
