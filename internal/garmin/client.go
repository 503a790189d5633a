// Package garmin implements the session-login provider: an email/password
// SSO sign-in whose service ticket is redeemed for a cookie-authenticated
// HTTP client, followed by a single page fetch of recent activities.
package garmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"runimate-gateway/internal/provider"
)

// DefaultPageSize is how many recent activities are requested per fetch.
const DefaultPageSize = 20

const (
	DefaultLoginURL      = "https://sso.garmin.com/sso/signin"
	DefaultTicketURL     = "https://connect.garmin.com/modern/"
	DefaultActivitiesURL = "https://connect.garmin.com/activitylist-service/activities/search/activities"
)

// A successful sign-in embeds the service ticket in the response page. A
// rejected one renders the form again with 200 and no ticket.
var ticketPattern = regexp.MustCompile(`ticket=(ST-[A-Za-z0-9-]+)`)

type Config struct {
	LoginURL      string
	TicketURL     string
	ActivitiesURL string
	Timeout       time.Duration
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	if cfg.TicketURL == "" {
		cfg.TicketURL = DefaultTicketURL
	}
	if cfg.ActivitiesURL == "" {
		cfg.ActivitiesURL = DefaultActivitiesURL
	}
	return &Client{cfg: cfg}
}

// Session is a logged-in client. It carries the session cookies set during
// login and is discarded with the request that created it.
type Session struct {
	http *http.Client
}

func (c *Client) Tag() provider.Tag {
	return provider.Garmin
}

func (c *Client) ValidateCredentials(creds provider.Credentials) error {
	if !creds.HasPassword() {
		return provider.NewError(provider.Garmin, provider.ErrInvalidCredentials, errors.New("email and password are required"))
	}
	return nil
}

// Authenticate signs in with email and password and redeems the returned
// service ticket. Remote failures are reported as provider.ErrAuth without
// further distinction; the cause is only logged.
func (c *Client) Authenticate(ctx context.Context, creds provider.Credentials) (provider.Session, error) {
	if err := c.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, provider.NewError(provider.Garmin, provider.ErrAuth, err)
	}
	httpClient := &http.Client{Jar: jar, Timeout: c.cfg.Timeout}

	ticket, err := c.signIn(ctx, httpClient, creds)
	if err != nil {
		log.Printf("garmin: sign-in failed: %v", err)
		return nil, provider.NewError(provider.Garmin, provider.ErrAuth, err)
	}
	if err := c.redeemTicket(ctx, httpClient, ticket); err != nil {
		log.Printf("garmin: ticket exchange failed: %v", err)
		return nil, provider.NewError(provider.Garmin, provider.ErrAuth, err)
	}

	return &Session{http: httpClient}, nil
}

func (c *Client) signIn(ctx context.Context, httpClient *http.Client, creds provider.Credentials) (string, error) {
	form := url.Values{}
	form.Set("username", strings.TrimSpace(creds.Email))
	form.Set("password", creds.Password)
	form.Set("embed", "false")
	form.Set("rememberme", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("login status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return "", err
	}
	m := ticketPattern.FindSubmatch(body)
	if m == nil {
		return "", errors.New("no service ticket in sign-in response")
	}
	return string(m[1]), nil
}

func (c *Client) redeemTicket(ctx context.Context, httpClient *http.Client, ticket string) error {
	u, err := url.Parse(c.cfg.TicketURL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("ticket", ticket)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ticket status %d", resp.StatusCode)
	}
	return nil
}

// FetchActivities returns the most recent activities in provider order.
func (c *Client) FetchActivities(ctx context.Context, session provider.Session, limit int) ([]provider.RawActivity, error) {
	sess, ok := session.(*Session)
	if !ok || sess == nil {
		return nil, provider.NewError(provider.Garmin, provider.ErrFetch, fmt.Errorf("unexpected session type %T", session))
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	u, err := url.Parse(c.cfg.ActivitiesURL)
	if err != nil {
		return nil, provider.NewError(provider.Garmin, provider.ErrFetch, err)
	}
	q := u.Query()
	q.Set("start", "0")
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, provider.NewError(provider.Garmin, provider.ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("NK", "NT")

	resp, err := sess.http.Do(req)
	if err != nil {
		return nil, provider.NewError(provider.Garmin, provider.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("garmin: activity fetch failed with status %d", resp.StatusCode)
		return nil, provider.NewError(provider.Garmin, provider.ErrFetch, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var raws []provider.RawActivity
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return nil, provider.NewError(provider.Garmin, provider.ErrFetch, fmt.Errorf("decode activities: %w", err))
	}
	if raws == nil {
		raws = []provider.RawActivity{}
	}
	return raws, nil
}
