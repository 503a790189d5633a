// Package provider defines the capability every fitness provider integration
// implements and the error taxonomy the aggregation service reports.
package provider

import (
	"context"
	"encoding/json"
	"strings"
)

type Tag string

const (
	Garmin Tag = "garmin"
	Strava Tag = "strava"
)

// Credentials is the per-request input a provider needs to authenticate.
// Only one shape is populated: Email and Password for session-login
// providers, AuthorizationCode or AccessToken for OAuth providers.
type Credentials struct {
	Email             string
	Password          string
	AuthorizationCode string
	AccessToken       string
}

func (c Credentials) HasPassword() bool {
	return strings.TrimSpace(c.Email) != "" && c.Password != ""
}

func (c Credentials) HasOAuth() bool {
	return strings.TrimSpace(c.AuthorizationCode) != "" || strings.TrimSpace(c.AccessToken) != ""
}

// Session is the authenticated handle returned by Authenticate. Its concrete
// type belongs to the provider that created it and must not outlive the
// request.
type Session any

type RawActivity = json.RawMessage

// Client authenticates against a provider and fetches its activities.
type Client interface {
	Tag() Tag
	Authenticate(ctx context.Context, creds Credentials) (Session, error)
	// FetchActivities returns at most limit records. A limit <= 0 selects the
	// provider's default page size.
	FetchActivities(ctx context.Context, session Session, limit int) ([]RawActivity, error)
}

// Validator is implemented by clients that can check the credential shape
// without any network I/O.
type Validator interface {
	ValidateCredentials(creds Credentials) error
}
