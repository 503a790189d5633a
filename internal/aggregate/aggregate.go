// Package aggregate runs one provider through authenticate, fetch and
// normalize for a single request.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"runimate-gateway/internal/activity"
	"runimate-gateway/internal/provider"
)

// Service dispatches requests to registered provider clients by tag. It holds
// no per-request state and is safe for concurrent use.
type Service struct {
	clients map[provider.Tag]provider.Client
}

func New(clients ...provider.Client) *Service {
	s := &Service{clients: make(map[provider.Tag]provider.Client, len(clients))}
	for _, c := range clients {
		s.clients[c.Tag()] = c
	}
	return s
}

func (s *Service) Client(tag provider.Tag) (provider.Client, bool) {
	c, ok := s.clients[tag]
	return c, ok
}

// Fetch authenticates with creds, fetches up to limit activities and returns
// them normalized. Nothing is retried: the first failing phase ends the
// request. An empty list is a valid result.
func (s *Service) Fetch(ctx context.Context, tag provider.Tag, creds provider.Credentials, limit int) ([]activity.Activity, error) {
	c, ok := s.clients[tag]
	if !ok {
		return nil, provider.NewError(tag, provider.ErrUnknownProvider, nil)
	}

	if v, ok := c.(provider.Validator); ok {
		if err := v.ValidateCredentials(creds); err != nil {
			return nil, asPhase(tag, provider.ErrInvalidCredentials, err)
		}
	}

	start := time.Now()
	session, err := c.Authenticate(ctx, creds)
	if err != nil {
		log.Printf("aggregate: %s authenticate failed after %v: %v", tag, time.Since(start), err)
		return nil, asPhase(tag, provider.ErrAuth, err)
	}

	start = time.Now()
	raws, err := c.FetchActivities(ctx, session, limit)
	if err != nil {
		log.Printf("aggregate: %s fetch failed after %v: %v", tag, time.Since(start), err)
		return nil, asPhase(tag, provider.ErrFetch, err)
	}
	log.Printf("aggregate: %s fetched %d activities in %v", tag, len(raws), time.Since(start))

	return activity.NormalizeAll(raws, tag), nil
}

// asPhase leaves errors that already name a phase untouched and wraps
// anything else as a failure of phase.
func asPhase(tag provider.Tag, phase, err error) error {
	var perr *provider.Error
	if errors.As(err, &perr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return provider.NewError(tag, phase, fmt.Errorf("request aborted: %w", err))
	}
	return provider.NewError(tag, phase, err)
}
