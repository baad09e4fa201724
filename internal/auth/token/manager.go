// Package token manages the OAuth token lifecycle: exchanging the initial
// authorization code and refreshing expired tokens on demand.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/chatvault/chatvault/internal/db/models"
	"github.com/chatvault/chatvault/internal/logging"
)

// AuthError reports a failed exchange with the identity endpoint. No token
// state is persisted when one is returned.
type AuthError struct {
	Op  string // "exchange" or "refresh"
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Store is the durable token history the manager reads and appends to.
type Store interface {
	Latest() (*models.Token, error)
	Append(*models.Token) error
}

// Manager owns the token lifecycle. Tokens are appended, never updated in
// place, so the history doubles as an audit trail.
type Manager struct {
	cfg   *oauth2.Config
	store Store
	now   func() time.Time
}

func NewManager(cfg *oauth2.Config, store Store) *Manager {
	return &Manager{cfg: cfg, store: store, now: time.Now}
}

// Acquire exchanges an authorization code for a token pair and persists it.
func (m *Manager) Acquire(ctx context.Context, code string) (*models.Token, error) {
	tok, err := m.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthError{Op: "exchange", Err: err}
	}
	row := &models.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if err := m.store.Append(row); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	logging.Infof("obtained access token (expires %s)", row.ExpiresAt.Format(time.RFC3339))
	return row, nil
}

// Current returns a valid token. An unexpired persisted token is returned
// as-is with no network call; an expired one triggers exactly one refresh
// exchange, whose result is appended as a new row. A failed refresh leaves
// the stored state untouched.
func (m *Manager) Current(ctx context.Context) (*models.Token, error) {
	latest, err := m.store.Latest()
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if latest == nil {
		return nil, &AuthError{Op: "exchange", Err: errors.New("no token on record, authorize first")}
	}
	if m.now().Before(latest.ExpiresAt) {
		return latest, nil
	}

	logging.Warnf("access token expired at %s, refreshing", latest.ExpiresAt.Format(time.RFC3339))
	src := m.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: latest.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		return nil, &AuthError{Op: "refresh", Err: err}
	}

	row := &models.Token{
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
		ExpiresAt:    fresh.Expiry,
	}
	// Keep the old refresh token when the server did not rotate it.
	if row.RefreshToken == "" {
		row.RefreshToken = latest.RefreshToken
	}
	if err := m.store.Append(row); err != nil {
		return nil, fmt.Errorf("persist refreshed token: %w", err)
	}
	logging.Infof("refreshed access token (expires %s)", row.ExpiresAt.Format(time.RFC3339))
	return row, nil
}
