// Package auth supplies a bearer token for the reporting API, reusing the
// cached one while its exp claim is in the future and refreshing it with a
// client-credentials exchange otherwise.
//
// Tokens are decoded without signature verification: the collector holds no
// signing key, and it only needs to know whether the API will still accept
// the token. The API remains the party that verifies it.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alfredjeanlab/evcollect/internal/client"
)

// Config carries the static client-credentials parameters.
type Config struct {
	ClientID     string
	ClientSecret string
	Audience     string
}

// TokenExchanger performs the client-credentials exchange.
type TokenExchanger interface {
	ExchangeToken(ctx context.Context, req *client.TokenRequest) (*client.TokenResponse, error)
}

// Manager validates cached tokens and obtains new ones.
type Manager struct {
	cfg      Config
	exchange TokenExchanger
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager creates a token manager that refreshes through exchange.
func NewManager(cfg Config, exchange TokenExchanger, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		exchange: exchange,
		logger:   logger,
		now:      time.Now,
	}
}

// IsValid reports whether token can still be used. It fails closed: an empty
// token, one that cannot be decoded, one without an exp claim, or one whose exp
// is before the current second are all invalid.
func (m *Manager) IsValid(token string) bool {
	if token == "" {
		m.logger.Warn("no API token found")
		return false
	}

	exp, err := Expiry(token)
	if err != nil {
		m.logger.Error("error decoding API token", "err", err)
		return false
	}
	if exp.Unix() < m.now().Unix() {
		m.logger.Warn("API token has expired", "exp", exp.UTC().Format(time.RFC3339))
		return false
	}

	m.logger.Info("API token is valid", "exp", exp.UTC().Format(time.RFC3339))
	return true
}

// Refresh obtains a new token. Any failure is fatal for the run.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.logger.Info("refreshing API token")
	resp, err := m.exchange.ExchangeToken(ctx, &client.TokenRequest{
		ClientID:     m.cfg.ClientID,
		ClientSecret: m.cfg.ClientSecret,
		Audience:     m.cfg.Audience,
		GrantType:    client.GrantClientCredentials,
	})
	if err != nil {
		return "", fmt.Errorf("refreshing API token: %w", err)
	}
	return resp.AccessToken, nil
}

// Ensure returns cached when it is still valid, otherwise a freshly issued
// token. refreshed reports which one was returned.
func (m *Manager) Ensure(ctx context.Context, cached string) (token string, refreshed bool, err error) {
	if m.IsValid(cached) {
		return cached, false, nil
	}
	token, err = m.Refresh(ctx)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Expiry decodes token without verifying its signature and returns its exp
// claim.
func Expiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parsing token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("reading exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("token has no exp claim")
	}
	return exp.Time, nil
}
