// Package client talks to the event-reporting API: the client-credentials
// token endpoint and the paginated events endpoint.
package client

import (
	"context"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

// EventsClient is the interface the collector uses to reach the reporting API.
// It is implemented by HTTPClient.
type EventsClient interface {
	// ExchangeToken performs a client-credentials exchange.
	ExchangeToken(ctx context.Context, req *TokenRequest) (*TokenResponse, error)

	// FetchEvents returns every event published after since, following
	// pagination links until the last page. An empty since fetches the full
	// history.
	FetchEvents(ctx context.Context, token, since string) ([]model.Event, error)
}

// TokenRequest is the JSON body posted to the token endpoint.
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
	GrantType    string `json:"grant_type"`
}

// GrantClientCredentials is the only grant type the collector uses.
const GrantClientCredentials = "client_credentials"

// TokenResponse is the token endpoint's reply.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

// EventsPage is one page of the events endpoint.
type EventsPage struct {
	Events *[]model.Event `json:"events"`
}
