package adapter

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"healthtrack-api/core/errors"
	"healthtrack-api/modules/integration/entity"

	"golang.org/x/oauth2"
)

// Adapter hides one provider's OAuth and API quirks behind a single
// contract. Implementations never touch storage; they translate between the
// provider's wire formats and the canonical shapes the sync engine consumes.
type Adapter interface {
	Provider() entity.Provider

	// AuthorizationURL builds the provider consent URL with the given state
	// embedded unchanged. Pure construction, no network.
	AuthorizationURL(state string) string

	// ExchangeCode trades a single-use authorization code for credentials.
	ExchangeCode(ctx context.Context, code string) (*Credentials, error)

	// FetchHealthData returns normalized per-day records covering
	// [start, end]. Days without data are simply absent; an empty result is
	// not an error.
	FetchHealthData(ctx context.Context, creds *Credentials, start, end time.Time) ([]DailyHealthData, error)

	// RefreshToken trades a refresh token for fresh credentials. A provider
	// rejection means the user must reconnect.
	RefreshToken(ctx context.Context, refreshToken string) (*Credentials, error)

	// RevokeAccess invalidates the credentials provider-side. Callers treat
	// failures as advisory.
	RevokeAccess(ctx context.Context, creds *Credentials) error
}

// Credentials is the canonical token bundle every adapter produces.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
}

func credentialsFromToken(t *oauth2.Token) *Credentials {
	c := &Credentials{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.Expiry,
	}
	if s, ok := t.Extra("scope").(string); ok {
		c.Scope = s
	}
	return c
}

// exchangeErr maps a code-exchange failure. Provider rejections (the code is
// invalid, expired, or already used) are the caller's fault; everything else
// is an upstream outage.
func exchangeErr(p entity.Provider, err error) error {
	var re *oauth2.RetrieveError
	if stderrors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
		return errors.NewAppError(errors.ErrInvalidRequest,
			fmt.Sprintf("%s rejected the authorization code", p), err)
	}
	return errors.NewAppError(errors.ErrProviderUnavailable,
		fmt.Sprintf("%s token endpoint unavailable", p), err)
}

// refreshErr maps a token-refresh failure. A rejection is terminal for the
// integration: the stored refresh token is no good and only the user
// reconnecting can fix it.
func refreshErr(p entity.Provider, err error) error {
	var re *oauth2.RetrieveError
	if stderrors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
		return errors.NewAppError(errors.ErrUnauthorized,
			fmt.Sprintf("%s rejected the refresh token", p), err)
	}
	return errors.NewAppError(errors.ErrProviderUnavailable,
		fmt.Sprintf("%s token endpoint unavailable", p), err)
}

// apiGet performs an authenticated GET and returns the raw body with the
// HTTP status, leaving decoding and status mapping to the adapter.
func apiGet(ctx context.Context, httpc *http.Client, rawURL, accessToken string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// fetchTransportErr wraps a failure to reach the provider API at all.
func fetchTransportErr(p entity.Provider, err error) error {
	return errors.NewAppError(errors.ErrProviderUnavailable,
		fmt.Sprintf("%s API unreachable", p), err)
}

// fetchStatusErr maps a non-2xx API status: auth failures are terminal for
// this attempt, anything else is a retryable upstream problem.
func fetchStatusErr(p entity.Provider, status int, body []byte) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return errors.NewAppError(errors.ErrUnauthorized,
			fmt.Sprintf("%s rejected the access token", p),
			fmt.Errorf("status %d: %s", status, truncateBody(body)))
	}
	return errors.NewAppError(errors.ErrProviderUnavailable,
		fmt.Sprintf("%s API returned status %d", p, status),
		fmt.Errorf("%s", truncateBody(body)))
}

func truncateBody(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
