package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/ytloop/internal/shared"
)

// DefaultRevokeURL is Google's token revocation endpoint.
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// Revoke asks the provider to invalidate token.
//
// Callers treat failure as non-fatal; the session is torn down regardless.
func Revoke(ctx context.Context, client *http.Client, revokeURL, token string) error {
	if token == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	if revokeURL == "" {
		revokeURL = DefaultRevokeURL
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: revoke: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: revoke: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}
