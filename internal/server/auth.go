package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TokenValidator checks a registering player's credential before the
// player enters the tournament.
type TokenValidator interface {
	ValidateToken(ctx context.Context, playerID, token string) error
}

// NoopValidator accepts every registration. Used when no auth block is
// configured.
type NoopValidator struct{}

func (NoopValidator) ValidateToken(ctx context.Context, playerID, token string) error {
	return nil
}

// HTTPValidator posts credentials to an external endpoint and accepts
// the registration on a 2xx response.
type HTTPValidator struct {
	URL    string
	Secret string
	Client *http.Client
}

// NewHTTPValidator creates a validator against the configured endpoint.
func NewHTTPValidator(cfg *AuthSettings) *HTTPValidator {
	return &HTTPValidator{
		URL:    cfg.URL,
		Secret: cfg.AdminSecret,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *HTTPValidator) ValidateToken(ctx context.Context, playerID, token string) error {
	body, err := json.Marshal(map[string]string{
		"playerId": playerID,
		"token":    token,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+v.Secret)
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return fmt.Errorf("auth endpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("auth endpoint rejected %s: %s", playerID, resp.Status)
	}
	return nil
}
