// Package auth obtains bearer tokens for the Onecta cloud using the OAuth2 refresh-token grant.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTokenURL is the Onecta identity provider token endpoint.
const DefaultTokenURL = "https://idp.onecta.daikineurope.com/v1/oidc/token"

// expiryMargin is subtracted from the reported lifetime so a token is never used right at its expiry.
const expiryMargin = 5 * time.Minute

// ErrNoRefreshToken is returned when no refresh token is configured.
var ErrNoRefreshToken = errors.New("no refresh token configured")

// Credentials holds the OAuth2 client registration and the long-lived refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// AuthResult contains the result of a successful token refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// AuthClient exchanges refresh tokens for access tokens and caches the result.
//
// Thread Safety:
//   - Token may be called from multiple goroutines; concurrent refreshes are collapsed.
type AuthClient struct {
	httpClient *http.Client
	tokenURL   string
	logger     *slog.Logger

	// OnRotate is called with the new refresh token whenever the provider rotates it.
	OnRotate func(refreshToken string)

	mu        sync.RWMutex
	creds     Credentials
	cached    *AuthResult
	expiresAt time.Time
	now       func() time.Time
}

// NewAuthClient creates a new authentication client.
func NewAuthClient(tokenURL string, creds Credentials, logger *slog.Logger) *AuthClient {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &AuthClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokenURL: tokenURL,
		creds:    creds,
		logger:   logger,
		now:      time.Now,
	}
}

// Valid reports whether a cached, unexpired access token is available.
func (a *AuthClient) Valid() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cached != nil && a.now().Before(a.expiresAt)
}

// Token returns a cached access token if valid, or refreshes to get a new one.
func (a *AuthClient) Token(ctx context.Context) (string, error) {
	a.mu.RLock()
	if a.cached != nil && a.now().Before(a.expiresAt) {
		token := a.cached.AccessToken
		a.mu.RUnlock()
		return token, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine might have refreshed)
	if a.cached != nil && a.now().Before(a.expiresAt) {
		return a.cached.AccessToken, nil
	}

	a.logger.Info("Refreshing Onecta access token", "reason", "token expired or missing")
	result, err := a.refresh(ctx)
	if err != nil {
		return "", err
	}

	a.cached = result
	expiresIn := time.Duration(result.ExpiresIn) * time.Second
	if expiresIn > expiryMargin {
		expiresIn -= expiryMargin
	}
	a.expiresAt = a.now().Add(expiresIn)

	if result.RefreshToken != "" && result.RefreshToken != a.creds.RefreshToken {
		a.creds.RefreshToken = result.RefreshToken
		a.logger.Debug("Refresh token rotated")
		if a.OnRotate != nil {
			a.OnRotate(result.RefreshToken)
		}
	}

	a.logger.Info("Access token refreshed", "expires_in", expiresIn.Round(time.Second))
	return result.AccessToken, nil
}

// Invalidate drops the cached access token so the next Token call refreshes.
func (a *AuthClient) Invalidate() {
	a.mu.Lock()
	a.cached = nil
	a.mu.Unlock()
}

// refresh performs the refresh_token grant. Callers hold a.mu.
func (a *AuthClient) refresh(ctx context.Context) (*AuthResult, error) {
	if a.creds.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", a.creds.ClientID)
	form.Set("client_secret", a.creds.ClientSecret)
	form.Set("refresh_token", a.creds.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json")

	res, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("Token request failed", "error", err)
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer res.Body.Close()

	b, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", res.StatusCode, string(b))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(b, &tokenResp); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, errors.New("no access_token in response")
	}

	return &AuthResult{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}
