// Package identity provides a client for the identity provider.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/ayasaka/kidreel/internal/domain/apperr"
)

// User represents the signed-in account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Client is an identity provider client. It tracks the current user and
// broadcasts auth-state changes to subscribers.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu          sync.RWMutex
	user        *User
	token       *oauth2.Token
	subscribers map[string]chan *User
}

// Config represents identity client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // request budget, 15s when zero
}

// authResponse is the provider's sign-in/sign-up response.
type authResponse struct {
	User
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresInSec int64  `json:"expiresIn"`
}

// errorResponse is the provider's error body; Message is displayed
// verbatim to the end user.
type errorResponse struct {
	Message string `json:"message"`
}

// New creates an identity client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, errors.New("identity base URL and API key are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: timeout},
		subscribers: make(map[string]chan *User),
	}, nil
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	return c.authenticate(ctx, "/signin", email, password)
}

// SignUp creates a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*User, error) {
	return c.authenticate(ctx, "/signup", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*User, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	var resp authResponse
	if err := c.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}

	user := resp.User
	token := &oauth2.Token{
		AccessToken:  resp.IDToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    "Bearer",
	}
	if resp.ExpiresInSec > 0 {
		token.Expiry = time.Now().Add(time.Duration(resp.ExpiresInSec) * time.Second)
	}

	c.mu.Lock()
	c.user = &user
	c.token = token
	c.mu.Unlock()

	c.broadcast(&user)
	return &user, nil
}

// SendPasswordReset asks the provider to email a reset link.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	body := struct {
		Email string `json:"email"`
	}{email}
	return c.post(ctx, "/reset-password", body, nil)
}

// SignOut drops the current user and token.
func (c *Client) SignOut() {
	c.mu.Lock()
	c.user = nil
	c.token = nil
	c.mu.Unlock()

	c.broadcast(nil)
}

// CurrentUser returns the signed-in user, if any.
func (c *Client) CurrentUser() (*User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.user == nil {
		return nil, false
	}
	u := *c.user
	return &u, true
}

// TokenSource returns a source for the current session token, for
// authorized calls to the content listing service.
func (c *Client) TokenSource() oauth2.TokenSource {
	return tokenSource{c}
}

type tokenSource struct{ c *Client }

func (ts tokenSource) Token() (*oauth2.Token, error) {
	ts.c.mu.RLock()
	defer ts.c.mu.RUnlock()

	if ts.c.token == nil {
		return nil, errors.New("not signed in")
	}
	return ts.c.token, nil
}

// Subscribe registers for auth-state changes. The returned channel
// receives the new user (nil on sign-out); call the cancel func to
// unsubscribe.
func (c *Client) Subscribe() (<-chan *User, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan *User, 4)
	c.subscribers[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
	return ch, cancel
}

// broadcast notifies all subscribers of an auth-state change without
// blocking on slow consumers.
func (c *Client) broadcast(u *User) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, ch := range c.subscribers {
		select {
		case ch <- u:
		default:
			zlog.Warn().Msgf("identity: dropping auth-state update for slow subscriber %s", id)
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to encode auth request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "failed to build auth request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperr.NetworkError{Op: "identity " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&parsed)
		if parsed.Message == "" {
			parsed.Message = http.StatusText(resp.StatusCode)
		}
		return &apperr.AuthError{Message: parsed.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.NetworkError{
			Op:  "identity " + path,
			Err: errors.Wrap(err, "malformed provider response"),
		}
	}
	return nil
}
