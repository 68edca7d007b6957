// Package spotify drives the Spotify Web API player on behalf of one user.
// The OAuth session lives in an injected TokenStore.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Default endpoints.
const (
	DefaultAuthURL  = "https://accounts.spotify.com/authorize"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultAPIURL   = "https://api.spotify.com/v1"
)

const (
	requestTimeout = 10 * time.Second
	stateTTL       = 10 * time.Minute
)

// Errors surfaced to clients in the error field of responses.
var (
	ErrNotConfigured    = errors.New("spotify client id not configured")
	ErrNotAuthenticated = errors.New("not authenticated with Spotify")
	ErrAuthExpired      = errors.New("authentication expired")
	ErrBadState         = errors.New("state_mismatch")
)

// APIError is a non-success answer from the Web API.
type APIError struct {
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: %d", e.Status)
}

// Opts configures a Client. Empty URLs select the public endpoints.
type Opts struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	Store        TokenStore
	HTTPClient   *http.Client
	AuthURL      string
	TokenURL     string
	APIURL       string
}

// Client is a Spotify player client.
type Client struct {
	oauth  *oauth2.Config
	store  TokenStore
	http   *http.Client
	apiURL string

	mu     sync.Mutex
	states map[string]time.Time
}

// New creates a Client. A nil Store keeps the session in memory.
func New(opts Opts) *Client {
	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Scopes:       opts.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   orDefault(opts.AuthURL, DefaultAuthURL),
				TokenURL:  orDefault(opts.TokenURL, DefaultTokenURL),
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		store:  opts.Store,
		http:   opts.HTTPClient,
		apiURL: strings.TrimSuffix(orDefault(opts.APIURL, DefaultAPIURL), "/"),
		states: make(map[string]time.Time),
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: requestTimeout}
	}
	return c
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Configured reports whether both client credentials are set.
func (c *Client) Configured() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

// LoginURL returns the authorization URL with a fresh state nonce.
func (c *Client) LoginURL() (string, error) {
	if c.oauth.ClientID == "" {
		return "", ErrNotConfigured
	}
	state := uuid.NewString()
	now := time.Now()

	c.mu.Lock()
	for s, exp := range c.states {
		if now.After(exp) {
			delete(c.states, s)
		}
	}
	c.states[state] = now.Add(stateTTL)
	c.mu.Unlock()

	return c.oauth.AuthCodeURL(state), nil
}

// consumeState reports whether state was issued by LoginURL and is unexpired.
func (c *Client) consumeState(state string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.states[state]
	delete(c.states, state)
	return ok && time.Now().Before(exp)
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// Exchange trades an authorization code for a token and stores it.
func (c *Client) Exchange(ctx context.Context, state, code string) error {
	if !c.consumeState(state) {
		return ErrBadState
	}
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return fmt.Errorf("spotify: exchange code: %w", err)
	}
	return c.store.Save(ctx, tok)
}

// Logout forgets the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Connected reports whether a usable access token exists, refreshing it if
// it has expired.
func (c *Client) Connected(ctx context.Context) bool {
	_, err := c.token(ctx, false)
	return err == nil
}

// token returns a valid access token. force refreshes even when the stored
// token has not expired.
func (c *Client) token(ctx context.Context, force bool) (*oauth2.Token, error) {
	tok, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrNotAuthenticated
	}
	if !force && tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		if force {
			return nil, ErrAuthExpired
		}
		return nil, ErrNotAuthenticated
	}

	stale := *tok
	stale.Expiry = time.Unix(1, 0)
	fresh, err := c.oauth.TokenSource(c.oauthContext(ctx), &stale).Token()
	if err != nil {
		if force {
			return nil, ErrAuthExpired
		}
		return nil, ErrNotAuthenticated
	}
	if err := c.store.Save(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// call performs one Web API request. A 401 forces a single refresh and
// retry. It returns the response body, empty for 204.
func (c *Client) call(ctx context.Context, method, path string) ([]byte, error) {
	tok, err := c.token(ctx, false)
	if err != nil {
		return nil, err
	}
	for attempt := 0; ; attempt++ {
		status, body, err := c.send(ctx, method, path, tok)
		if err != nil {
			return nil, err
		}
		switch {
		case status == http.StatusNoContent:
			return nil, nil
		case status == http.StatusOK:
			return body, nil
		case status == http.StatusUnauthorized && attempt == 0:
			if tok, err = c.token(ctx, true); err != nil {
				return nil, err
			}
		case status == http.StatusUnauthorized:
			return nil, ErrAuthExpired
		default:
			return nil, &APIError{Status: status}
		}
	}
}

func (c *Client) send(ctx context.Context, method, path string, tok *oauth2.Token) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("spotify: build request: %w", err)
	}
	tok.SetAuthHeader(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("spotify: request error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("spotify: read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) decode(ctx context.Context, path string, dst any) (bool, error) {
	body, err := c.call(ctx, http.MethodGet, path)
	if err != nil {
		return false, err
	}
	if len(body) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return false, fmt.Errorf("spotify: decode %s: %w", path, err)
	}
	return true, nil
}
