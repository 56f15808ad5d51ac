package fetch

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/schedulehub/p2p/internal/cache"
)

// Token errors.
var (
	ErrTokenRejected = errors.New("token request rejected")
	ErrTokenMissing  = errors.New("token missing from response")
)

// TokenSource yields a ready Authorization header value.
type TokenSource interface {
	Header(ctx context.Context) (string, error)
}

// Token is an access token with its expiry.
type Token struct {
	AccessToken string    `msgpack:"access_token"`
	TokenType   string    `msgpack:"token_type"`
	ExpiresAt   time.Time `msgpack:"expires_at"`
}

// Header renders the Authorization value.
func (t Token) Header() string {
	typ := t.TokenType
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

func (t Token) validAt(now time.Time, margin time.Duration) bool {
	return t.AccessToken != "" && now.Add(margin).Before(t.ExpiresAt)
}

// TokenFetcher obtains a fresh token from the carrier.
type TokenFetcher func(ctx context.Context) (Token, error)

// TokenSourceConfig holds configuration for a cached token source.
type TokenSourceConfig struct {
	// Name keys the token in the shared cache (required).
	Name string

	// Fetch obtains a fresh token (required).
	Fetch TokenFetcher

	// Cache shares tokens across instances (optional).
	Cache *cache.Store

	// Margin is subtracted from the token expiry (default: 60 seconds).
	Margin time.Duration

	// Timeout bounds one refresh (default: 30 seconds). A refresh is shared
	// by every waiting caller, so it does not inherit any caller's deadline.
	Timeout time.Duration

	Logger zerolog.Logger
}

// CachedTokenSource keeps a token in memory and in the token namespace and
// collapses concurrent refreshes into one upstream call.
type CachedTokenSource struct {
	name    string
	fetch   TokenFetcher
	cache   *cache.Store
	margin  time.Duration
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	token Token
}

// NewTokenSource creates a cached token source.
func NewTokenSource(cfg TokenSourceConfig) *CachedTokenSource {
	margin := cfg.Margin
	if margin == 0 {
		margin = 60 * time.Second
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &CachedTokenSource{
		name:    cfg.Name,
		fetch:   cfg.Fetch,
		cache:   cfg.Cache,
		margin:  margin,
		timeout: timeout,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Header implements TokenSource.
func (s *CachedTokenSource) Header(ctx context.Context) (string, error) {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()
	if tok.validAt(s.now(), s.margin) {
		return tok.Header(), nil
	}

	ch := s.group.DoChan(s.name, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.refresh(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(Token).Header(), nil
	}
}

func (s *CachedTokenSource) refresh(ctx context.Context) (Token, error) {
	key := cache.Key("token", s.name)

	var shared Token
	found, err := s.cache.Get(ctx, cache.NamespaceToken, key, &shared)
	if err != nil {
		s.logger.Warn().Err(err).Str("token", s.name).Msg("token cache unavailable")
	}
	if found && shared.validAt(s.now(), s.margin) {
		s.set(shared)
		return shared, nil
	}

	tok, err := s.fetch(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("refreshing %s token: %w", s.name, err)
	}
	s.set(tok)

	if ttl := tok.ExpiresAt.Sub(s.now()) - s.margin; ttl > 0 {
		s.cache.SetAsync(cache.NamespaceToken, key, tok, ttl)
	}
	s.logger.Debug().Str("token", s.name).Time("expires_at", tok.ExpiresAt).Msg("token refreshed")
	return tok, nil
}

func (s *CachedTokenSource) set(tok Token) {
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
}

// StaticToken is a TokenSource for carriers with long-lived bearer tokens.
type StaticToken string

// Header implements TokenSource.
func (t StaticToken) Header(context.Context) (string, error) {
	return "Bearer " + string(t), nil
}

// JWTAssertion signs an RS256 client assertion for private_key_jwt flows.
type JWTAssertion struct {
	ClientID   string
	Audience   string
	Thumbprint string
	PrivateKey *rsa.PrivateKey
	Lifetime   time.Duration
}

// Sign returns a signed assertion valid from now.
func (a JWTAssertion) Sign(now time.Time) (string, error) {
	lifetime := a.Lifetime
	if lifetime == 0 {
		lifetime = 5 * time.Minute
	}

	claims := jwt.RegisteredClaims{
		Issuer:    a.ClientID,
		Subject:   a.ClientID,
		Audience:  jwt.ClaimStrings{a.Audience},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if a.Thumbprint != "" {
		token.Header["x5t"] = a.Thumbprint
	}

	signed, err := token.SignedString(a.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("signing client assertion: %w", err)
	}
	return signed, nil
}

// OAuthConfig describes a client-credentials token endpoint.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string

	// BasicAuth sends the client credentials as HTTP basic auth instead of
	// form fields.
	BasicAuth bool

	// Headers are added to the token request (e.g. API keys).
	Headers http.Header

	// Assertion replaces the client secret with a signed JWT.
	Assertion *JWTAssertion
}

type oauthTokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   json.RawMessage `json:"expires_in"`
}

// ClientCredentials returns a fetcher for the OAuth2 client-credentials
// grant. The assertion, when configured, is signed once per call.
func ClientCredentials(c *Client, cfg OAuthConfig) TokenFetcher {
	return func(ctx context.Context) (Token, error) {
		form := url.Values{}
		form.Set("grant_type", "client_credentials")
		if cfg.Scope != "" {
			form.Set("scope", cfg.Scope)
		}

		headers := cfg.Headers.Clone()
		if headers == nil {
			headers = http.Header{}
		}

		switch {
		case cfg.Assertion != nil:
			assertion, err := cfg.Assertion.Sign(time.Now())
			if err != nil {
				return Token{}, err
			}
			form.Set("client_id", cfg.ClientID)
			form.Set("client_assertion_type", "urn:ietf:params:oauth:client-assertion-type:jwt-bearer")
			form.Set("client_assertion", assertion)
		case cfg.BasicAuth:
			credentials := base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))
			headers.Set("Authorization", "Basic "+credentials)
		default:
			form.Set("client_id", cfg.ClientID)
			form.Set("client_secret", cfg.ClientSecret)
		}

		var body oauthTokenResponse
		if err := c.postToken(ctx, cfg.TokenURL, form, headers, &body); err != nil {
			return Token{}, err
		}
		if body.AccessToken == "" {
			return Token{}, ErrTokenMissing
		}

		return Token{
			AccessToken: body.AccessToken,
			TokenType:   body.TokenType,
			ExpiresAt:   time.Now().Add(time.Duration(parseExpiresIn(body.ExpiresIn)) * time.Second),
		}, nil
	}
}

// Some carriers send expires_in as a string.
func parseExpiresIn(raw json.RawMessage) int64 {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var parsed int64
		if _, err := fmt.Sscan(s, &parsed); err == nil {
			return parsed
		}
	}
	return 3600
}

// LoginConfig describes a username/password login that returns a JWT.
type LoginConfig struct {
	URL     string
	Body    any
	Headers http.Header

	// TokenField is the response field holding the token (default "token").
	TokenField string
}

// Login returns a fetcher for JWT login endpoints. The expiry is read from
// the token's own exp claim without verifying the signature.
func Login(c *Client, cfg LoginConfig) TokenFetcher {
	field := cfg.TokenField
	if field == "" {
		field = "token"
	}

	return func(ctx context.Context) (Token, error) {
		var body map[string]json.RawMessage
		if err := c.postToken(ctx, cfg.URL, cfg.Body, cfg.Headers, &body); err != nil {
			return Token{}, err
		}

		var raw string
		if err := json.Unmarshal(body[field], &raw); err != nil || raw == "" {
			return Token{}, ErrTokenMissing
		}

		expiresAt, err := jwtExpiry(raw)
		if err != nil {
			return Token{}, err
		}
		return Token{AccessToken: raw, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
	}
}

func jwtExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("parsing login token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("login token has no expiry: %w", ErrTokenMissing)
	}
	return exp.Time, nil
}

// postToken posts a token request. Transient failures map to ErrAbsent so
// the orchestrator retries; rejected credentials do not.
func (c *Client) postToken(ctx context.Context, tokenURL string, body any, headers http.Header, dst any) error {
	resp, err := c.send(ctx, Request{
		Method:    http.MethodPost,
		URL:       tokenURL,
		Body:      body,
		Headers:   headers,
		Operation: "token",
	}, nil)
	if err != nil {
		if errors.Is(err, ErrUnexpectedStatus) {
			return fmt.Errorf("%w: %w", ErrTokenRejected, err)
		}
		return err
	}
	if resp.absent {
		return ErrAbsent
	}
	if resp.empty() {
		return fmt.Errorf("%w: status %d", ErrTokenRejected, resp.status)
	}
	defer resp.body.Close()

	raw, err := io.ReadAll(resp.body)
	if err != nil {
		return ErrAbsent
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: token response: %w", ErrDecode, err)
	}
	return nil
}
