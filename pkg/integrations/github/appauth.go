package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"

	"github.com/matzehuels/skillindex/pkg/buildinfo"
	"github.com/matzehuels/skillindex/pkg/integrations"
)

const (
	assertionBackdate = 60 * time.Second
	assertionLifetime = 600 * time.Second
	tokenEarlyExpiry  = 5 * time.Minute
	exchangeCooldown  = time.Minute
	// installation tokens live one hour; used when a response omits expires_at
	defaultTokenLifetime = time.Hour
)

// AuthMode describes which credential the manager hands out.
type AuthMode string

const (
	AuthModeApp       AuthMode = "app"
	AuthModeToken     AuthMode = "token"
	AuthModeAnonymous AuthMode = "anonymous"
)

// CredentialConfig configures a CredentialManager.
// App credentials take precedence; StaticToken is the fallback.
type CredentialConfig struct {
	AppID          string
	InstallationID string
	PrivateKey     string // PEM, PEM with literal \n, or base64
	StaticToken    string
	APIURL         string
	HTTPClient     *http.Client
	Logger         *log.Logger
}

// CredentialManager turns GitHub App credentials (or a static token) into
// request headers. Installation tokens are cached on the manager until five
// minutes before they expire.
//
// It is safe for concurrent use.
type CredentialManager struct {
	appID          string
	installationID string
	privateKey     string
	static         oauth2.TokenSource
	apiURL         string
	http           *integrations.Client
	logger         *log.Logger
	now            func() time.Time

	mu          sync.Mutex
	key         *rsa.PrivateKey
	token       *oauth2.Token
	failedUntil time.Time
}

// NewCredentialManager creates a manager. It performs no I/O.
func NewCredentialManager(cfg CredentialConfig) *CredentialManager {
	m := &CredentialManager{
		appID:          strings.TrimSpace(cfg.AppID),
		installationID: strings.TrimSpace(cfg.InstallationID),
		privateKey:     cfg.PrivateKey,
		apiURL:         strings.TrimSuffix(cfg.APIURL, "/"),
		logger:         cfg.Logger,
		now:            time.Now,
		http: integrations.NewClient(nil, "", 0, map[string]string{
			"Accept":     "application/vnd.github+json",
			"User-Agent": buildinfo.UserAgent(),
		}),
	}
	if m.apiURL == "" {
		m.apiURL = DefaultAPIURL
	}
	if tok := strings.TrimSpace(cfg.StaticToken); tok != "" {
		m.static = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"})
	}
	if cfg.HTTPClient != nil {
		m.http.SetHTTPClient(cfg.HTTPClient)
	}
	if m.logger == nil {
		m.logger = log.New(io.Discard)
	}
	return m
}

// HasApp reports whether app id, installation id and private key are all set.
func (m *CredentialManager) HasApp() bool {
	return m.appID != "" && m.installationID != "" && strings.TrimSpace(m.privateKey) != ""
}

// Mode reports the configured credential kind, without contacting GitHub.
func (m *CredentialManager) Mode() AuthMode {
	switch {
	case m.HasApp():
		return AuthModeApp
	case m.static != nil:
		return AuthModeToken
	default:
		return AuthModeAnonymous
	}
}

// AuthHeaders returns the Authorization header for the best available
// credential: a cached or freshly exchanged installation token, then the
// static token, then nothing. Failures are logged and never returned.
func (m *CredentialManager) AuthHeaders(ctx context.Context) map[string]string {
	if m.HasApp() {
		tok, err := m.installationToken(ctx)
		if err == nil {
			return bearer(tok.AccessToken)
		}
		m.logger.Warn("github app authentication failed, falling back", "err", err)
	}
	if m.static != nil {
		if tok, err := m.static.Token(); err == nil {
			return bearer(tok.AccessToken)
		}
	}
	return map[string]string{}
}

// Reset drops the cached installation token, the parsed key and any
// exchange cooldown.
func (m *CredentialManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	m.key = nil
	m.failedUntil = time.Time{}
}

func (m *CredentialManager) installationToken(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.token != nil && now.Before(m.token.Expiry) {
		return m.token, nil
	}
	if now.Before(m.failedUntil) {
		return nil, fmt.Errorf("installation token exchange failed recently, retrying after %s",
			m.failedUntil.Format(time.RFC3339))
	}

	tok, err := m.exchange(ctx, now)
	if err != nil {
		m.failedUntil = now.Add(exchangeCooldown)
		return nil, err
	}
	m.token = tok
	m.logger.Debug("github installation token acquired", "expires", tok.Expiry.Format(time.RFC3339))
	return tok, nil
}

// exchange signs an app assertion and trades it for an installation token.
// The caller holds m.mu.
func (m *CredentialManager) exchange(ctx context.Context, now time.Time) (*oauth2.Token, error) {
	if m.key == nil {
		key, err := ParsePrivateKey(m.privateKey)
		if err != nil {
			return nil, err
		}
		m.key = key
	}
	assertion, err := signAssertion(m.key, m.appID, now)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/app/installations/%s/access_tokens", m.apiURL, m.installationID)
	var res installationToken
	if err := m.http.PostJSON(ctx, url, bearer(assertion), nil, &res); err != nil {
		return nil, fmt.Errorf("exchange installation token: %w", err)
	}
	if res.Token == "" {
		return nil, fmt.Errorf("exchange installation token: empty token in response")
	}
	expires := res.ExpiresAt
	if expires.IsZero() {
		expires = now.Add(defaultTokenLifetime)
	}
	return &oauth2.Token{
		AccessToken: res.Token,
		TokenType:   "Bearer",
		Expiry:      expires.Add(-tokenEarlyExpiry),
	}, nil
}

// signAssertion builds the RS256 app JWT: issuer is the app id, issued a
// minute in the past to absorb clock skew, valid for ten minutes.
func signAssertion(key *rsa.PrivateKey, appID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-assertionBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign app assertion: %w", err)
	}
	return signed, nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
