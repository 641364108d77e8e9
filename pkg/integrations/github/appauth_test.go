package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// fakeTokenServer serves the installation token endpoint, verifying the app
// assertion against the test key. It counts exchanges.
type fakeTokenServer struct {
	*httptest.Server
	exchanges atomic.Int32
	status    int
	expiresIn time.Duration // 0 omits expires_at
}

func newFakeTokenServer(t *testing.T) *fakeTokenServer {
	t.Helper()
	key := rsaTestKey(t)
	f := &fakeTokenServer{status: http.StatusCreated, expiresIn: time.Hour}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/app/installations/42/access_tokens" {
			http.NotFound(w, r)
			return
		}
		n := f.exchanges.Add(1)

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		// Claims are checked by hand: tests move the manager's clock forward.
		claims := &jwt.RegisteredClaims{}
		parser := jwt.Parser{SkipClaimsValidation: true}
		tok, err := parser.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
			if tok.Method != jwt.SigningMethodRS256 {
				t.Errorf("signing method = %v, want RS256", tok.Method.Alg())
			}
			return &key.PublicKey, nil
		})
		if err != nil || !tok.Valid {
			t.Errorf("invalid app assertion: %v", err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if claims.Issuer != "1234" {
			t.Errorf("iss = %q, want 1234", claims.Issuer)
		}
		if d := claims.ExpiresAt.Sub(claims.IssuedAt.Time); d != 660*time.Second {
			t.Errorf("exp - iat = %v, want 11m", d)
		}

		if f.status != http.StatusCreated {
			w.WriteHeader(f.status)
			return
		}
		body := map[string]any{"token": "ghs_installation_" + string(rune('0'+n))}
		if f.expiresIn > 0 {
			body["expires_at"] = time.Now().Add(f.expiresIn).UTC().Format(time.RFC3339)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(f.Close)
	return f
}

func appManager(f *fakeTokenServer, privateKey, static string) *CredentialManager {
	return NewCredentialManager(CredentialConfig{
		AppID:          "1234",
		InstallationID: "42",
		PrivateKey:     privateKey,
		StaticToken:    static,
		APIURL:         f.URL,
		HTTPClient:     f.Client(),
	})
}

func TestCredentialManagerKeyEncodings(t *testing.T) {
	f := newFakeTokenServer(t)

	for name, raw := range keyEncodings(t, rsaTestKey(t)) {
		t.Run(name, func(t *testing.T) {
			m := appManager(f, raw, "")
			h := m.AuthHeaders(context.Background())
			if !strings.HasPrefix(h["Authorization"], "Bearer ghs_installation_") {
				t.Errorf("Authorization = %q, want installation token", h["Authorization"])
			}
			if m.Mode() != AuthModeApp {
				t.Errorf("Mode() = %q", m.Mode())
			}
		})
	}
}

func TestCredentialManagerCachesToken(t *testing.T) {
	f := newFakeTokenServer(t)
	m := appManager(f, pkcs1PEM(rsaTestKey(t)), "")
	ctx := context.Background()

	first := m.AuthHeaders(ctx)["Authorization"]
	second := m.AuthHeaders(ctx)["Authorization"]
	if first != second {
		t.Errorf("cached token changed: %q then %q", first, second)
	}
	if n := f.exchanges.Load(); n != 1 {
		t.Errorf("exchanges = %d, want 1", n)
	}

	m.Reset()
	m.AuthHeaders(ctx)
	if n := f.exchanges.Load(); n != 2 {
		t.Errorf("exchanges after Reset = %d, want 2", n)
	}
}

func TestCredentialManagerRefreshesNearExpiry(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn time.Duration
	}{
		{"expires_at reported", time.Hour},
		{"expires_at missing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeTokenServer(t)
			f.expiresIn = tt.expiresIn
			m := appManager(f, pkcs1PEM(rsaTestKey(t)), "")
			ctx := context.Background()

			base := time.Now()
			m.now = func() time.Time { return base }
			m.AuthHeaders(ctx)
			m.AuthHeaders(ctx)
			if n := f.exchanges.Load(); n != 1 {
				t.Errorf("exchanges after reuse = %d, want 1", n)
			}

			// 54 minutes later the token is still more than 5 minutes from expiry.
			m.now = func() time.Time { return base.Add(54 * time.Minute) }
			m.AuthHeaders(ctx)
			if n := f.exchanges.Load(); n != 1 {
				t.Errorf("exchanges at 54m = %d, want 1", n)
			}

			m.now = func() time.Time { return base.Add(56 * time.Minute) }
			m.AuthHeaders(ctx)
			if n := f.exchanges.Load(); n != 2 {
				t.Errorf("exchanges at 56m = %d, want 2", n)
			}
		})
	}
}

func TestCredentialManagerFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("exchange failure uses static token", func(t *testing.T) {
		f := newFakeTokenServer(t)
		f.status = http.StatusInternalServerError
		m := appManager(f, pkcs1PEM(rsaTestKey(t)), "ghp_static")

		if got := m.AuthHeaders(ctx)["Authorization"]; got != "Bearer ghp_static" {
			t.Errorf("Authorization = %q, want static token", got)
		}
		// Cooldown: a second call does not hit the exchange again.
		m.AuthHeaders(ctx)
		if n := f.exchanges.Load(); n != 1 {
			t.Errorf("exchanges = %d, want 1 during cooldown", n)
		}
	})

	t.Run("bad key uses static token", func(t *testing.T) {
		f := newFakeTokenServer(t)
		m := appManager(f, "not a key", "ghp_static")
		if got := m.AuthHeaders(ctx)["Authorization"]; got != "Bearer ghp_static" {
			t.Errorf("Authorization = %q, want static token", got)
		}
		if n := f.exchanges.Load(); n != 0 {
			t.Errorf("exchanges = %d, want 0", n)
		}
	})

	t.Run("static only", func(t *testing.T) {
		m := NewCredentialManager(CredentialConfig{StaticToken: "ghp_static"})
		if m.Mode() != AuthModeToken {
			t.Errorf("Mode() = %q", m.Mode())
		}
		if got := m.AuthHeaders(ctx)["Authorization"]; got != "Bearer ghp_static" {
			t.Errorf("Authorization = %q", got)
		}
	})

	t.Run("nothing configured is anonymous", func(t *testing.T) {
		m := NewCredentialManager(CredentialConfig{})
		if m.Mode() != AuthModeAnonymous {
			t.Errorf("Mode() = %q", m.Mode())
		}
		if h := m.AuthHeaders(ctx); len(h) != 0 {
			t.Errorf("AuthHeaders() = %v, want empty", h)
		}
	})

	t.Run("partial app config is ignored", func(t *testing.T) {
		m := NewCredentialManager(CredentialConfig{AppID: "1234", StaticToken: "ghp_static"})
		if m.HasApp() {
			t.Error("HasApp() should be false without installation id and key")
		}
		if got := m.AuthHeaders(ctx)["Authorization"]; got != "Bearer ghp_static" {
			t.Errorf("Authorization = %q", got)
		}
	})
}

func TestSignAssertionClaims(t *testing.T) {
	key := rsaTestKey(t)
	now := time.Unix(1_700_000_000, 0)

	signed, err := signAssertion(key, "99", now)
	if err != nil {
		t.Fatalf("signAssertion() error: %v", err)
	}

	claims := &jwt.RegisteredClaims{}
	parser := jwt.Parser{SkipClaimsValidation: true}
	if _, err := parser.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Issuer != "99" {
		t.Errorf("iss = %q", claims.Issuer)
	}
	if got := claims.IssuedAt.Unix(); got != now.Unix()-60 {
		t.Errorf("iat = %d, want now-60", got)
	}
	if got := claims.ExpiresAt.Unix(); got != now.Unix()+600 {
		t.Errorf("exp = %d, want now+600", got)
	}
}
