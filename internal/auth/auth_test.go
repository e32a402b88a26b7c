package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeGoogle struct {
	*httptest.Server
	refreshes atomic.Int32
	exchanges atomic.Int32
	verifier  atomic.Value // last code_verifier seen
	picture   string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	g := &fakeGoogle{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("grant_type") {
		case "refresh_token":
			g.refreshes.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "refreshed", "token_type": "Bearer", "expires_in": 3600,
			})
		case "authorization_code":
			g.exchanges.Add(1)
			g.verifier.Store(r.PostForm.Get("code_verifier"))
			if r.PostForm.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "fresh", "refresh_token": "rt", "token_type": "Bearer", "expires_in": 3600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                g.URL,
			"authorization_endpoint":                g.URL + "/auth",
			"token_endpoint":                        g.URL + "/token",
			"jwks_uri":                              g.URL + "/certs",
			"userinfo_endpoint":                     g.URL + "/userinfo",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":            "1098",
			"email":          "test@example.com",
			"email_verified": true,
			"name":           "Test User",
			"picture":        g.picture,
		})
	})
	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Close)
	return g
}

func (g *fakeGoogle) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   g.URL + "/auth",
		TokenURL:  g.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func testGoogleConfig(t *testing.T) *config.GoogleConfig {
	dir := t.TempDir()
	return &config.GoogleConfig{
		Enabled:      true,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenFile:    filepath.Join(dir, "token.json"),
		SessionFile:  filepath.Join(dir, "session.json"),
		CallbackAddr: "127.0.0.1:0",
		UsePKCE:      true,
	}
}

// fakeBrowser returns a URL handler that follows the consent URL back to the callback.
func fakeBrowser(t *testing.T, code string, tamper func(url.Values)) func(string) {
	return func(consent string) {
		u, err := url.Parse(consent)
		if !assert.NoError(t, err) {
			return
		}
		q := u.Query()
		cb := url.Values{"code": {code}, "state": {q.Get("state")}}
		if tamper != nil {
			tamper(cb)
		}
		go func() {
			resp, err := http.Get(q.Get("redirect_uri") + "?" + cb.Encode())
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(&config.GoogleConfig{}, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = New(nil, nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = New(&config.GoogleConfig{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}, nil)
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	g := newFakeGoogle(t)

	t.Run("no cached token", func(t *testing.T) {
		a, err := New(testGoogleConfig(t), nil, WithEndpoint(g.endpoint()))
		require.NoError(t, err)
		_, err = a.Login(context.Background())
		assert.ErrorIs(t, err, ErrNoCachedToken)
	})

	t.Run("valid token is used as is", func(t *testing.T) {
		cfg := testGoogleConfig(t)
		require.NoError(t, NewTokenCache(cfg.TokenFile).Save(&oauth2.Token{
			AccessToken: "cached", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour),
		}))
		a, err := New(cfg, nil, WithEndpoint(g.endpoint()))
		require.NoError(t, err)

		tok, err := a.Login(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cached", tok.AccessToken)
	})

	t.Run("expired token is refreshed and saved", func(t *testing.T) {
		cfg := testGoogleConfig(t)
		require.NoError(t, NewTokenCache(cfg.TokenFile).Save(&oauth2.Token{
			AccessToken: "stale", RefreshToken: "rt", TokenType: "Bearer", Expiry: time.Now().Add(-time.Hour),
		}))
		a, err := New(cfg, nil, WithEndpoint(g.endpoint()))
		require.NoError(t, err)

		before := g.refreshes.Load()
		tok, err := a.Login(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "refreshed", tok.AccessToken)
		assert.Equal(t, "rt", tok.RefreshToken)
		assert.Equal(t, before+1, g.refreshes.Load())

		saved, err := NewTokenCache(cfg.TokenFile).Load()
		require.NoError(t, err)
		assert.Equal(t, "refreshed", saved.AccessToken)
	})

	t.Run("expired token without refresh token", func(t *testing.T) {
		cfg := testGoogleConfig(t)
		require.NoError(t, NewTokenCache(cfg.TokenFile).Save(&oauth2.Token{
			AccessToken: "stale", TokenType: "Bearer", Expiry: time.Now().Add(-time.Hour),
		}))
		a, err := New(cfg, nil, WithEndpoint(g.endpoint()))
		require.NoError(t, err)
		_, err = a.Login(context.Background())
		assert.ErrorIs(t, err, ErrNoCachedToken)
	})
}

func TestSignIn(t *testing.T) {
	g := newFakeGoogle(t)
	cfg := testGoogleConfig(t)

	var consent string
	handler := fakeBrowser(t, "good-code", nil)
	a, err := New(cfg, nil,
		WithEndpoint(g.endpoint()),
		WithURLHandler(func(u string) {
			consent = u
			handler(u)
		}),
	)
	require.NoError(t, err)

	tok, err := a.SignIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)

	u, err := url.Parse(consent)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Contains(t, q.Get("scope"), ScopeDriveAppData)
	assert.NotEmpty(t, g.verifier.Load())

	cached, err := NewTokenCache(cfg.TokenFile).Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", cached.AccessToken)
}

func TestSignIn_StateMismatch(t *testing.T) {
	g := newFakeGoogle(t)
	a, err := New(testGoogleConfig(t), nil,
		WithEndpoint(g.endpoint()),
		WithURLHandler(fakeBrowser(t, "good-code", func(v url.Values) { v.Set("state", "forged") })),
	)
	require.NoError(t, err)

	_, err = a.SignIn(context.Background())
	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.Zero(t, g.exchanges.Load())
}

func TestSignIn_ExchangeFails(t *testing.T) {
	g := newFakeGoogle(t)
	a, err := New(testGoogleConfig(t), nil,
		WithEndpoint(g.endpoint()),
		WithURLHandler(fakeBrowser(t, "bad-code", nil)),
	)
	require.NoError(t, err)

	_, err = a.SignIn(context.Background())
	assert.Error(t, err)
}

func TestSignIn_Timeout(t *testing.T) {
	g := newFakeGoogle(t)
	a, err := New(testGoogleConfig(t), nil,
		WithEndpoint(g.endpoint()),
		WithTimeout(50*time.Millisecond),
		WithURLHandler(func(string) {}),
	)
	require.NoError(t, err)

	_, err = a.SignIn(context.Background())
	assert.ErrorIs(t, err, ErrAuthTimeout)
}

func TestAuthenticate_StoresProfileWithGravatarFallback(t *testing.T) {
	g := newFakeGoogle(t)
	cfg := testGoogleConfig(t)
	grav := &config.GravatarConfig{Enabled: true, DefaultImage: "robohash"}

	a, err := New(cfg, grav,
		WithEndpoint(g.endpoint()),
		WithIssuer(g.URL),
		WithURLHandler(fakeBrowser(t, "good-code", nil)),
	)
	require.NoError(t, err)

	tok, profile, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, "1098", profile.ID)
	assert.Equal(t, "test@example.com", profile.Email)
	assert.Equal(t, "Test User", profile.Name)
	assert.Contains(t, profile.ProfilePic, "gravatar.com/avatar/")
	assert.Contains(t, profile.ProfilePic, "d=robohash")

	stored, err := a.Sessions().Load()
	require.NoError(t, err)
	assert.Equal(t, profile, stored)

	// the second run uses the cached token without a browser round trip
	exchanges := g.exchanges.Load()
	_, _, err = a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exchanges, g.exchanges.Load())

	require.NoError(t, a.Logout())
	stored, err = a.Sessions().Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestProfile_KeepsGooglePicture(t *testing.T) {
	g := newFakeGoogle(t)
	g.picture = "https://lh3.googleusercontent.com/a/photo.jpg"

	a, err := New(testGoogleConfig(t), &config.GravatarConfig{Enabled: true}, WithIssuer(g.URL))
	require.NoError(t, err)

	p, err := a.Profile(context.Background(), &oauth2.Token{
		AccessToken: "fresh", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, g.picture, p.ProfilePic)
}
