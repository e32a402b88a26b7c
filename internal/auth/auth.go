// Package auth signs the user in with their Google account.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cli/browser"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mediashelf/mediashelf/internal/config"
	"github.com/mediashelf/mediashelf/internal/gravatar"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleIssuer    = "https://accounts.google.com"
	callbackPath    = "/callback"
	callbackTimeout = 2 * time.Minute

	// ScopeDriveAppData grants access to the application's private Drive folder.
	ScopeDriveAppData = "https://www.googleapis.com/auth/drive.appdata"
)

var (
	// ErrNoCachedToken is returned by Login when no usable token is cached.
	ErrNoCachedToken = errors.New("no cached token")
	// ErrStateMismatch is returned when the OAuth callback carries a foreign state.
	ErrStateMismatch = errors.New("oauth state mismatch")
	// ErrAuthTimeout is returned when the browser never reaches the callback.
	ErrAuthTimeout = errors.New("timed out waiting for the oauth callback")
	// ErrMissingCredentials is returned when no OAuth client is configured.
	ErrMissingCredentials = errors.New("missing google oauth client credentials")
)

var scopes = []string{oidc.ScopeOpenID, "email", "profile", ScopeDriveAppData}

// Authenticator runs the Google sign-in and keeps the token and profile on disk.
type Authenticator struct {
	cfg      *config.GoogleConfig
	gravatar *config.GravatarConfig
	oauth    *oauth2.Config
	tokens   *TokenCache
	sessions *SessionStore

	issuer  string
	timeout time.Duration
	openURL func(string)
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithEndpoint replaces Google's OAuth endpoint.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(a *Authenticator) { a.oauth.Endpoint = ep }
}

// WithIssuer replaces the OpenID issuer used to look up the userinfo endpoint.
func WithIssuer(issuer string) Option {
	return func(a *Authenticator) { a.issuer = issuer }
}

// WithTimeout changes how long SignIn waits for the callback.
func WithTimeout(d time.Duration) Option {
	return func(a *Authenticator) { a.timeout = d }
}

// WithURLHandler sets what happens with the consent URL. By default it is printed to stderr.
func WithURLHandler(fn func(string)) Option {
	return func(a *Authenticator) { a.openURL = fn }
}

// New creates an Authenticator from the Google configuration.
// A credentials file takes precedence over an inline client ID and secret.
func New(cfg *config.GoogleConfig, grav *config.GravatarConfig, opts ...Option) (*Authenticator, error) {
	if cfg == nil {
		return nil, ErrMissingCredentials
	}

	var oc *oauth2.Config
	switch {
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		oc, err = google.ConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
	case cfg.ClientID != "" && cfg.ClientSecret != "":
		oc = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       scopes,
		}
	default:
		return nil, ErrMissingCredentials
	}

	a := &Authenticator{
		cfg:      cfg,
		gravatar: grav,
		oauth:    oc,
		tokens:   NewTokenCache(cfg.TokenFile),
		sessions: NewSessionStore(cfg.SessionFile),
		issuer:   googleIssuer,
		timeout:  callbackTimeout,
		openURL:  openBrowser,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Sessions returns the session store.
func (a *Authenticator) Sessions() *SessionStore {
	return a.sessions
}

// Login returns the cached token, refreshing it when it expired.
// It returns ErrNoCachedToken when an interactive sign-in is needed.
func (a *Authenticator) Login(ctx context.Context) (*oauth2.Token, error) {
	tok, err := a.tokens.Load()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrNoCachedToken
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, ErrNoCachedToken
	}

	fresh, err := a.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		log.Warn("failed to refresh cached token", "error", err)
		return nil, fmt.Errorf("%w: refresh failed: %w", ErrNoCachedToken, err)
	}
	if err := a.tokens.Save(fresh); err != nil {
		log.Warn("failed to cache refreshed token", "error", err)
	}
	log.Debug("Refreshed cached token", "expiry", fresh.Expiry)
	return fresh, nil
}

type callbackResult struct {
	tok *oauth2.Token
	err error
}

// SignIn runs the interactive authorization code flow through a loopback redirect.
func (a *Authenticator) SignIn(ctx context.Context) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", a.cfg.CallbackAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for oauth callback: %w", err)
	}

	conf := *a.oauth
	conf.RedirectURL = "http://" + ln.Addr().String() + callbackPath

	state := uuid.NewString()
	authOpts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")}
	var exchangeOpts []oauth2.AuthCodeOption
	if a.cfg.UsePKCE {
		verifier := oauth2.GenerateVerifier()
		authOpts = append(authOpts, oauth2.S256ChallengeOption(verifier))
		exchangeOpts = append(exchangeOpts, oauth2.VerifierOption(verifier))
	}

	results := make(chan callbackResult, 1)
	deliver := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET(callbackPath, func(c *gin.Context) {
		if c.Query("state") != state {
			c.String(http.StatusBadRequest, "state mismatch")
			deliver(callbackResult{err: ErrStateMismatch})
			return
		}
		if msg := c.Query("error"); msg != "" {
			c.String(http.StatusBadRequest, "sign-in failed: %s", msg)
			deliver(callbackResult{err: fmt.Errorf("google sign-in failed: %s", msg)})
			return
		}
		tok, err := conf.Exchange(c.Request.Context(), c.Query("code"), exchangeOpts...)
		if err != nil {
			c.String(http.StatusInternalServerError, "token exchange failed")
			deliver(callbackResult{err: fmt.Errorf("failed to exchange code: %w", err)})
			return
		}
		c.String(http.StatusOK, "Signed in to mediashelf. You can close this window.")
		deliver(callbackResult{tok: tok})
	})

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(callbackResult{err: fmt.Errorf("oauth callback server: %w", err)})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.openURL(conf.AuthCodeURL(state, authOpts...))

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	var res callbackResult
	select {
	case res = <-results:
	case <-timer.C:
		return nil, ErrAuthTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		log.Error("failed to sign in", "error", res.err)
		return nil, res.err
	}

	if err := a.tokens.Save(res.tok); err != nil {
		log.Warn("failed to cache token", "error", err)
	}
	log.Info("Signed in with Google")
	return res.tok, nil
}

// Profile fetches the account's basic profile from the userinfo endpoint.
// An empty picture falls back to Gravatar when it is enabled.
func (a *Authenticator) Profile(ctx context.Context, tok *oauth2.Token) (*Profile, error) {
	provider, err := oidc.NewProvider(ctx, a.issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider: %w", err)
	}
	info, err := provider.UserInfo(ctx, a.oauth.TokenSource(ctx, tok))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := info.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &Profile{
		ID:         info.Subject,
		Email:      info.Email,
		Name:       claims.Name,
		ProfilePic: gravatar.Picture(claims.Picture, info.Email, a.gravatar),
	}, nil
}

// Authenticate signs in with the cached token or interactively, then stores the profile.
func (a *Authenticator) Authenticate(ctx context.Context) (*oauth2.Token, *Profile, error) {
	tok, err := a.Login(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoCachedToken) {
			return nil, nil, err
		}
		log.Info("No usable cached token, starting Google sign-in")
		if tok, err = a.SignIn(ctx); err != nil {
			return nil, nil, err
		}
	}

	profile, err := a.Profile(ctx, tok)
	if err != nil {
		return nil, nil, err
	}
	if err := a.sessions.Save(profile); err != nil {
		return nil, nil, err
	}
	log.Info("Signed in", "email", profile.Email, "name", profile.Name)
	return tok, profile, nil
}

// Client returns an HTTP client that authorizes requests with tok and refreshes it.
func (a *Authenticator) Client(ctx context.Context, tok *oauth2.Token) *http.Client {
	return a.oauth.Client(ctx, tok)
}

// Logout forgets the cached token and the session.
func (a *Authenticator) Logout() error {
	return errors.Join(a.tokens.Delete(), a.sessions.Clear())
}

// openBrowser prints the sign-in URL and tries to open it in the default browser.
func openBrowser(u string) {
	fmt.Fprintf(os.Stderr, "\nOpen this URL in your browser to sign in:\n\n  %s\n\n", u)
	if err := browser.OpenURL(u); err != nil {
		log.Debug("failed to open browser", "error", err)
	}
}
