// package auth manages the implicit-grant session credential
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/services"
	"github.com/desertthunder/ytloop/internal/shared"
)

const (
	nonceKey = "oauth_state"

	// DefaultRenewalLead is how long before expiry the renewal warning fires.
	DefaultRenewalLead = 60 * time.Second

	defaultAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultScope   = "https://www.googleapis.com/auth/youtube.readonly"
)

// Options configures a [Store].
type Options struct {
	Credentials shared.YouTubeConfig
	RenewalLead time.Duration
	Clock       shared.Clock
	Storage     SessionStorage
	HTTPClient  *http.Client
	Logger      *log.Logger
}

// Store holds the one session credential of the process.
type Store struct {
	mu         sync.Mutex
	oauth      *oauth2.Config
	revokeURL  string
	lead       time.Duration
	clock      shared.Clock
	storage    SessionStorage
	client     *http.Client
	logger     *log.Logger
	session    *models.Session
	renewal    shared.Timer
	onExpiring func()
}

// New creates a [Store] with defaults for any zero-valued option.
func New(opts Options) *Store {
	creds := opts.Credentials
	authURL := creds.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}
	scope := creds.Scope
	if scope == "" {
		scope = defaultScope
	}

	lead := opts.RenewalLead
	if lead <= 0 {
		lead = DefaultRenewalLead
	}
	clock := opts.Clock
	if clock == nil {
		clock = shared.RealClock{}
	}
	storage := opts.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Store{
		oauth: &oauth2.Config{
			ClientID:    creds.ClientID,
			RedirectURL: creds.RedirectURI,
			Scopes:      strings.Fields(scope),
			Endpoint:    oauth2.Endpoint{AuthURL: authURL},
		},
		revokeURL: creds.RevokeURL,
		lead:      lead,
		clock:     clock,
		storage:   storage,
		client:    client,
		logger:    shared.WithLogger(logger, "component", "auth"),
	}
}

// OnExpiring sets the hook run when the renewal warning fires.
func (s *Store) OnExpiring(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpiring = fn
}

// BeginLogin stores a fresh nonce and returns the authorization URL that carries it.
func (s *Store) BeginLogin() (string, error) {
	if s.oauth.ClientID == "" {
		return "", fmt.Errorf("%w: credentials.youtube.client_id", shared.ErrMissingCredentials)
	}
	if s.oauth.RedirectURL == "" {
		return "", fmt.Errorf("%w: credentials.youtube.redirect_uri", shared.ErrMissingCredentials)
	}

	nonce := uuid.NewString()
	s.storage.Set(nonceKey, nonce)

	return s.oauth.AuthCodeURL(nonce,
		oauth2.SetAuthURLParam("response_type", "token"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// CompleteLogin parses the callback fragment and creates the session.
//
// The stored nonce is consumed on every call. The fragment itself is never retained.
func (s *Store) CompleteLogin(fragment string) (models.Session, error) {
	expected, ok := s.storage.Get(nonceKey)
	s.storage.Delete(nonceKey)

	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: malformed callback: %v", shared.ErrAuthFailed, err)
	}

	state := values.Get("state")
	if !ok || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		s.logger.Warn("login callback rejected", "reason", "state mismatch", "had_nonce", ok)
		return models.Session{}, shared.ErrCSRFMismatch
	}

	if e := values.Get("error"); e != "" {
		return models.Session{}, fmt.Errorf("%w: %s", shared.ErrAuthFailed, e)
	}

	token := values.Get("access_token")
	if token == "" {
		return models.Session{}, fmt.Errorf("%w: callback carried no access token", shared.ErrAuthFailed)
	}

	seconds, err := strconv.Atoi(values.Get("expires_in"))
	if err != nil || seconds <= 0 {
		return models.Session{}, fmt.Errorf("%w: invalid expires_in %q", shared.ErrAuthFailed, values.Get("expires_in"))
	}
	ttl := time.Duration(seconds) * time.Second

	session := models.Session{
		AccessToken: token,
		ExpiresAt:   s.clock.Now().Add(ttl),
		Nonce:       state,
	}

	s.mu.Lock()
	if s.renewal != nil {
		s.renewal.Stop()
	}
	s.session = &session
	s.renewal = s.clock.AfterFunc(max(0, ttl-s.lead), s.expiring)
	s.mu.Unlock()

	s.logger.Info("signed in", "expires_at", session.ExpiresAt.Format(time.RFC3339))
	return session, nil
}

func (s *Store) expiring() {
	s.mu.Lock()
	s.renewal = nil
	hook := s.onExpiring
	s.mu.Unlock()

	s.logger.Warn("access token is about to expire, ending session")
	if hook != nil {
		hook()
		return
	}
	s.Clear(context.Background(), "expiring")
}

// Session returns a copy of the current session.
func (s *Store) Session() (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return models.Session{}, false
	}
	return *s.session, true
}

// Authenticated reports whether a session exists.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Token implements [oauth2.TokenSource].
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if !s.session.Valid(s.clock.Now()) {
		return nil, shared.ErrTokenExpired
	}
	return &oauth2.Token{
		AccessToken: s.session.AccessToken,
		TokenType:   "Bearer",
		Expiry:      s.session.ExpiresAt,
	}, nil
}

// Clear ends the session, cancels the renewal timer and revokes the credential.
//
// It reports whether a session existed.
func (s *Store) Clear(ctx context.Context, reason string) bool {
	s.mu.Lock()
	session := s.session
	s.session = nil
	if s.renewal != nil {
		s.renewal.Stop()
		s.renewal = nil
	}
	s.mu.Unlock()

	s.storage.Delete(nonceKey)
	if session == nil {
		return false
	}

	if err := services.Revoke(ctx, s.client, s.revokeURL, session.AccessToken); err != nil {
		s.logger.Warn("failed to revoke token", "reason", reason, "error", err)
	}
	s.logger.Info("signed out", "reason", reason)
	return true
}
