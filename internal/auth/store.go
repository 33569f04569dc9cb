package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"spotify-cli/internal/shared"
)

// RefreshMargin is the safety window before expiry inside which the access
// token is treated as already expired.
const RefreshMargin = 30 * time.Second

// TokenPair is the persisted token file payload.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        []string  `json:"scope,omitempty"`
}

// usable reports whether the pair carries enough to authorize requests with.
func (p *TokenPair) usable() bool {
	return p != nil && p.AccessToken != "" && !p.ExpiresAt.IsZero()
}

// ValidAt reports whether the access token is still valid at now, with the
// refresh margin applied.
func (p *TokenPair) ValidAt(now time.Time) bool {
	return p.usable() && now.Before(p.ExpiresAt.Add(-RefreshMargin))
}

// PairFromToken converts an oauth2 token into the persisted form.
func PairFromToken(token *oauth2.Token) *TokenPair {
	pair := &TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		pair.Scope = strings.Fields(scope)
	}
	return pair
}

// Store owns the on-disk token pair and its refresh lifecycle.
//
// Every API command's credential passes through [Store.GetValidAccessToken].
// The store classifies refresh failures but never starts an authorization
// flow itself; that stays with the caller.
type Store struct {
	path   string
	config *oauth2.Config
	logger *log.Logger

	mu     sync.Mutex
	cached *TokenPair
	loaded bool

	now func() time.Time
}

// NewStore creates a Store persisting to path and refreshing through the
// given oauth2 config's token endpoint.
func NewStore(path string, config *oauth2.Config, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Store{
		path:   path,
		config: config,
		logger: shared.WithLogger(logger, "component", "tokenstore"),
		now:    time.Now,
	}
}

// Path returns the token file location.
func (s *Store) Path() string {
	return s.path
}

// GetValidAccessToken returns an access token that is valid for at least the
// refresh margin, refreshing on demand.
//
// A cached valid token is returned with zero network traffic. Expired tokens
// are refreshed exactly once even under concurrent callers. A refresh the
// provider rejects as an auth failure clears the stored pair and returns
// [shared.ErrReauthorizationRequired]; transport failures keep the pair and
// return [shared.ErrRefreshFailed] so a later call may succeed.
func (s *Store) GetValidAccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, err := s.load()
	if err != nil {
		return "", err
	}
	if pair == nil {
		return "", fmt.Errorf("%w: no saved token, run `spotify-cli auth login`", shared.ErrNotAuthenticated)
	}

	if pair.ValidAt(s.now()) {
		return pair.AccessToken, nil
	}

	if pair.RefreshToken == "" {
		if err := s.clearLocked(); err != nil {
			s.logger.Warn("failed to clear token file", "error", err)
		}
		return "", fmt.Errorf("%w: access token expired and no refresh token is saved", shared.ErrReauthorizationRequired)
	}

	refreshed, err := s.refreshLocked(ctx, pair)
	if err != nil {
		return "", err
	}

	return refreshed.AccessToken, nil
}

// Save persists the pair atomically with user-only permissions.
func (s *Store) Save(pair *TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(pair)
}

// Load reads the pair from disk, bypassing the in-memory cache. Never
// touches the network. Absent, corrupt, or incomplete files return
// [shared.ErrNotAuthenticated].
func (s *Store) Load() (*TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	pair, err := s.load()
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, fmt.Errorf("%w: no saved token at %s", shared.ErrNotAuthenticated, s.path)
	}

	return pair, nil
}

// Clear removes the token file and drops the cache. A missing file is not
// an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// TokenSource adapts the store to [oauth2.TokenSource] so HTTP clients
// route every request's credential through GetValidAccessToken.
func (s *Store) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: s}
}

// load returns the cached pair, reading the file on first use. Absent,
// corrupt, or incomplete files yield nil without error; the caller decides
// what absence means.
func (s *Store) load() (*TokenPair, error) {
	if s.loaded {
		return s.cached, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.cached = nil
		s.loaded = true
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		s.logger.Warn("token file is corrupt, treating as absent", "path", s.path, "error", err)
		s.cached = nil
		s.loaded = true
		return nil, nil
	}

	// A pair missing both a usable access token and a refresh token is
	// broken auth state, indistinguishable from never having logged in.
	if !pair.usable() && pair.RefreshToken == "" {
		s.logger.Warn("token file is incomplete, treating as absent", "path", s.path)
		s.cached = nil
		s.loaded = true
		return nil, nil
	}

	s.cached = &pair
	s.loaded = true
	return s.cached, nil
}

func (s *Store) refreshLocked(ctx context.Context, pair *TokenPair) (*TokenPair, error) {
	s.logger.Debug("refreshing access token", "expires_at", pair.ExpiresAt)

	src := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: pair.RefreshToken})
	token, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && isAuthFailure(retrieveErr) {
			if clearErr := s.clearLocked(); clearErr != nil {
				s.logger.Warn("failed to clear token file", "error", clearErr)
			}
			return nil, fmt.Errorf("%w: refresh token rejected, run `spotify-cli auth login`", shared.ErrReauthorizationRequired)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	refreshed := PairFromToken(token)
	if refreshed.RefreshToken == "" {
		// Providers may omit the refresh token on refresh responses.
		refreshed.RefreshToken = pair.RefreshToken
	}
	if len(refreshed.Scope) == 0 {
		refreshed.Scope = pair.Scope
	}

	if err := s.saveLocked(refreshed); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	s.logger.Debug("access token refreshed", "expires_at", refreshed.ExpiresAt)
	return refreshed, nil
}

func (s *Store) saveLocked(pair *TokenPair) error {
	data, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token pair: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move token file into place: %w", err)
	}

	s.cached = pair
	s.loaded = true
	return nil
}

func (s *Store) clearLocked() error {
	s.cached = nil
	s.loaded = true

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}

	return nil
}

// isAuthFailure reports whether the token endpoint rejected the refresh as
// an authorization problem rather than a transient transport fault.
func isAuthFailure(err *oauth2.RetrieveError) bool {
	if err.Response == nil {
		return false
	}
	code := err.Response.StatusCode
	return code == http.StatusBadRequest || code == http.StatusUnauthorized
}

type storeTokenSource struct {
	ctx   context.Context
	store *Store
}

func (ts *storeTokenSource) Token() (*oauth2.Token, error) {
	access, err := ts.store.GetValidAccessToken(ts.ctx)
	if err != nil {
		return nil, err
	}

	ts.store.mu.Lock()
	var expiry time.Time
	if ts.store.cached != nil {
		expiry = ts.store.cached.ExpiresAt
	}
	ts.store.mu.Unlock()

	return &oauth2.Token{AccessToken: access, TokenType: "Bearer", Expiry: expiry}, nil
}
