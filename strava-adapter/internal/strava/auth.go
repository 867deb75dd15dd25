package strava

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/activity-adapters/pkg/utils"
	"github.com/Checker-Finance/activity-adapters/strava-adapter/internal/metrics"
)

// TokenExchanger performs the refresh_token grant against the authorization service.
type TokenExchanger interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)
}

// CredentialStore owns the TokenSet and is its only writer. Callers get a
// non-expired access token from GetValidToken; expiry is checked lazily on
// every call and there is no background refresh.
type CredentialStore struct {
	logger    *zap.Logger
	storage   TokenStorage
	exchanger TokenExchanger

	mu      sync.Mutex
	tokens  TokenSet
	durable bool
	now     func() time.Time
}

// NewCredentialStore loads the TokenSet from storage. A missing or malformed
// source yields *ConfigurationError.
func NewCredentialStore(ctx context.Context, logger *zap.Logger, storage TokenStorage, exchanger TokenExchanger) (*CredentialStore, error) {
	tokens, err := storage.Load(ctx)
	if err != nil {
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			err = &ConfigurationError{Source: storage.Location(), Reason: "load tokens", Err: err}
		}
		return nil, err
	}

	logger.Info("strava.auth.tokens_loaded",
		zap.String("source", storage.Location()),
		zap.String("access_token", utils.MaskToken(tokens.AccessToken)),
		zap.Time("expires_at", tokens.ExpiresAt))

	return &CredentialStore{
		logger:    logger,
		storage:   storage,
		exchanger: exchanger,
		tokens:    tokens,
		durable:   true,
		now:       time.Now,
	}, nil
}

// GetValidToken returns the current access token, refreshing and persisting
// first when it has expired. The check, refresh and persist run under one lock
// so concurrent callers never exchange the same refresh token twice.
//
// When the refresh succeeds but persisting fails, the new token is returned
// together with a *PersistenceError; it is usable for this process only.
func (s *CredentialStore) GetValidToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tokens.Expired(s.now()) {
		return s.tokens.AccessToken, nil
	}

	s.logger.Info("strava.auth.token_expired",
		zap.Time("expires_at", s.tokens.ExpiresAt))

	if err := s.refreshLocked(ctx); err != nil {
		var persistErr *PersistenceError
		if errors.As(err, &persistErr) {
			return s.tokens.AccessToken, err
		}
		return "", err
	}
	return s.tokens.AccessToken, nil
}

// Refresh exchanges the current refresh token unconditionally.
func (s *CredentialStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// Durable reports whether the in-memory TokenSet matches persisted storage.
func (s *CredentialStore) Durable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durable
}

// ExpiresAt returns the expiry of the current access token.
func (s *CredentialStore) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.ExpiresAt
}

// HealthCheck probes the token storage backend.
func (s *CredentialStore) HealthCheck(ctx context.Context) error {
	return s.storage.HealthCheck(ctx)
}

// refreshLocked must be called with mu held. On exchange failure the TokenSet
// is left untouched in memory and in storage.
func (s *CredentialStore) refreshLocked(ctx context.Context) error {
	next, err := s.exchanger.Refresh(ctx, s.tokens.RefreshToken)
	if err != nil {
		result := "auth_error"
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			result = "transport_error"
		}
		metrics.IncTokenRefresh(result)
		s.logger.Warn("strava.auth.refresh_failed",
			zap.String("refresh_token", utils.MaskToken(s.tokens.RefreshToken)),
			zap.Error(err))
		return err
	}

	s.tokens = *next

	if err := s.storage.Save(ctx, *next); err != nil {
		s.durable = false
		metrics.IncTokenRefresh("persist_error")
		s.logger.Error("strava.auth.persist_failed",
			zap.String("target", s.storage.Location()),
			zap.Error(err))
		return &PersistenceError{Target: s.storage.Location(), Err: err}
	}
	s.durable = true

	metrics.IncTokenRefresh("success")
	s.logger.Info("strava.auth.token_refreshed",
		zap.String("access_token", utils.MaskToken(next.AccessToken)),
		zap.Time("expires_at", next.ExpiresAt))
	return nil
}
