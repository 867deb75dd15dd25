package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	pkgsecrets "github.com/Checker-Finance/activity-adapters/pkg/secrets"
)

// AWSResolver resolves per-subject configuration from a secrets Provider,
// caching results locally to reduce API calls. It is generic over the
// resolved config type T so each adapter supplies only its parse function.
//
// Secret naming convention: {env}/{subject}/{venue}
type AWSResolver[T any] struct {
	logger   *zap.Logger
	env      string
	venue    string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[T]
}

// NewAWSResolver constructs a generic config resolver.
func NewAWSResolver[T any](
	logger *zap.Logger,
	env string,
	venue string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[T],
) *AWSResolver[T] {
	return &AWSResolver[T]{
		logger:   logger,
		env:      env,
		venue:    venue,
		provider: provider,
		cache:    cache,
	}
}

func (r *AWSResolver[T]) cacheKey(subject string) string {
	return strings.ToLower(fmt.Sprintf("%s|%s", subject, r.venue))
}

// SecretName builds the secret key for a subject: {env}/{subject}/{venue}.
func (r *AWSResolver[T]) SecretName(subject string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, subject, r.venue))
}

// Resolve fetches or returns the cached config T for subject.
// parse extracts T from the raw secret map; it should validate required fields.
func (r *AWSResolver[T]) Resolve(ctx context.Context, subject string, parse func(map[string]string) (T, error)) (T, error) {
	key := r.cacheKey(subject)

	if cfg, ok := r.cache.Get(key); ok {
		return cfg, nil
	}

	secretName := r.SecretName(subject)
	secretMap, err := r.provider.GetSecret(ctx, secretName)
	if err != nil {
		r.logger.Warn("secrets.fetch_failed",
			zap.String("key", secretName),
			zap.Error(err))
		var zero T
		return zero, fmt.Errorf("resolve config for %q: %w", subject, err)
	}

	cfg, err := parse(secretMap)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("parse secret %q: %w", secretName, err)
	}

	r.cache.Put(key, cfg)

	r.logger.Info("secrets.config_resolved",
		zap.String("subject", subject),
		zap.String("venue", r.venue),
	)
	return cfg, nil
}
