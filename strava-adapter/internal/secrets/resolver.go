package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	intsecrets "github.com/Checker-Finance/activity-adapters/internal/secrets"
	pkgsecrets "github.com/Checker-Finance/activity-adapters/pkg/secrets"
	"github.com/Checker-Finance/activity-adapters/strava-adapter/internal/strava"
)

// AWSResolver resolves the Strava application credentials for an athlete.
//
// Secret naming convention: {env}/{athlete}/strava
// Secret JSON format:       {"client_id": "...", "client_secret": "...", "redirect_uri": "..."}
type AWSResolver struct {
	inner *intsecrets.AWSResolver[strava.AppCredentials]
}

// NewAWSResolver constructs a Strava-specific credentials resolver.
func NewAWSResolver(
	logger *zap.Logger,
	env string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[strava.AppCredentials],
) *AWSResolver {
	return &AWSResolver{inner: intsecrets.NewAWSResolver(logger, env, "strava", provider, cache)}
}

// Resolve fetches or returns the cached AppCredentials for athlete.
func (r *AWSResolver) Resolve(ctx context.Context, athlete string) (strava.AppCredentials, error) {
	return r.inner.Resolve(ctx, athlete, parseStravaConfig)
}

// SecretName returns the secret the athlete's credentials are read from.
func (r *AWSResolver) SecretName(athlete string) string {
	return r.inner.SecretName(athlete)
}

func parseStravaConfig(m map[string]string) (strava.AppCredentials, error) {
	creds := strava.AppCredentials{
		ClientID:     m["client_id"],
		ClientSecret: m["client_secret"],
		RedirectURI:  m["redirect_uri"],
	}
	if creds.ClientID == "" {
		return strava.AppCredentials{}, fmt.Errorf("missing required field 'client_id'")
	}
	if creds.ClientSecret == "" {
		return strava.AppCredentials{}, fmt.Errorf("missing required field 'client_secret'")
	}
	if creds.RedirectURI == "" {
		creds.RedirectURI = "http://localhost"
	}
	return creds, nil
}
