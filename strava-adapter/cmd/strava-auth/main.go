package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/activity-adapters/internal/store"
	"github.com/Checker-Finance/activity-adapters/pkg/logger"
	"github.com/Checker-Finance/activity-adapters/pkg/secrets"
	internalsecrets "github.com/Checker-Finance/activity-adapters/strava-adapter/internal/secrets"
	"github.com/Checker-Finance/activity-adapters/strava-adapter/internal/strava"
	"github.com/Checker-Finance/activity-adapters/strava-adapter/pkg/config"
)

// strava-auth runs the one-time authorization flow: it prints the consent
// URL, reads the redirect back from stdin and stores the resulting tokens
// where strava-adapter will look for them.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cfg := config.Load()
	logger.Init("strava-auth", cfg.Env, cfg.LogLevel)

	err := run(ctx, cfg, logger.L(), os.Stdin, os.Stdout, uuid.NewString)
	stop()
	logger.Sync()
	if err != nil {
		logger.S().Errorw("strava.auth.failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, in io.Reader, out io.Writer, newState func() string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appCreds := strava.AppCredentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
	}
	if cfg.CredentialsSource == config.CredentialsFromAWS {
		provider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			return fmt.Errorf("create AWS Secrets Manager provider: %w", err)
		}
		resolver := internalsecrets.NewAWSResolver(log, cfg.Env, provider,
			secrets.NewCache[strava.AppCredentials](cfg.CacheTTL))
		appCreds, err = resolver.Resolve(ctx, cfg.Athlete)
		if err != nil {
			return fmt.Errorf("resolve strava credentials: %w", err)
		}
	}

	var tokenStorage strava.TokenStorage
	switch cfg.TokenBackend {
	case config.TokenBackendRedis:
		st, err := store.NewHybrid(ctx, store.Config{
			RedisAddr: cfg.RedisAddr,
			RedisDB:   cfg.RedisDB,
			RedisPass: cfg.RedisPass,
		}, log)
		if err != nil {
			return fmt.Errorf("connect token store: %w", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.Warn("store.close_failed", zap.Error(err))
			}
		}()
		tokenStorage = strava.NewRedisStorage(st, cfg.TokenRedisKey)
	default:
		tokenStorage = strava.NewFileStorage(cfg.TokenFile)
	}

	oauth := strava.NewOAuthClient(log, &http.Client{Timeout: cfg.HTTPTimeout}, cfg.OAuthBaseURL, appCreds)

	state := newState()
	fmt.Fprintln(out, "Open this URL in a browser and approve access:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+oauth.AuthorizationURL(state))
	fmt.Fprintln(out)
	fmt.Fprint(out, "Paste the URL you were redirected to (or just the code): ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return fmt.Errorf("read redirect: %w", err)
	}
	code, err := strava.CodeFromRedirect(line, state)
	if err != nil {
		return fmt.Errorf("no usable authorization code: %w", err)
	}

	tokens, err := oauth.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("code exchange: %w", err)
	}
	if err := tokenStorage.Save(ctx, *tokens); err != nil {
		return fmt.Errorf("save tokens to %s: %w", tokenStorage.Location(), err)
	}

	log.Info("strava.auth.authorized",
		zap.String("location", tokenStorage.Location()),
		zap.Time("expires_at", tokens.ExpiresAt))
	fmt.Fprintf(out, "Tokens saved to %s\n", tokenStorage.Location())
	return nil
}
