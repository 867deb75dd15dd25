package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/activity-adapters/internal/jobs"
	"github.com/Checker-Finance/activity-adapters/internal/publisher"
	"github.com/Checker-Finance/activity-adapters/internal/rate"
	"github.com/Checker-Finance/activity-adapters/internal/snapshot"
	"github.com/Checker-Finance/activity-adapters/internal/store"
	"github.com/Checker-Finance/activity-adapters/pkg/logger"
	"github.com/Checker-Finance/activity-adapters/pkg/secrets"
	"github.com/Checker-Finance/activity-adapters/pkg/utils"
	"github.com/Checker-Finance/activity-adapters/strava-adapter/internal/api"
	"github.com/Checker-Finance/activity-adapters/strava-adapter/internal/metrics"
	internalsecrets "github.com/Checker-Finance/activity-adapters/strava-adapter/internal/secrets"
	"github.com/Checker-Finance/activity-adapters/strava-adapter/internal/strava"
	"github.com/Checker-Finance/activity-adapters/strava-adapter/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [strava-adapter]...")

	if err := cfg.Validate(); err != nil {
		logg.Fatalw("invalid configuration", "error", err)
	}

	// --- Application credentials ---
	appCreds := strava.AppCredentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
	}
	stopCleaner := make(chan struct{})
	if cfg.CredentialsSource == config.CredentialsFromAWS {
		awsProvider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		credsCache := secrets.NewCache[strava.AppCredentials](cfg.CacheTTL)
		go credsCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

		resolver := internalsecrets.NewAWSResolver(logg.Desugar(), cfg.Env, awsProvider, credsCache)
		appCreds, err = resolver.Resolve(ctx, cfg.Athlete)
		if err != nil {
			logg.Fatalw("failed to resolve strava credentials",
				"secret", resolver.SecretName(cfg.Athlete),
				"error", err)
		}
	}

	// --- Store (Redis + Postgres hybrid, optional) ---
	var st *store.HybridStore
	if cfg.StoreEnabled() {
		logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
		var err error
		st, err = store.NewHybrid(ctx, store.Config{
			RedisAddr: cfg.RedisAddr,
			RedisDB:   cfg.RedisDB,
			RedisPass: cfg.RedisPass,
			PGURL:     cfg.DatabaseURL,
			PGPool: store.PGPoolConfig{
				MaxConns:          int32(cfg.PGMaxConns),
				MinConns:          int32(cfg.PGMinConns),
				MaxConnLifetime:   cfg.PGMaxConnLifetime,
				MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
				HealthCheckPeriod: cfg.PGHealthCheckPeriod,
			},
		}, logg.Desugar())
		if err != nil {
			logg.Fatalw("failed to init store", "error", err)
		}
	}

	// --- Token storage ---
	var tokenStorage strava.TokenStorage
	switch cfg.TokenBackend {
	case config.TokenBackendRedis:
		tokenStorage = strava.NewRedisStorage(st, cfg.TokenRedisKey)
	default:
		tokenStorage = strava.NewFileStorage(cfg.TokenFile)
	}

	// --- Credential store ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	oauth := strava.NewOAuthClient(logg.Desugar(), httpClient, cfg.OAuthBaseURL, appCreds)
	creds, err := strava.NewCredentialStore(ctx, logg.Desugar(), tokenStorage, oauth)
	if err != nil {
		logg.Fatalw("failed to load strava tokens; run strava-auth to authorize",
			"location", tokenStorage.Location(),
			"error", err)
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		Requests: cfg.RateRequests,
		Window:   cfg.RateWindow,
		Burst:    cfg.RateBurst,
	})

	// --- Strava client and service ---
	client := strava.NewClient(logg.Desugar(), rateMgr, httpClient, creds,
		cfg.APIBaseURL, cfg.Athlete, cfg.HTTPRetryMax)
	svc := strava.NewService(logg.Desugar(), client)

	// --- NATS publisher (optional) ---
	var nc *nats.Conn
	var pub *publisher.Publisher
	var events jobs.EventPublisher
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		pub, err = publisher.New(nc, cfg.SyncSubject, cfg.ServiceName, logg.Desugar())
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
		events = pub
	}

	// --- Activity snapshot writer (optional) ---
	var writer jobs.ActivityUpserter
	if st != nil && st.PG != nil {
		writer = snapshot.NewActivityWriter(st.PG, logger.L(), cfg.ServiceName)
	}

	// --- Background sync ---
	var syncJob *jobs.ActivitySync
	if cfg.SyncInterval > 0 {
		syncJob = jobs.NewActivitySync(logg.Desugar(), svc, writer, events,
			cfg.Athlete, cfg.ActivityLimit, cfg.SyncInterval).
			OnResult(metrics.IncActivitySync)
		go syncJob.Start(ctx)
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	})

	var storeCheck api.HealthChecker
	if st != nil {
		storeCheck = st
	}
	handler := api.NewStravaHandler(logg.Desugar(), svc, cfg.ActivityLimit)
	api.RegisterRoutes(app, nc, storeCheck, creds, handler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[strava-adapter] running",
		"env", cfg.Env,
		"athlete", cfg.Athlete,
		"token_backend", cfg.TokenBackend,
		"token_location", tokenStorage.Location(),
		"sync_interval", cfg.SyncInterval,
		"nats", cfg.NATSURL != "")

	<-ctx.Done()
	logg.Info("shutting down [strava-adapter]...")

	close(stopCleaner)
	if syncJob != nil {
		syncJob.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if st != nil {
		if err := st.Close(); err != nil {
			logg.Warnw("store.close_failed", "error", err)
		}
	}
}
