// Package bootstrap wires runtime dependencies from configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/counseling-booking/internal/api"
	appconfig "github.com/wolfman30/counseling-booking/internal/config"
	"github.com/wolfman30/counseling-booking/internal/drafts"
	"github.com/wolfman30/counseling-booking/internal/http/handlers"
	"github.com/wolfman30/counseling-booking/internal/observability/metrics"
	"github.com/wolfman30/counseling-booking/pkg/logging"
)

const (
	DraftStoreMemory = "memory"
	DraftStoreRedis  = "redis"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err, "addr", cfg.RedisAddr)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildDraftStore selects the draft store named by DRAFT_STORE. An
// unreachable redis is an error, never a fallback to memory. The returned
// func releases the store's connections.
func BuildDraftStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (drafts.Store, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.DraftStore {
	case "", DraftStoreMemory:
		logger.Info("using in-memory draft store")
		return drafts.NewMemoryStore(), func() {}, nil
	case DraftStoreRedis:
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, nil, fmt.Errorf("bootstrap: redis draft store unavailable at %q", cfg.RedisAddr)
		}
		logger.Info("using redis draft store", "addr", cfg.RedisAddr, "ttl", cfg.DraftTTL)
		return drafts.NewRedisStore(client, cfg.DraftTTL), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown draft store %q", cfg.DraftStore)
	}
}

// FallbackAccount returns the configured payment account shown when the
// account-details endpoint fails, or nil to use the built-in one.
func FallbackAccount(cfg *appconfig.Config) *api.AccountDetails {
	if cfg == nil {
		return nil
	}
	details := api.AccountDetails{
		AccountName:   strings.TrimSpace(cfg.FallbackAccountName),
		AccountNumber: strings.TrimSpace(cfg.FallbackAccountNumber),
		PaybillNumber: strings.TrimSpace(cfg.FallbackPaybillNumber),
	}
	if details == (api.AccountDetails{}) {
		return nil
	}
	return &details
}

// BuildWizardHandler wires the booking API client and session handler.
func BuildWizardHandler(cfg *appconfig.Config, store drafts.Store, m *metrics.WizardMetrics, logger *logging.Logger) *handlers.WizardHandler {
	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, logger, api.WithMetrics(m))
	return handlers.NewWizardHandler(handlers.WizardConfig{
		Store:           store,
		Client:          client,
		Logger:          logger,
		Metrics:         m,
		Location:        cfg.Location(),
		FallbackAccount: FallbackAccount(cfg),
	})
}
