package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/izruna/engine/encoder"
	"github.com/conduit-lang/izruna/engine/rules"
	"github.com/conduit-lang/izruna/internal/cli/config"
	"github.com/conduit-lang/izruna/internal/httpapi"
	"github.com/conduit-lang/izruna/internal/store"
	"github.com/conduit-lang/izruna/internal/watch"
	"github.com/conduit-lang/izruna/internal/web/auth"
	"github.com/conduit-lang/izruna/internal/web/cache"
	"github.com/conduit-lang/izruna/internal/web/ratelimit"
	"github.com/conduit-lang/izruna/internal/web/server"
)

var (
	serveAddr       string
	serveRulesPath  string
	serveExceptions string
	serveRedisAddr  string
	serveJWTSecret  string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides izruna.yml server.host:server.port")
	serveCmd.Flags().StringVar(&serveRulesPath, "rules", "", "rule file path, overrides izruna.yml rules.rules_path")
	serveCmd.Flags().StringVar(&serveExceptions, "exceptions", "", "exception file path, overrides izruna.yml rules.exceptions_path")
	serveCmd.Flags().StringVar(&serveRedisAddr, "redis-addr", "", "Redis address, overrides izruna.yml redis.addr")
	serveCmd.Flags().StringVar(&serveJWTSecret, "jwt-secret", "", "JWT signing secret, overrides izruna.yml auth.jwt_secret")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket transcription service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		applyServeOverrides(cfg)

		ruleStore, err := rules.LoadStore(cfg.Rules.RulesPath, cfg.Rules.MetarulesPath, cfg.Rules.ExceptionsPath)
		if err != nil {
			return fmt.Errorf("loading rule store: %w", err)
		}

		variants, err := encoder.LoadDataset(cfg.Rules.EncoderDataset)
		if err != nil {
			return fmt.Errorf("loading encoder dataset: %w", err)
		}
		decoder := variants[encoder.VariantAlphabetic]
		targets := make(map[encoder.Variant]*encoder.Encoder, len(variants))
		for name, enc := range variants {
			targets[name] = enc
		}

		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})

		resultCache, err := buildResultCache(cfg, redisClient)
		if err != nil {
			return fmt.Errorf("building result cache: %w", err)
		}

		overrides := store.NewOverrideStore(redisClient)

		watcher, err := watch.NewStoreWatcher(cfg.Rules.RulesPath, cfg.Rules.MetarulesPath, cfg.Rules.ExceptionsPath, ruleStore)
		if err != nil {
			return fmt.Errorf("starting rule-store watcher: %w", err)
		}
		if cfg.Rules.Watch {
			if err := watcher.Start(); err != nil {
				return fmt.Errorf("starting file watcher: %w", err)
			}
		}

		orchestrators := httpapi.NewOrchestratorSet(ruleStore, decoder, targets, overrides, resultCache, httpapi.CacheTTL(cfg.Cache.TTLSeconds))

		limiter, err := buildRateLimiter(cfg, redisClient)
		if err != nil {
			return fmt.Errorf("building rate limiter: %w", err)
		}

		api := &httpapi.API{
			Orchestrators:  orchestrators,
			DefaultVariant: encoder.Variant(cfg.Rules.DefaultEncoder),
			StoreWatcher:   watcher,
			Overrides:      overrides,
			AuthService:    auth.NewAuthService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Second),
			AdminUser:      cfg.Auth.AdminUser,
			AdminPass:      cfg.Auth.AdminPassHash,
			Limiter:        limiter,
			APIPrefix:      cfg.Server.APIPrefix,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}

		addr := serveAddr
		if addr == "" {
			addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		}

		srv, err := server.New(&server.Config{
			Address:           addr,
			Handler:           api.Router(),
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("building server: %w", err)
		}

		gs := server.NewGracefulShutdown(srv, server.DefaultShutdownConfig())
		if closer, ok := resultCache.(io.Closer); ok {
			gs.RegisterHook(func(ctx context.Context) error { return closer.Close() })
		}
		if closer, ok := limiter.(io.Closer); ok {
			gs.RegisterHook(func(ctx context.Context) error { return closer.Close() })
		}
		if cfg.Rules.Watch {
			gs.RegisterHook(func(ctx context.Context) error { return watcher.Stop() })
		}

		fmt.Printf("izruna listening on %s\n", addr)
		return gs.Start()
	},
}

func applyServeOverrides(cfg *config.Config) {
	if serveRulesPath != "" {
		cfg.Rules.RulesPath = serveRulesPath
	}
	if serveExceptions != "" {
		cfg.Rules.ExceptionsPath = serveExceptions
	}
	if serveRedisAddr != "" {
		cfg.Redis.Addr = serveRedisAddr
	}
	if serveJWTSecret != "" {
		cfg.Auth.JWTSecret = serveJWTSecret
	}
}

func buildResultCache(cfg *config.Config, client *redis.Client) (cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return cache.NewMemoryCache(), nil
	}
	return cache.NewRedisCacheWithClient(client, cache.DefaultCacheConfig()), nil
}

// buildRateLimiter picks between the in-process token bucket and the
// Redis-backed sliding window limiter. Distributed deployments behind
// a load balancer need the shared Redis state, since each replica's
// own in-memory bucket would otherwise let through RequestsPerMinute
// requests per replica instead of in total.
func buildRateLimiter(cfg *config.Config, client *redis.Client) (ratelimit.RateLimiter, error) {
	if !cfg.RateLimit.Distributed {
		return ratelimit.NewTokenBucketWithConfig(ratelimit.TokenBucketConfig{
			Capacity:        cfg.RateLimit.RequestsPerMinute + cfg.RateLimit.Burst,
			RefillRate:      time.Minute,
			CleanupInterval: 5 * time.Minute,
		}), nil
	}
	return ratelimit.NewRedisRateLimiter(ratelimit.RedisRateLimiterConfig{
		Client: client,
		Limit:  cfg.RateLimit.RequestsPerMinute + cfg.RateLimit.Burst,
		Window: time.Minute,
		Prefix: "izruna:ratelimit:",
	})
}
