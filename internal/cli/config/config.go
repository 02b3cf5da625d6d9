package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is izruna's full runtime configuration, loaded from
// izruna.yml/izruna.yaml plus environment overrides.
type Config struct {
	Rules    RulesConfig    `mapstructure:"rules"`
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Cache    CacheConfig    `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RulesConfig locates the authored linguistic data: the rule,
// metarule, and exception files the engine loads at startup, and the
// encoder dataset used to build the surface-alphabet encoders.
type RulesConfig struct {
	RulesPath      string `mapstructure:"rules_path"`
	MetarulesPath  string `mapstructure:"metarules_path"`
	ExceptionsPath string `mapstructure:"exceptions_path"`
	EncoderDataset string `mapstructure:"encoder_dataset"`
	DefaultEncoder string `mapstructure:"default_encoder"`
	Watch          bool   `mapstructure:"watch"`
}

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	APIPrefix      string   `mapstructure:"api_prefix"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RedisConfig configures the result cache, rate limiter, and
// exception override store, all of which share one Redis instance.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig configures the admin-only JWT-protected endpoints.
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminUser     string `mapstructure:"admin_user"`
	AdminPassHash string `mapstructure:"admin_pass_hash"`
	TokenTTL      int    `mapstructure:"token_ttl_seconds"`
}

// CacheConfig configures the transcription result cache.
type CacheConfig struct {
	TTLSeconds int  `mapstructure:"ttl_seconds"`
	Enabled    bool `mapstructure:"enabled"`
}

// RateLimitConfig configures the per-client request budget on the
// transcription endpoints.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
	// Distributed selects the Redis-backed sliding-window limiter
	// instead of the in-process token bucket, so the request budget
	// is shared across every izruna replica behind a load balancer
	// rather than enforced independently per process.
	Distributed bool `mapstructure:"distributed"`
}

// Load reads izruna.yml (or izruna.yaml) from the current directory,
// applying defaults and environment variable overrides (IZRUNA_*).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("rules.rules_path", "data/rules.xml")
	v.SetDefault("rules.metarules_path", "data/metas.xml")
	v.SetDefault("rules.exceptions_path", "data/exceptions.db")
	v.SetDefault("rules.encoder_dataset", "data/phonetic_converter_dataset.json")
	v.SetDefault("rules.default_encoder", "ipa")
	v.SetDefault("rules.watch", false)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.api_prefix", "")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.token_ttl_seconds", 3600)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_seconds", 3600)

	v.SetDefault("rate_limit.requests_per_minute", 120)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.distributed", false)

	v.SetConfigName("izruna")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("izruna")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Server.APIPrefix != "" {
		if !strings.HasPrefix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must start with '/', got: %s", cfg.Server.APIPrefix)
		}
		if strings.HasSuffix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must not end with '/', got: %s", cfg.Server.APIPrefix)
		}
	}
	if cfg.Rules.RulesPath == "" || cfg.Rules.MetarulesPath == "" || cfg.Rules.ExceptionsPath == "" {
		return fmt.Errorf("rules.rules_path, rules.metarules_path, and rules.exceptions_path are required")
	}
	return nil
}
