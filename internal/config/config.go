package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "QRLINK"

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	BaseURL         string        `mapstructure:"base_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, sqlite or redis
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CodesConfig struct {
	Length      int    `mapstructure:"length"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	Generator   string `mapstructure:"generator"` // random or counter
}

type CacheConfig struct {
	Kind string        `mapstructure:"kind"` // none, memory or redis
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type VisitsConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
	ProtectMutations bool          `mapstructure:"protect_mutations"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"rps"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Codes     CodesConfig     `mapstructure:"codes"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Visits    VisitsConfig    `mapstructure:"visits"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// Load reads configuration from defaults, an optional YAML file and
// QRLINK_* environment variables, in increasing order of precedence. A
// .env file in the working directory is loaded into the environment first.
// An empty path looks for ./config.yaml and tolerates its absence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "qrlinks.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("codes.length", 8)
	v.SetDefault("codes.max_attempts", 5)
	v.SetDefault("codes.generator", "random")

	v.SetDefault("cache.kind", "memory")
	v.SetDefault("cache.size", 10000)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("visits.workers", 4)
	v.SetDefault("visits.queue_size", 1024)
	v.SetDefault("visits.timeout", 5*time.Second)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.protect_mutations", false)

	v.SetDefault("ratelimit.rps", 20.0)
	v.SetDefault("ratelimit.burst", 40)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	case "redis":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}

	switch c.Codes.Generator {
	case "random", "counter":
	default:
		return fmt.Errorf("unknown codes.generator %q", c.Codes.Generator)
	}

	switch c.Cache.Kind {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache.kind %q", c.Cache.Kind)
	}

	if c.Auth.ProtectMutations && c.Auth.JWTSecret == "" {
		return errors.New("auth.protect_mutations requires auth.jwt_secret")
	}
	return nil
}

// NeedsRedis reports whether any component is configured to use Redis.
func (c *Config) NeedsRedis() bool {
	return c.Database.Driver == "redis" || c.Codes.Generator == "counter" || c.Cache.Kind == "redis"
}
