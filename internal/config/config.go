package config

import "github.com/caarlos0/env/v11"

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Bottleneck BottleneckConfig
	RateLimit  RateLimitConfig
	Pprof      PprofConfig
}

type ServerConfig struct {
	Host           string `env:"SERVER_HOST" envDefault:"localhost"`
	Port           int    `env:"SERVER_PORT" envDefault:"8080"`
	MaxConnections int    `env:"SERVER_MAX_CONNECTIONS" envDefault:"0"`
}

type DatabaseConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	DBName   string `env:"POSTGRES_DB" envDefault:"perflab"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	MaxConns int    `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type CacheConfig struct {
	// Backend selects the key/value store: "memory" or "redis".
	Backend           string `env:"CACHE_BACKEND" envDefault:"memory"`
	TTLSeconds        int    `env:"CACHE_TTL_SECONDS" envDefault:"60"`
	SweepIntervalSecs int    `env:"CACHE_SWEEP_INTERVAL_SECONDS" envDefault:"30"`
	KeyPrefix         string `env:"CACHE_KEY_PREFIX" envDefault:"perflab:"`
}

type BottleneckConfig struct {
	// NPlusOneOrders keeps the per-row re-query in order listing. It is an
	// observable characteristic of the system under test, not a defect.
	NPlusOneOrders bool `env:"NPLUS1_LIST_ORDERS" envDefault:"true"`
	QueueSize      int  `env:"BOTTLENECK_QUEUE_SIZE" envDefault:"256"`
}

type RateLimitConfig struct {
	RPS           float64 `env:"RATE_LIMIT_RPS" envDefault:"1000"`
	Burst         int     `env:"RATE_LIMIT_BURST" envDefault:"2000"`
	ExpireMinutes int     `env:"RATE_LIMIT_EXPIRE_MINUTES" envDefault:"3"`
	BypassSecret  string  `env:"RATE_LIMIT_BYPASS_SECRET"`
}

type PprofConfig struct {
	Enabled bool   `env:"PPROF_ENABLED" envDefault:"false"`
	Secret  string `env:"PPROF_SECRET"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
