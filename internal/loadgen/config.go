package loadgen

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Stages is a comma-separated ramp, each stage "rate:duration",
	// e.g. "100:30s,500:1m,1000:30s".
	Stages string `env:"STAGES" envDefault:"100:30s,500:1m"`

	// Weighted operation mix. Weights are relative, not percentages.
	ReadWeight   int `env:"READ_WEIGHT" envDefault:"7"`
	SearchWeight int `env:"SEARCH_WEIGHT" envDefault:"2"`
	WriteWeight  int `env:"WRITE_WEIGHT" envDefault:"1"`

	SeedUsers    int `env:"SEED_USERS" envDefault:"100"`
	SeedProducts int `env:"SEED_PRODUCTS" envDefault:"500"`

	// Pass/fail thresholds evaluated against the aggregate run.
	MaxP95       time.Duration `env:"MAX_P95" envDefault:"500ms"`
	MaxP99       time.Duration `env:"MAX_P99" envDefault:"2s"`
	MaxErrorRate float64       `env:"MAX_ERROR_RATE" envDefault:"0.01"`

	RateLimitBypass string        `env:"RATE_LIMIT_BYPASS_SECRET"`
	Timeout         time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	Connections     int           `env:"CONNECTIONS" envDefault:"10000"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
