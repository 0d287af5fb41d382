package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379"   validate:"min=1000,max=65535"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"venuehub_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"venuehub_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"venuehub_db"`

	// Liveness monitor: a connection idle for longer than IdleTimeout is
	// evicted on the next sweep.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"60s" validate:"min=1s"`
	IdleTimeout   time.Duration `env:"IDLE_TIMEOUT"   envDefault:"5m"  validate:"min=10s"`

	// Per-connection outbound queue; a peer that falls this many messages
	// behind is treated as dead.
	SendQueueSize int `env:"SEND_QUEUE_SIZE" envDefault:"32" validate:"min=1"`

	SessionKeyPrefix string `env:"SESSION_KEY_PREFIX" envDefault:"sess:"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
