package env

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config resolves connection defaults for the rconn CLI: env vars first,
// then .env.local; a cobra flag the user set explicitly overrides both
// (see cmd/root.go).
type Config struct {
	Host     string `env:"RCONN_HOST,default=127.0.0.1"`
	Port     int    `env:"RCONN_PORT,default=6311"`
	LogLevel string `env:"RCONN_LOG_LEVEL,default=info"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			panic(err)
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
