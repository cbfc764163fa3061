package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken string `env:"BOT_TOKEN,required"`
	}

	Lottery struct {
		// How often the scheduler sweeps for due deadlines, expired drafts
		// and old records.
		SweepInterval time.Duration `env:"LOTTERY_SWEEP_INTERVAL" envDefault:"30s"`
		// Draft lotteries untouched for this long are cancelled.
		DraftTTL time.Duration `env:"LOTTERY_DRAFT_TTL" envDefault:"1h"`
		// Completed and cancelled lotteries are purged after this period.
		Retention time.Duration `env:"LOTTERY_RETENTION" envDefault:"24h"`
	}
}

func Load() *Config {
	// A missing .env file is fine; in production the variables are set
	// directly in the environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
	return cfg
}
