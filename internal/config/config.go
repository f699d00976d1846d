package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	// DefaultStartDate is the earliest date worth backfilling; the portal
	// carries little usable crash data before it.
	DefaultStartDate = "2017-01-01"
)

type Config struct {
	Env       string
	DB        db
	Server    server
	SODA      soda
	Scheduler scheduler
	Logger    logger
}

type db struct {
	DatabaseURI  string `env:"DATABASE_URI"`
	Migrations   string `env:"MIGRATIONS_PATH"`
	FallbackPath string `env:"FALLBACK_SQLITE_PATH"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
}

type soda struct {
	AppToken      string        `env:"SODA_APP_TOKEN"`
	BatchSize     int           `env:"SODA_BATCH_SIZE"`
	MaxRetries    int           `env:"SODA_MAX_RETRIES"`
	BackoffFactor float64       `env:"SODA_BACKOFF_FACTOR"`
	Timeout       time.Duration `env:"SODA_TIMEOUT"`
	RatePerHour   int           `env:"SODA_RATE_LIMIT"`
	MaxConcurrent int           `env:"SODA_MAX_CONCURRENT"`
}

type scheduler struct {
	CheckInterval time.Duration `env:"SCHEDULER_INTERVAL"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func NewConfig() *Config {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	viper.SetDefault("run_address", ":8000")
	viper.SetDefault("migrations_path", "migrations")
	viper.SetDefault("fallback_sqlite_path", "crashpipe.db")
	viper.SetDefault("soda_batch_size", 50000)
	viper.SetDefault("soda_max_retries", 3)
	viper.SetDefault("soda_backoff_factor", 2.0)
	viper.SetDefault("soda_timeout", "30s")
	viper.SetDefault("soda_rate_limit", 1000)
	viper.SetDefault("soda_max_concurrent", 5)
	viper.SetDefault("scheduler_interval", "60s")

	config := Config{
		Env: viper.GetString("app_env"),
		DB: db{
			DatabaseURI:  viper.GetString("database_uri"),
			Migrations:   viper.GetString("migrations_path"),
			FallbackPath: viper.GetString("fallback_sqlite_path"),
		},
		Server: server{RunAddress: viper.GetString("run_address")},
		SODA: soda{
			AppToken:      viper.GetString("soda_app_token"),
			BatchSize:     viper.GetInt("soda_batch_size"),
			MaxRetries:    viper.GetInt("soda_max_retries"),
			BackoffFactor: viper.GetFloat64("soda_backoff_factor"),
			Timeout:       viper.GetDuration("soda_timeout"),
			RatePerHour:   viper.GetInt("soda_rate_limit"),
			MaxConcurrent: viper.GetInt("soda_max_concurrent"),
		},
		Scheduler: scheduler{CheckInterval: viper.GetDuration("scheduler_interval")},
		Logger:    logger{LogLevel: viper.GetString("log_level")},
	}

	return &config
}
