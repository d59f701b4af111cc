package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/scamguard/internal/i18n"
)

const (
	EnvPrefix = "SG_"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type (
	Config struct {
		TelegramAPIToken string `env:"TOKEN,required"`
		DefaultLanguage  string `env:"LANG,default=en"`
		LogLevel         int    `env:"LOG_LEVEL,default=4"`
		DotPath          string `env:"DOT_PATH,default=~/.scamguard"`
		Owner            Owner
		Storage          Storage
		Moderation       Moderation
		Observability    Observability
	}

	// Owner is the seeded owner record guaranteed to exist at startup.
	Owner struct {
		ID       int64  `env:"OWNER_ID,required"`
		Username string `env:"OWNER_USERNAME,default=owner"`
	}

	Storage struct {
		Driver     string        `env:"DB_DRIVER,default=sqlite"`
		Path       string        `env:"DB_PATH,default=bot.db"`
		URL        string        `env:"DATABASE_URL"`
		MaxRetries int           `env:"DB_MAX_RETRIES,default=3"`
		RetryMin   time.Duration `env:"DB_RETRY_MIN,default=200ms"`
		RetryMax   time.Duration `env:"DB_RETRY_MAX,default=5s"`
	}

	Moderation struct {
		BanlistLimit int `env:"BANLIST_LIMIT,default=20"`
	}

	Observability struct {
		MetricsAddr    string `env:"METRICS_ADDR,default=:2112"`
		GaugesSchedule string `env:"GAUGES_SCHEDULE,default=@every 1m"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Warn("cant load .env file")
		}
		cfg, err := Process(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// Process resolves a Config from the given lookuper, applying the SG_ prefix.
func Process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}

	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for %s driver", DriverSQLite)
		}
	case DriverPostgres:
		if c.Storage.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Storage.MaxRetries < 0 {
		return fmt.Errorf("DB_MAX_RETRIES must not be negative")
	}
	if !i18n.IsSupported(c.DefaultLanguage) {
		return fmt.Errorf("unsupported default language %q", c.DefaultLanguage)
	}
	if c.Moderation.BanlistLimit <= 0 {
		return fmt.Errorf("BANLIST_LIMIT must be positive")
	}
	return nil
}
