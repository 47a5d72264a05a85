/**
 * @description
 * This package handles configuration management for the service. It uses the
 * Viper library to read settings from environment variables (with an
 * optional .env file), providing defaults and normalization in one place.
 *
 * @dependencies
 * - github.com/spf13/viper: Application configuration.
 */

package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Store driver names accepted in STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverLocal    = "local"
)

// Config holds all the configuration variables for the transaction service.
type Config struct {
	ServerPort               string  `mapstructure:"SERVER_PORT"`
	StoreDriver              string  `mapstructure:"STORE_DRIVER"`
	DatabaseURL              string  `mapstructure:"DATABASE_URL"`
	LocalStorePath           string  `mapstructure:"LOCAL_STORE_PATH"`
	RabbitMQURL              string  `mapstructure:"RABBITMQ_URL"`
	ChangeEventQueue         string  `mapstructure:"CHANGE_EVENT_QUEUE"`
	AuthJWTSecret            string  `mapstructure:"AUTH_JWT_SECRET"`
	CorridorOrigin           string  `mapstructure:"CORRIDOR_ORIGIN"`
	CorridorDestination      string  `mapstructure:"CORRIDOR_DESTINATION"`
	DefaultCommissionPercent float64 `mapstructure:"DEFAULT_COMMISSION_PERCENT"`
	StatsReconcileSchedule   string  `mapstructure:"STATS_RECONCILE_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables and an optional
// .env file in the given path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("LOCAL_STORE_PATH", "data/transactions.json")
	viper.SetDefault("CHANGE_EVENT_QUEUE", "backoffice.transaction_changes")
	viper.SetDefault("CORRIDOR_ORIGIN", "Dubai")
	viper.SetDefault("CORRIDOR_DESTINATION", "Khartoum")
	viper.SetDefault("DEFAULT_COMMISSION_PERCENT", 5.0)
	viper.SetDefault("STATS_RECONCILE_SCHEDULE", "@every 5m")

	// Bind explicitly so the variables appear in Unmarshal even when only
	// set in the process environment.
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("STORE_DRIVER")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("LOCAL_STORE_PATH")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CHANGE_EVENT_QUEUE")
	_ = viper.BindEnv("AUTH_JWT_SECRET")
	_ = viper.BindEnv("CORRIDOR_ORIGIN")
	_ = viper.BindEnv("CORRIDOR_DESTINATION")
	_ = viper.BindEnv("DEFAULT_COMMISSION_PERCENT")
	_ = viper.BindEnv("STATS_RECONCILE_SCHEDULE")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	switch config.StoreDriver {
	case StoreDriverPostgres, StoreDriverLocal:
	case "":
		config.StoreDriver = StoreDriverPostgres
	default:
		return config, fmt.Errorf("unknown STORE_DRIVER %q (expected %q or %q)", config.StoreDriver, StoreDriverPostgres, StoreDriverLocal)
	}

	if config.DefaultCommissionPercent < 0 {
		log.Printf("level=warn component=config msg=\"negative default commission configured; coercing to zero\" percent=%f", config.DefaultCommissionPercent)
		config.DefaultCommissionPercent = 0
	}
	if config.DefaultCommissionPercent > 100 {
		log.Printf("level=warn component=config msg=\"default commission too high; capping at 100\" percent=%f", config.DefaultCommissionPercent)
		config.DefaultCommissionPercent = 100
	}

	if strings.TrimSpace(config.StatsReconcileSchedule) == "" {
		config.StatsReconcileSchedule = "@every 5m"
	}

	return
}
