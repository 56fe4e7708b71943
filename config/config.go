package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Tax      TaxConfig      `mapstructure:"tax"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

// WalletConfig holds the business rules gating ledger operations.
// Amounts are in minor currency units (paise).
type WalletConfig struct {
	MinRechargeAmount  int64 `mapstructure:"min_recharge_amount"`
	MinBalanceRequired int64 `mapstructure:"min_balance_required"`
}

// TaxConfig controls the tax split on recharge receipts.
type TaxConfig struct {
	GSTPercent int64 `mapstructure:"gst_percent"`
}

// GatewayConfig tunes the mock payment gateway.
// DeclineAbove > 0 declines any payment exceeding that amount (test hook).
type GatewayConfig struct {
	DeclineAbove int64 `mapstructure:"decline_above"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CWL_ (Courier Wallet Ledger).
// Nested keys use underscore: CWL_WALLET_MIN_RECHARGE_AMOUNT, CWL_DATABASE_HOST, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults. Wallet amounts are paise: 100.00 INR minimum recharge,
	// 10.00 INR minimum residual balance.
	v.SetDefault("wallet.min_recharge_amount", 10000)
	v.SetDefault("wallet.min_balance_required", 1000)
	v.SetDefault("tax.gst_percent", 18)
	v.SetDefault("gateway.decline_above", 0)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "courier_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CWL_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file; env vars alone can suffice
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Wallet.MinRechargeAmount < 0 || cfg.Wallet.MinBalanceRequired < 0 {
		return nil, fmt.Errorf("wallet thresholds must be non-negative")
	}
	if cfg.Tax.GSTPercent < 0 || cfg.Tax.GSTPercent > 100 {
		return nil, fmt.Errorf("tax.gst_percent must be between 0 and 100")
	}

	return &cfg, nil
}
