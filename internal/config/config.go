package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vandelay/guacbot/internal/models"
)

// Config is the process configuration, read from an optional .env file and
// the environment.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Log        LogConfig        `mapstructure:"log"`
	Settlement SettlementConfig `mapstructure:"settlement"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig is optional. With no brokers the report is only logged.
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	ReportTopic string   `mapstructure:"report_topic"`
}

type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type SettlementConfig struct {
	PersistMetrics  bool          `mapstructure:"persist_metrics"`
	ResetWagers     bool          `mapstructure:"reset_wagers"`
	Odds            int64         `mapstructure:"odds"`
	Period          time.Duration `mapstructure:"period"`
	StartingBalance int64         `mapstructure:"starting_balance"`
	WorstMessages   int           `mapstructure:"worst_messages"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
}

var envBindings = map[string]string{
	"server.port": "PORT",

	"database.host":     "DATABASE_HOST",
	"database.port":     "DATABASE_PORT",
	"database.user":     "DATABASE_USER",
	"database.password": "DATABASE_PASSWORD",
	"database.name":     "DATABASE_NAME",
	"database.ssl_mode": "DATABASE_SSL_MODE",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"kafka.brokers":      "KAFKA_BROKERS",
	"kafka.report_topic": "KAFKA_REPORT_TOPIC",

	"jwt.secret_key": "JWT_SECRET_KEY",
	"log.level":      "LOG_LEVEL",

	"settlement.persist_metrics":  "PERSIST_METRICS",
	"settlement.reset_wagers":     "RESET_WAGERS",
	"settlement.odds":             "WAGER_ODDS",
	"settlement.period":           "SETTLEMENT_PERIOD",
	"settlement.starting_balance": "STARTING_BALANCE",
	"settlement.worst_messages":   "WORST_MESSAGES",
	"settlement.lock_ttl":         "SETTLEMENT_LOCK_TTL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "guacbot")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Minute*5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.report_topic", "guac.settlement.reports")

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("log.level", "info")

	v.SetDefault("settlement.persist_metrics", false)
	v.SetDefault("settlement.reset_wagers", true)
	v.SetDefault("settlement.odds", 2)
	v.SetDefault("settlement.period", 7*24*time.Hour)
	v.SetDefault("settlement.starting_balance", 100000)
	v.SetDefault("settlement.worst_messages", 10)
	v.SetDefault("settlement.lock_ttl", 10*time.Minute)
}

// Load reads configuration. A missing config file is not an error; the
// environment always overrides it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// .env keys arrive flat (database_host); lift them onto the nested keys.
		for key, env := range envBindings {
			if flat := strings.ToLower(env); v.InConfig(flat) {
				v.SetDefault(key, v.Get(flat))
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c SettlementConfig) validate() error {
	if c.Odds < 1 || c.Odds > models.MaxOdds {
		return fmt.Errorf("WAGER_ODDS must be between 1 and %d, got %d", models.MaxOdds, c.Odds)
	}
	if c.Period <= 0 {
		return fmt.Errorf("SETTLEMENT_PERIOD must be positive, got %s", c.Period)
	}
	return nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Addr returns host:port for the redis client.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
