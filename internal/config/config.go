package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of config/config.yaml.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port     int   `mapstructure:"port"`
	WorkerID int64 `mapstructure:"worker_id"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	BidEvent    string `mapstructure:"bid_event"`
	PayoutEvent string `mapstructure:"payout_event"`
}

type BusinessConfig struct {
	// ContributorShareBps is the part of a bid's amount, in basis points,
	// distributed to dish media contributors on settlement.
	ContributorShareBps     int64 `mapstructure:"contributor_share_bps"`
	SettleIntervalSeconds   int   `mapstructure:"settle_interval_seconds"`
	SettleBatchSize         int   `mapstructure:"settle_batch_size"`
	OutboxIntervalMillis    int   `mapstructure:"outbox_interval_millis"`
	OutboxBatchSize         int   `mapstructure:"outbox_batch_size"`
	MaxRetryCount           int   `mapstructure:"max_retry_count"`
	SettleLockExpireSeconds int   `mapstructure:"settle_lock_expire_seconds"`
}

func (b BusinessConfig) SettleInterval() time.Duration {
	return time.Duration(b.SettleIntervalSeconds) * time.Second
}

func (b BusinessConfig) OutboxInterval() time.Duration {
	return time.Duration(b.OutboxIntervalMillis) * time.Millisecond
}

func (b BusinessConfig) SettleLockExpire() time.Duration {
	return time.Duration(b.SettleLockExpireSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.worker_id", 1)
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.auto_migrate", true)
	v.SetDefault("kafka.topic.bid_event", "settlement.bid")
	v.SetDefault("kafka.topic.payout_event", "settlement.payout")
	v.SetDefault("business.contributor_share_bps", 3000)
	v.SetDefault("business.settle_interval_seconds", 60)
	v.SetDefault("business.settle_batch_size", 50)
	v.SetDefault("business.outbox_interval_millis", 200)
	v.SetDefault("business.outbox_batch_size", 100)
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.settle_lock_expire_seconds", 60)
}

// LoadConfig reads the yaml file; NANITABEYO_MYSQL_HOST and friends override it.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NANITABEYO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Business.ContributorShareBps <= 0 || c.Business.ContributorShareBps > 10000 {
		return fmt.Errorf("business.contributor_share_bps must be in 1..10000, got %d", c.Business.ContributorShareBps)
	}
	if c.Business.MaxRetryCount <= 0 {
		return fmt.Errorf("business.max_retry_count must be positive, got %d", c.Business.MaxRetryCount)
	}
	if c.Server.WorkerID < 0 || c.Server.WorkerID > 1023 {
		return fmt.Errorf("server.worker_id must be in 0..1023, got %d", c.Server.WorkerID)
	}
	return nil
}
