package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"judgehub/internal/common/cache"
	"judgehub/internal/common/db"
	"judgehub/internal/common/mq"
	"judgehub/internal/dispatch/classifier"
	"judgehub/internal/dispatch/judgeclient"
	"judgehub/internal/dispatch/language"
	"judgehub/internal/dispatch/pool"
	"judgehub/internal/dispatch/repository"
	"judgehub/internal/dispatch/service"
	"judgehub/internal/dispatch/stats"
	"judgehub/pkg/utils/logger"

	"github.com/segmentio/kafka-go"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultContestTTL      = 30 * time.Second
	defaultConsumerGroup   = "judge-dispatcher"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// KafkaConfig holds Kafka settings.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	ClientID      string        `yaml:"clientID"`
	MinBytes      int           `yaml:"minBytes"`
	MaxBytes      int           `yaml:"maxBytes"`
	MaxWait       time.Duration `yaml:"maxWait"`
	BatchSize     int           `yaml:"batchSize"`
	BatchTimeout  time.Duration `yaml:"batchTimeout"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	RequiredAcks  int           `yaml:"requiredAcks"`
	Compression   string        `yaml:"compression"`
	DispatchTopic string        `yaml:"dispatchTopic"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	PrefetchCount int           `yaml:"prefetchCount"`
	Concurrency   int           `yaml:"concurrency"`
	MaxRetries    int           `yaml:"maxRetries"`
	RetryDelay    time.Duration `yaml:"retryDelay"`
	DeadLetter    string        `yaml:"deadLetterTopic"`
	MessageTTL    time.Duration `yaml:"messageTTL"`
}

// JudgeConfig holds judge server settings.
type JudgeConfig struct {
	Token              string        `yaml:"token"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	HeartbeatTolerance time.Duration `yaml:"heartbeatTolerance"`
	TaskPerCore        int           `yaml:"taskPerCore"`
	MaxDiffEntries     int           `yaml:"maxDiffEntries"`
	LockTTL            time.Duration `yaml:"lockTTL"`
	PendingKey         string        `yaml:"pendingKey"`
	StatusKey          string        `yaml:"statusKey"`
	ContestTTL         time.Duration `yaml:"contestTTL"`
}

// RankConfig holds contest rank settings.
type RankConfig struct {
	repository.RankCacheConfig `yaml:",inline"`
	Penalty                    time.Duration `yaml:"penalty"`
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// AppConfig holds judge-dispatcher config.
type AppConfig struct {
	Server    ServerConfig        `yaml:"server"`
	Logger    logger.Config       `yaml:"logger"`
	Database  db.MySQLConfig      `yaml:"database"`
	Redis     cache.RedisConfig   `yaml:"redis"`
	Kafka     KafkaConfig         `yaml:"kafka"`
	Judge     JudgeConfig         `yaml:"judge"`
	Rank      RankConfig          `yaml:"rank"`
	Auth      AuthConfig          `yaml:"auth"`
	Languages []language.Language `yaml:"languages"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *AppConfig) validate() error {
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if cfg.Judge.Token == "" {
		return fmt.Errorf("judge token is required")
	}
	return nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	applyMySQLDefaults(&cfg.Database)
	applyRedisDefaults(&cfg.Redis)

	if cfg.Kafka.DispatchTopic == "" {
		cfg.Kafka.DispatchTopic = service.DefaultDispatchTopic
	}
	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = defaultConsumerGroup
	}
	if cfg.Kafka.Concurrency <= 0 {
		cfg.Kafka.Concurrency = 1
	}

	if cfg.Judge.RequestTimeout == 0 {
		cfg.Judge.RequestTimeout = judgeclient.DefaultTimeout
	}
	if cfg.Judge.HeartbeatTolerance == 0 {
		cfg.Judge.HeartbeatTolerance = pool.DefaultHeartbeatTolerance
	}
	if cfg.Judge.TaskPerCore <= 0 {
		cfg.Judge.TaskPerCore = pool.DefaultTaskPerCore
	}
	if cfg.Judge.MaxDiffEntries == 0 {
		cfg.Judge.MaxDiffEntries = classifier.DefaultMaxDiffEntries
	}
	if cfg.Judge.ContestTTL == 0 {
		cfg.Judge.ContestTTL = defaultContestTTL
	}

	if cfg.Rank.ChangeThreshold <= 0 {
		cfg.Rank.ChangeThreshold = repository.DefaultRankChangeThreshold
	}
	if cfg.Rank.CounterTTL == 0 {
		cfg.Rank.CounterTTL = repository.DefaultRankCounterTTL
	}
	if cfg.Rank.SnapshotTTL == 0 {
		cfg.Rank.SnapshotTTL = repository.DefaultRankSnapshotTTL
	}
	if cfg.Rank.Penalty == 0 {
		cfg.Rank.Penalty = stats.DefaultPenalty
	}
}

func applyMySQLDefaults(cfg *db.MySQLConfig) {
	defaults := db.DefaultMySQLConfig()
	if cfg.MaxOpenConnections == 0 {
		cfg.MaxOpenConnections = defaults.MaxOpenConnections
	}
	if cfg.MaxIdleConnections == 0 {
		cfg.MaxIdleConnections = defaults.MaxIdleConnections
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = defaults.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = defaults.MaxRetryBackoff
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
}

func (k KafkaConfig) toMQConfig() mq.KafkaConfig {
	return mq.KafkaConfig{
		Brokers:      k.Brokers,
		ClientID:     k.ClientID,
		MinBytes:     k.MinBytes,
		MaxBytes:     k.MaxBytes,
		MaxWait:      k.MaxWait,
		BatchSize:    k.BatchSize,
		BatchTimeout: k.BatchTimeout,
		DialTimeout:  k.DialTimeout,
		RequiredAcks: kafka.RequiredAcks(k.RequiredAcks),
		Compression:  parseCompression(k.Compression),
	}
}

func (k KafkaConfig) subscribeOptions() *mq.SubscribeOptions {
	return &mq.SubscribeOptions{
		ConsumerGroup:   k.ConsumerGroup,
		PrefetchCount:   k.PrefetchCount,
		Concurrency:     k.Concurrency,
		MaxRetries:      k.MaxRetries,
		RetryDelay:      k.RetryDelay,
		DeadLetterTopic: k.DeadLetter,
		MessageTTL:      k.MessageTTL,
	}
}

func parseCompression(raw string) kafka.Compression {
	switch strings.ToLower(raw) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0)
	}
}
