package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	MySQL  MySQLConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	SMTP   SMTPConfig
	Follow FollowConfig
	Log    LogConfig
}

type ServerConfig struct {
	Addr string
}

type MySQLConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// PostTypeConfig 管理端针对单个 post_type 的配置
type PostTypeConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	InstantNotifications bool   `mapstructure:"instant_notifications"`
	DigestMode           string `mapstructure:"digest_mode"` // combined/separate/user_choice
}

// FollowConfig 关注域配置，显式注入各组件，不走全局状态
type FollowConfig struct {
	FollowersSlug     string                    `mapstructure:"followers_slug"`
	FollowingSlug     string                    `mapstructure:"following_slug"`
	PostTypes         map[string]PostTypeConfig `mapstructure:"post_types"`
	Taxonomies        []string                  `mapstructure:"taxonomies"`
	QueueBatchSize    int                       `mapstructure:"queue_batch_size"`
	DrainInterval     time.Duration             `mapstructure:"drain_interval"`
	OutboxInterval    time.Duration             `mapstructure:"outbox_interval"`
	ReconcileInterval time.Duration             `mapstructure:"reconcile_interval"`
	CacheTTL          time.Duration             `mapstructure:"cache_ttl"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// EnabledPostTypes 已启用的 post_type 集合，空配置时退回默认 post
func (c FollowConfig) EnabledPostTypes() []string {
	var enabled []string
	for pt, ptc := range c.PostTypes {
		if ptc.Enabled {
			enabled = append(enabled, pt)
		}
	}
	if len(enabled) == 0 {
		enabled = []string{"post"}
	}
	return enabled
}

func (c FollowConfig) IsPostTypeEnabled(postType string) bool {
	for _, pt := range c.EnabledPostTypes() {
		if pt == postType {
			return true
		}
	}
	return false
}

func (c FollowConfig) IsTaxonomyEnabled(taxonomy string) bool {
	for _, t := range c.Taxonomies {
		if t == taxonomy {
			return true
		}
	}
	return false
}

// InstantNotifications 某 post_type 是否即时通知，默认开
func (c FollowConfig) InstantNotifications(postType string) bool {
	if ptc, ok := c.PostTypes[postType]; ok {
		return ptc.InstantNotifications
	}
	return true
}

// DigestMode 某 post_type 的摘要模式，默认 combined
func (c FollowConfig) DigestMode(postType string) string {
	if ptc, ok := c.PostTypes[postType]; ok && ptc.DigestMode != "" {
		return ptc.DigestMode
	}
	return "combined"
}

// Load 读取 yaml 配置并叠加环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("mysql.dsn", "user:password@tcp(127.0.0.1:3306)/community?charset=utf8mb4&parseTime=True")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic", "follow-events")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("follow.followers_slug", "followers")
	v.SetDefault("follow.following_slug", "following")
	v.SetDefault("follow.taxonomies", []string{"category", "post_tag"})
	v.SetDefault("follow.queue_batch_size", 50)
	v.SetDefault("follow.drain_interval", "60s")
	v.SetDefault("follow.outbox_interval", "1s")
	v.SetDefault("follow.reconcile_interval", "5m")
	v.SetDefault("follow.cache_ttl", "1h")
	v.SetDefault("log.level", "info")

	v.BindEnv("server.addr", "SERVER_ADDR")
	v.BindEnv("mysql.dsn", "MYSQL_DSN")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("smtp.host", "SMTP_HOST")
	v.BindEnv("smtp.username", "SMTP_USERNAME")
	v.BindEnv("smtp.password", "SMTP_PASSWORD")
	v.BindEnv("log.level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
