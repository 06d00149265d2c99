package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the cafe POS
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Announcer AnnouncerConfig `mapstructure:"announcer"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Barista   BaristaConfig   `mapstructure:"barista"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PaymentConfig points at the payment-intent API
type PaymentConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Currency string        `mapstructure:"currency"`
	Methods  []string      `mapstructure:"methods"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TTSConfig configures the text-to-speech API
type TTSConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Speaker string        `mapstructure:"speaker"`
	Volume  float64       `mapstructure:"volume"`
	Speed   float64       `mapstructure:"speed"`
	Format  string        `mapstructure:"format"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AnnouncerConfig struct {
	PushURL        string        `mapstructure:"push_url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	Template       string        `mapstructure:"template"`
	PlayerCommand  string        `mapstructure:"player_command"`
	// MetricsPort serves /metrics when non-zero.
	MetricsPort int `mapstructure:"metrics_port"`
}

type QueueConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type CheckoutConfig struct {
	CommitTimeout time.Duration `mapstructure:"commit_timeout"`
}

type BaristaConfig struct {
	Name              string        `mapstructure:"name"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	Prefetch          int           `mapstructure:"prefetch"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cafe")
	v.SetDefault("database.password", "cafe")
	v.SetDefault("database.database", "cafe_pos")

	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("payment.base_url", "http://localhost:4000")
	v.SetDefault("payment.currency", "thb")
	v.SetDefault("payment.methods", []string{"promptpay"})
	v.SetDefault("payment.timeout", 10*time.Second)

	v.SetDefault("tts.url", "https://api-voice.botnoi.ai/openapi/v1/generate_audio")
	v.SetDefault("tts.token", "")
	v.SetDefault("tts.speaker", "2")
	v.SetDefault("tts.volume", 1)
	v.SetDefault("tts.speed", 1)
	v.SetDefault("tts.format", "mp3")
	v.SetDefault("tts.timeout", 15*time.Second)

	v.SetDefault("announcer.push_url", "ws://localhost:3000/ws/ready")
	v.SetDefault("announcer.reconnect_delay", 3*time.Second)
	v.SetDefault("announcer.template", "Order number {order_id} is ready")
	v.SetDefault("announcer.player_command", "mpg123 -q {url}")
	v.SetDefault("announcer.metrics_port", 9102)

	v.SetDefault("queue.page_size", 6)

	v.SetDefault("checkout.commit_timeout", 15*time.Second)

	v.SetDefault("barista.name", "bar-1")
	v.SetDefault("barista.heartbeat_interval", 30*time.Second)
	v.SetDefault("barista.prefetch", 1)
}

// Load reads configuration from a YAML file. An empty filename loads the
// defaults. Environment variables prefixed with CAFE_ override both, e.g.
// CAFE_DATABASE_HOST.
func Load(filename string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Queue.PageSize < 1 {
		return fmt.Errorf("queue.page_size must be positive, got %d", c.Queue.PageSize)
	}
	if c.Announcer.ReconnectDelay <= 0 {
		return fmt.Errorf("announcer.reconnect_delay must be positive")
	}
	if c.Announcer.MetricsPort < 0 || c.Announcer.MetricsPort > 65535 {
		return fmt.Errorf("announcer.metrics_port must be between 0 and 65535")
	}
	if !strings.Contains(c.Announcer.Template, "{order_id}") {
		return fmt.Errorf("announcer.template must contain {order_id}")
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
