package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Pipeline PipelineConfig
	SMTP     SMTPConfig
	SMS      SMSConfig

	SpeedLimitURL string `env:"SPEED_LIMIT_URL"`
	SpeedLimitKey string `env:"SPEED_LIMIT_API_KEY"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=fleet_alerting"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type PostgresConfig struct {
	URI string `env:"POSTGRES_URI, default=postgres://localhost:5432/fleet_alerting"`
}

type KafkaConfig struct {
	Enabled         bool   `env:"KAFKA_ENABLED,          default=false"`
	Brokers         string `env:"KAFKA_BROKERS,          default=localhost:9092"`
	Topic           string `env:"KAFKA_TOPIC,            default=fleet.telemetry.raw"`
	GroupID         string `env:"KAFKA_GROUP_ID,         default=fleet-alerting"`
	DefaultProvider string `env:"KAFKA_DEFAULT_PROVIDER, default=canonical"`
}

type PipelineConfig struct {
	Workers       int           `env:"PIPELINE_WORKERS,        default=8"`
	DedupWindow   time.Duration `env:"ALERT_DEDUP_WINDOW,      default=30m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL,          default=1m"`
	TripGrace     time.Duration `env:"TRIP_GRACE,              default=10m"`
	HistoryWarmup int           `env:"STATE_HISTORY_WARMUP,    default=5"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT, default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM, default=alerts@fleetpulse.io"`
}

type SMSConfig struct {
	GatewayURL string `env:"SMS_GATEWAY_URL"`
	APIKey     string `env:"SMS_API_KEY"`
	Sender     string `env:"SMS_SENDER, default=FLEET"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
