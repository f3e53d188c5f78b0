package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type IBConfig struct {
	Env        string `yaml:"env" env:"IB_ENV" env-default:"local"`
	GRPCServer        `yaml:"grpc_server"`
	HTTPServer        `yaml:"http_server"`
	IBDB              `yaml:"ib_db"`
	LogConfig         `yaml:"log_config"`
	Kafka             `yaml:"kafka"`
	Platform          `yaml:"platform"`
	Sync              `yaml:"sync"`
	Commission        `yaml:"commission"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"IB_GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"IB_GRPC_PORT" env-default:"50061"`
}

type HTTPServer struct {
	Host string `yaml:"host" env:"IB_HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"IB_HTTP_PORT" env-default:"8081"`
}

type IBDB struct {
	Dsn             string        `yaml:"dsn" env:"IB_DB_DSN" env-required:"true"`
	MigrationsPath  string        `yaml:"migrations_path" env:"IB_DB_MIGRATIONS_PATH" env-default:"migrations"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"30m"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"IB_LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"IB_LOG_FORMAT" env-default:"json"`
	LogOutput string `yaml:"log_output" env:"IB_LOG_OUTPUT" env-default:"stdout"`
}

type Kafka struct {
	Host       string `yaml:"host" env:"IB_KAFKA_HOST" env-default:"localhost"`
	Port       string `yaml:"port" env:"IB_KAFKA_PORT" env-default:"9092"`
	Username   string `yaml:"username" env:"IB_KAFKA_USERNAME"`
	Password   string `yaml:"password" env:"IB_KAFKA_PASSWORD"`
	Mechanism  string `yaml:"mechanism" env:"IB_KAFKA_MECHANISM" env-default:"SCRAM-SHA-512"`
	TLSEnabled bool   `yaml:"tls_enabled" env:"IB_KAFKA_TLS"`
	GroupID    string `yaml:"group_id" env:"IB_KAFKA_GROUP_ID" env-default:"ib-service"`
	Enabled    bool   `yaml:"enabled" env:"IB_KAFKA_ENABLED" env-default:"true"`
}

func (k Kafka) Brokers() []string {
	return []string{fmt.Sprintf("%s:%s", k.Host, k.Port)}
}

type Platform struct {
	BaseURL  string        `yaml:"base_url" env:"IB_PLATFORM_URL" env-required:"true"`
	Timeout  time.Duration `yaml:"timeout" env-default:"15s"`
	PageSize int           `yaml:"page_size" env-default:"500"`
	MaxPages int           `yaml:"max_pages" env-default:"50"`
	// Divides plain "volume" fields into lots.
	VolumeScale float64 `yaml:"volume_scale" env:"IB_PLATFORM_VOLUME_SCALE" env-default:"1"`
}

type Sync struct {
	Schedule           string        `yaml:"schedule" env:"IB_SYNC_SCHEDULE" env-default:"@every 5m"`
	InitialDelay       time.Duration `yaml:"initial_delay" env-default:"30s"`
	Window             time.Duration `yaml:"window" env-default:"168h"`
	BackfillWindow     time.Duration `yaml:"backfill_window" env-default:"2160h"`
	AccountConcurrency int           `yaml:"account_concurrency" env:"IB_SYNC_CONCURRENCY" env-default:"4"`
	AccountTimeout     time.Duration `yaml:"account_timeout" env-default:"2m"`
	AggregateTimeout   time.Duration `yaml:"aggregate_timeout" env-default:"1m"`
}

type Commission struct {
	MaxAge   time.Duration `yaml:"max_age" env:"IB_COMMISSION_MAX_AGE" env-default:"4h"`
	CacheTTL time.Duration `yaml:"cache_ttl" env-default:"5m"`
}

func MustLoad() *IBConfig {

	// Processing env config variable and file
	configPath := os.Getenv("IB_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("IB_CONFIG_PATH was not found\n")
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("failed to find config file: %v\n", err)
	}

	// YAML to struct object, env overrides on top
	var cfg IBConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	return &cfg
}
