package config

import (
	"time"

	pkgconfig "github.com/weiawesome/wes-io-live/profile-image-service/pkg/config"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/database"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/pubsub"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/storage"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Profile    ProfileConfig    `mapstructure:"profile"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Storage    storage.Config   `mapstructure:"storage"`
	Transport  TransportConfig  `mapstructure:"transport"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
	Database   database.Config  `mapstructure:"database"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// ProfileConfig identifies the session's self user.
type ProfileConfig struct {
	UserID          string `mapstructure:"user_id"`
	ReuploadOnStart bool   `mapstructure:"reupload_on_start"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type TransportConfig struct {
	Type         string        `mapstructure:"type"` // "storage", "http"
	AssetURL     string        `mapstructure:"asset_url"`
	AccessToken  string        `mapstructure:"access_token"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryCount   int           `mapstructure:"retry_count"`
	MaxAssetSize int64         `mapstructure:"max_asset_size"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	KeyGenerator string        `mapstructure:"key_generator"` // "ulid", "uuid"
	URLExpiry    time.Duration `mapstructure:"url_expiry"`
}

type ProcessorConfig struct {
	Sizes       []SizeConfig `mapstructure:"sizes"`
	JpegQuality int          `mapstructure:"jpeg_quality"`
	Workers     int          `mapstructure:"workers"`
	QueueSize   int          `mapstructure:"queue_size"`
}

// SizeConfig describes one output size. Mode is "fill" (crop to exactly
// width x height) or "fit" (scale down within width x height).
type SizeConfig struct {
	Name   string `mapstructure:"name"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Mode   string `mapstructure:"mode"`
}

type NotifierConfig struct {
	Driver string        `mapstructure:"driver"` // "none", "redis", "kafka"
	PubSub pubsub.Config `mapstructure:"pubsub"`
}

type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type DispatcherConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type IngestConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// DefaultSizes are the preview and complete variants.
func DefaultSizes() []SizeConfig {
	return []SizeConfig{
		{Name: "preview", Width: 280, Height: 280, Mode: "fill"},
		{Name: "complete", Width: 1024, Height: 1024, Mode: "fit"},
	}
}

func Load() (*Config, error) {
	return LoadFrom(pkgconfig.GetEnv("CONFIG_PATH", "./config"))
}

func LoadFrom(configPath string) (*Config, error) {
	v, err := pkgconfig.Load(configPath, "config")
	if err != nil {
		return nil, err
	}

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("profile.reupload_on_start", true)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.issuer", "wes-io-live")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_path_style", true)
	v.SetDefault("storage.local.base_path", "./data/assets")
	v.SetDefault("transport.type", "storage")
	v.SetDefault("transport.timeout", "30s")
	v.SetDefault("transport.retry_count", 2)
	v.SetDefault("transport.max_asset_size", 15*1024*1024)
	v.SetDefault("transport.key_prefix", "profile-images/")
	v.SetDefault("transport.key_generator", "ulid")
	v.SetDefault("transport.url_expiry", "1h")
	v.SetDefault("processor.jpeg_quality", 85)
	v.SetDefault("processor.workers", 2)
	v.SetDefault("processor.queue_size", 16)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "profile_image_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/profile.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("notifier.driver", "none")
	v.SetDefault("notifier.pubsub.redis.address", "localhost:6379")
	v.SetDefault("notifier.pubsub.redis.pool_size", 10)
	v.SetDefault("notifier.pubsub.redis.read_timeout", "3s")
	v.SetDefault("notifier.pubsub.redis.write_timeout", "3s")
	v.SetDefault("notifier.pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("notifier.pubsub.kafka.group_id", "profile-image-service")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "profile-image-updated")
	v.SetDefault("dispatcher.poll_interval", "5s")
	v.SetDefault("ingest.enabled", false)
	v.SetDefault("ingest.dir", "./data/inbox")

	// Env bindings
	v.BindEnv("server.port", "PORT")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("profile.user_id", "PROFILE_USER_ID")
	v.BindEnv("auth.enabled", "AUTH_ENABLED")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.region", "S3_REGION")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	v.BindEnv("storage.local.base_path", "STORAGE_LOCAL_PATH")
	v.BindEnv("transport.type", "TRANSPORT_TYPE")
	v.BindEnv("transport.asset_url", "ASSET_URL")
	v.BindEnv("transport.access_token", "ASSET_ACCESS_TOKEN")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("notifier.driver", "NOTIFIER_DRIVER")
	v.BindEnv("notifier.pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("notifier.pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("notifier.pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("ingest.enabled", "INGEST_ENABLED")
	v.BindEnv("ingest.dir", "INGEST_DIR")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.Processor.Sizes) == 0 {
		cfg.Processor.Sizes = DefaultSizes()
	}
	cfg.Notifier.PubSub.Driver = cfg.Notifier.Driver

	return &cfg, nil
}
