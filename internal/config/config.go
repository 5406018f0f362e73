package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Worker   WorkerConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Signing  SigningConfig
	Assets   AssetsConfig
	FFmpeg   FFmpegConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"5m"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
	UploadDir       string        `envconfig:"API_UPLOAD_DIR" default:"/tmp/vidshelf/uploads"`
	MaxUploadBytes  int64         `envconfig:"API_MAX_UPLOAD_BYTES" default:"2147483648"`
	// EnqueueQualities publishes a quality job for every upload.
	EnqueueQualities bool `envconfig:"API_ENQUEUE_QUALITIES" default:"true"`
}

type WorkerConfig struct {
	TempDir         string        `envconfig:"WORKER_TEMP_DIR" default:"/tmp/vidshelf"`
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	MaxHeight       int           `envconfig:"QUALITY_MAX_HEIGHT" default:"1080"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"vidshelf"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"vidshelf"`
	DBName   string `envconfig:"POSTGRES_DB" default:"vidshelf"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Endpoint       string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	PublicEndpoint string `envconfig:"MINIO_PUBLIC_ENDPOINT"`
	AccessKey      string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket         string `envconfig:"MINIO_BUCKET" default:"vidshelf"`
	UseSSL         bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

// RabbitMQConfig addresses the broker. MaxRedeliveries caps republishing of a
// task whose handler keeps failing; 0 disables the cap.
type RabbitMQConfig struct {
	Host            string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port            int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User            string `envconfig:"RABBITMQ_USER" default:"vidshelf"`
	Password        string `envconfig:"RABBITMQ_PASSWORD" default:"vidshelf"`
	VHost           string `envconfig:"RABBITMQ_VHOST" default:"/"`
	Queue           string `envconfig:"RABBITMQ_QUEUE" default:"quality_tasks"`
	MaxRedeliveries int    `envconfig:"RABBITMQ_MAX_REDELIVERIES" default:"10"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type RedisConfig struct {
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL time.Duration `envconfig:"REDIS_CACHE_TTL" default:"5m"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type CatalogConfig struct {
	// Freshness is how old the snapshot may get before reads report it as stale.
	Freshness   time.Duration `envconfig:"CATALOG_FRESHNESS" default:"30s"`
	Concurrency int           `envconfig:"CATALOG_SCAN_CONCURRENCY" default:"8"`
}

type SigningConfig struct {
	MediaURLTTL  time.Duration `envconfig:"MEDIA_URL_TTL" default:"1h"`
	AvatarURLTTL time.Duration `envconfig:"AVATAR_URL_TTL" default:"24h"`
}

type AssetsConfig struct {
	DefaultAvatarPath string `envconfig:"DEFAULT_AVATAR_PATH" default:"assets/default_avatar.png"`
}

type FFmpegConfig struct {
	Path        string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	VideoCodec  string `envconfig:"FFMPEG_VIDEO_CODEC" default:"libx264"`
	VideoPreset string `envconfig:"FFMPEG_PRESET" default:"medium"`
	AudioCodec  string `envconfig:"FFMPEG_AUDIO_CODEC" default:"aac"`
}

// Load reads the optional .env files (".env" when none are given) and then the
// process environment. Variables already set in the environment take precedence.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
