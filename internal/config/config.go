package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the application.
// Values come from environment variables, with sane local defaults.
type Config struct {
	AppPort      string
	DatabaseDSN  string
	JWTSecret    string
	JWTExpiresIn time.Duration
	RabbitMQURL  string
	Storage      StorageConfig
}

// StorageConfig holds the S3-compatible object store settings.
// ForcePathStyle must be true for MinIO-style endpoints.
type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	ForcePathStyle  bool
	// PublicURL overrides Endpoint when deriving public object URLs,
	// e.g. when the store sits behind a CDN or reverse proxy.
	PublicURL string
}

// Load reads configuration from the environment via Viper.
func Load() *Config {
	v := viper.New()

	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=hortti port=5432 sslmode=disable")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRES_IN", "12h")
	v.SetDefault("RABBITMQ_URL", "")

	v.SetDefault("S3_ENDPOINT", "http://minio:9000")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ACCESS_KEY_ID", "minioadmin")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_BUCKET_NAME", "hortti-products")
	v.SetDefault("S3_FORCE_PATH_STYLE", true)
	v.SetDefault("S3_PUBLIC_URL", "")

	v.AutomaticEnv()

	return &Config{
		AppPort:      v.GetString("APP_PORT"),
		DatabaseDSN:  v.GetString("DATABASE_DSN"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		JWTExpiresIn: v.GetDuration("JWT_EXPIRES_IN"),
		RabbitMQURL:  v.GetString("RABBITMQ_URL"),
		Storage: StorageConfig{
			Endpoint:        v.GetString("S3_ENDPOINT"),
			Region:          v.GetString("S3_REGION"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			Bucket:          v.GetString("S3_BUCKET_NAME"),
			ForcePathStyle:  v.GetBool("S3_FORCE_PATH_STYLE"),
			PublicURL:       v.GetString("S3_PUBLIC_URL"),
		},
	}
}
