package service

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StoreS3   = "s3"
	StoreFile = "file"

	RunModeJob    = "job"
	RunModeServer = "server"
)

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type ObjectStoreConfig struct {
	Kind            string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
	KeyPrefix       string
	// BaseDir is the root directory for the file store.
	BaseDir string
}

type Config struct {
	Database    DatabaseConfig
	ObjectStore ObjectStoreConfig

	ExportDir string
	Tables    []string

	RunMode string
	Port    string
	APIKey  string

	LogFormat string
	LogLevel  slog.Level
}

// LoadConfigFromEnv reads the process environment. Call godotenv.Load first
// if a .env file should be honored.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Database: DatabaseConfig{
			Driver:   strings.ToLower(envOr("DB_DRIVER", DriverMySQL)),
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: os.Getenv("DB_DATABASE"),
		},
		ObjectStore: ObjectStoreConfig{
			Kind:            strings.ToLower(envOr("OBJECT_STORE", StoreS3)),
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          os.Getenv("AWS_REGION"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			UsePathStyle:    envBool("S3_USE_PATH_STYLE"),
			KeyPrefix:       os.Getenv("S3_KEY_PREFIX"),
			BaseDir:         envOr("OBJECT_STORE_DIR", "objects"),
		},
		ExportDir: envOr("EXPORT_DIR", "."),
		Tables:    splitList(os.Getenv("EXPORT_TABLES")),
		RunMode:   strings.ToLower(envOr("RUN_MODE", RunModeJob)),
		Port:      envOr("PORT", "8080"),
		APIKey:    os.Getenv("API_KEY"),
		LogFormat: strings.ToLower(envOr("LOG_FORMAT", "json")),
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values only. Missing connection settings are
// left for the connection attempt to report.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q: want mysql, postgres or sqlite", c.Database.Driver)
	}
	switch c.ObjectStore.Kind {
	case StoreS3, StoreFile:
	default:
		return fmt.Errorf("unsupported OBJECT_STORE %q: want s3 or file", c.ObjectStore.Kind)
	}
	switch c.RunMode {
	case RunModeJob, RunModeServer:
	default:
		return fmt.Errorf("unsupported RUN_MODE %q: want job or server", c.RunMode)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q: want json or text", c.LogFormat)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1" || v == "yes"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
