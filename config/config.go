package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Storage  StorageConfig  `yaml:"storage"`
	Gallery  GalleryConfig  `yaml:"gallery"`
	Timezone string         `yaml:"timezone"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres, mysql, sqlite
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Expiration time.Duration `yaml:"expiration"`
}

// RedisConfig is optional; an empty Addr disables the view guard.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig is optional; no brokers means events are dropped.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type StorageConfig struct {
	Driver string      `yaml:"driver"` // local, oss
	Local  LocalConfig `yaml:"local"`
	OSS    OSSConfig   `yaml:"oss"`
}

type LocalConfig struct {
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`
}

type OSSConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	Bucket          string `yaml:"bucket"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

type GalleryConfig struct {
	TempTTL       time.Duration `yaml:"temp_ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"`
	RetrySchedule string        `yaml:"retry_schedule"`
	MaxEdge       int           `yaml:"max_edge"`
	MaxUploadSize int64         `yaml:"max_upload_size"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "postgres",
			DSN:    "host=localhost user=postgres password=postgres dbname=kb_portal port=5432 sslmode=disable",
		},
		JWT: JWTConfig{
			Secret:     "your-secret-key-change-this-in-production",
			Expiration: 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic: "kb-portal.events",
		},
		Storage: StorageConfig{
			Driver: "local",
			Local: LocalConfig{
				Root:    "storage",
				BaseURL: "/storage",
			},
		},
		Gallery: GalleryConfig{
			TempTTL:       24 * time.Hour,
			SweepSchedule: "0 * * * *",
			RetrySchedule: "*/15 * * * *",
			MaxEdge:       1920,
			MaxUploadSize: 5 << 20,
		},
		Timezone: "Local",
	}
}

// Load reads defaults, then the YAML file at path if it exists, then
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else {
			slog.Info("config file not found, using defaults", "path", path)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Mode, "GIN_MODE")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DB_DSN")
	setString(&c.JWT.Secret, "JWT_SECRET")
	if v := os.Getenv("JWT_EXPIRATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.JWT.Expiration = d
		}
	}
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.Local.Root, "STORAGE_ROOT")
	setString(&c.Storage.Local.BaseURL, "STORAGE_BASE_URL")
	setString(&c.Storage.OSS.Endpoint, "OSS_ENDPOINT")
	setString(&c.Storage.OSS.AccessKeyID, "OSS_ACCESS_KEY_ID")
	setString(&c.Storage.OSS.AccessKeySecret, "OSS_ACCESS_KEY_SECRET")
	setString(&c.Storage.OSS.Bucket, "OSS_BUCKET")
	setString(&c.Storage.OSS.PublicBaseURL, "OSS_PUBLIC_BASE_URL")
	setString(&c.Timezone, "APP_TIMEZONE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Address is the listen address for the HTTP server.
func (c *Config) Address() string {
	if _, err := strconv.Atoi(c.Server.Port); err == nil {
		return ":" + c.Server.Port
	}
	return c.Server.Port
}

// Location resolves Timezone; unknown names fall back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using local", "timezone", c.Timezone, "error", err)
		return time.Local
	}
	return loc
}
