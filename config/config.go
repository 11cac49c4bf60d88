// Package config loads service configuration from an optional YAML file and the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

// Config holds all configuration for the asset tracker.
type Config struct {
	Mode     string         `yaml:"mode"`
	Port     string         `yaml:"port"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`

	WebOrigin string   `yaml:"web_origin"`
	RPID      string   `yaml:"rp_id"`
	RPOrigins []string `yaml:"rp_origins"`

	// 允许登录并视为管理员的用户名
	AdminUsernames []string `yaml:"admin_usernames"`

	SessionTTL    time.Duration `yaml:"session_ttl"`     // passkey 仪式数据
	AppSessionTTL time.Duration `yaml:"app_session_ttl"` // 业务会话
	LoginLimit    int           `yaml:"login_limit"`     // 每分钟每 IP

	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`

	UploadDir    string `yaml:"upload_dir"`
	UploadPrefix string `yaml:"upload_prefix"`
}

// LoadEnv reads a .env file if one exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "err", err)
	}
}

func defaults() Config {
	return Config{
		Mode: "debug",
		Port: "3001",
		Database: DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    "5432",
			User:    "postgres",
			Name:    "assets",
			SSLMode: "disable",
		},
		Redis:          RedisConfig{Addr: "127.0.0.1:6379"},
		WebOrigin:      "http://localhost:3000",
		RPID:           "localhost",
		AdminUsernames: []string{"admin"},
		SessionTTL:     10 * time.Minute,
		AppSessionTTL:  24 * time.Hour,
		LoginLimit:     5,
		JWTExpiry:      time.Hour,
		UploadDir:      "static/uploads",
		UploadPrefix:   "static/uploads",
	}
}

// Load starts from defaults, applies CONFIG_FILE (YAML) when set, then environment variables.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnv(&cfg)

	if len(cfg.RPOrigins) == 0 {
		cfg.RPOrigins = []string{cfg.WebOrigin}
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Mode, "GIN_MODE")
	setString(&cfg.Port, "PORT")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.WebOrigin, "WEB_ORIGIN")
	setString(&cfg.RPID, "RP_ID")
	setCSV(&cfg.RPOrigins, "RP_ORIGINS", false)
	setCSV(&cfg.AdminUsernames, "ADMIN_USERNAMES", true)
	setSeconds(&cfg.SessionTTL, "SESSION_TTL_SECONDS")
	setSeconds(&cfg.AppSessionTTL, "APP_SESSION_TTL_SECONDS")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setDuration(&cfg.JWTExpiry, "JWT_EXPIRY")
	setString(&cfg.UploadDir, "UPLOAD_DIR")
	setString(&cfg.UploadPrefix, "UPLOAD_PREFIX")
	if v := os.Getenv("LOGIN_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LoginLimit = n
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setCSV(dst *[]string, key string, lower bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(s); t != "" {
			if lower {
				t = strings.ToLower(t)
			}
			out = append(out, t)
		}
	}
	*dst = out
}

func setSeconds(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = time.Duration(n) * time.Second
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
