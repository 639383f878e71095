package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultConfigPath  = "config/config.yaml"
	DefaultMaxUpload   = 5 * 1024 * 1024 // 5MB
	minJWTSecretLength = 16
)

type Config struct {
	Server struct {
		Host            string   `yaml:"host"`
		Port            int      `yaml:"port"`
		Env             string   `yaml:"env"`
		ClientURL       string   `yaml:"client_url"`   // Адрес фронтенда (ссылки в письмах)
		CORSOrigins     []string `yaml:"cors_origins"` // Пусто = ClientURL
		ShutdownTimeout int      `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Database struct {
		DSN          string `yaml:"url"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
		AutoMigrate  bool   `yaml:"auto_migrate"`
	} `yaml:"database"`

	JWT struct {
		Secret       string `yaml:"secret"`
		TTL          int    `yaml:"ttl"`         // минуты
		RefreshTTL   int    `yaml:"refresh_ttl"` // часы
		CookieName   string `yaml:"cookie_name"`
		CookieSecure bool   `yaml:"cookie_secure"`
	} `yaml:"jwt"`

	Email struct {
		Enabled      bool   `yaml:"enabled"`
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		UseTLS       bool   `yaml:"use_tls"`
		TemplatesDir string `yaml:"templates_dir"`
	} `yaml:"email"`

	Storage struct {
		Type      string `yaml:"type"`       // local, s3, cloudflare_r2
		BasePath  string `yaml:"base_path"`  // Для local
		BaseURL   string `yaml:"base_url"`   // Публичный префикс URL
		Bucket    string `yaml:"bucket"`     // Для S3/R2
		Region    string `yaml:"region"`     // Для S3
		AccessKey string `yaml:"access_key"` // Для S3/R2
		SecretKey string `yaml:"secret_key"` // Для S3/R2
		Endpoint  string `yaml:"endpoint"`   // Для R2 или совместимого S3
	} `yaml:"storage"`

	Upload struct {
		MaxSize       int64    `yaml:"max_size"`
		ImageTypes    []string `yaml:"image_types"`
		DocumentTypes []string `yaml:"document_types"`
		Thumbnails    bool     `yaml:"thumbnails"`
		ImageQuality  int      `yaml:"image_quality"`
	} `yaml:"upload"`

	RateLimit struct {
		AuthRequests int `yaml:"auth_requests"` // запросов за окно
		AuthWindow   int `yaml:"auth_window"`   // секунды
		AuthBurst    int `yaml:"auth_burst"`
	} `yaml:"rate_limit"`

	Relay struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
		SendBuffer     int      `yaml:"send_buffer"`
		PingPeriod     int      `yaml:"ping_period"` // секунды
	} `yaml:"relay"`

	FirstAdmin struct {
		Email     string `yaml:"email"`
		Password  string `yaml:"password"`
		FirstName string `yaml:"first_name"`
		LastName  string `yaml:"last_name"`
	} `yaml:"first_admin"`
}

// LoadConfig читает YAML (если файл есть) и накладывает переменные окружения.
// Без файла и без DATABASE_URL запуск невозможен.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file at %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && os.Getenv("DATABASE_URL") != "":
		// Режим окружения (docker, тесты): файла нет, всё берём из env
	default:
		return nil, fmt.Errorf("failed to open config file at %s: %w", configPath, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse разбирает YAML из памяти. Используется в тестах.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Server.Env, "SERVER_ENV")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.ClientURL, "CLIENT_URL")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.FirstAdmin.Email, "FIRST_ADMIN_EMAIL")
	setString(&cfg.FirstAdmin.Password, "FIRST_ADMIN_PASSWORD")
	setString(&cfg.Email.SMTPHost, "SMTP_HOST")
	setInt(&cfg.Email.SMTPPort, "SMTP_PORT")
	setString(&cfg.Email.SMTPUsername, "SMTP_USER")
	setString(&cfg.Email.SMTPPassword, "SMTP_PASSWORD")
	setString(&cfg.Storage.Type, "STORAGE_TYPE")
	setString(&cfg.Storage.BasePath, "UPLOAD_DIR")

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Server.ClientURL == "" {
		cfg.Server.ClientURL = "http://localhost:5173"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{cfg.Server.ClientURL}
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10
	}

	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}

	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 60 * 24
	}
	if cfg.JWT.RefreshTTL == 0 {
		cfg.JWT.RefreshTTL = 24 * 30
	}
	if cfg.JWT.CookieName == "" {
		cfg.JWT.CookieName = "token"
	}

	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "Portfolio"
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./uploads"
	}
	if cfg.Storage.BaseURL == "" && cfg.Storage.Type == "local" {
		cfg.Storage.BaseURL = "/uploads"
	}

	if cfg.Upload.MaxSize == 0 {
		cfg.Upload.MaxSize = DefaultMaxUpload
	}
	if len(cfg.Upload.ImageTypes) == 0 {
		cfg.Upload.ImageTypes = []string{"image/jpeg", "image/png", "image/webp"}
	}
	if len(cfg.Upload.DocumentTypes) == 0 {
		cfg.Upload.DocumentTypes = []string{"application/pdf"}
	}
	if cfg.Upload.ImageQuality == 0 {
		cfg.Upload.ImageQuality = 85
	}

	if cfg.RateLimit.AuthRequests == 0 {
		cfg.RateLimit.AuthRequests = 10
	}
	if cfg.RateLimit.AuthWindow == 0 {
		cfg.RateLimit.AuthWindow = 60
	}
	if cfg.RateLimit.AuthBurst == 0 {
		cfg.RateLimit.AuthBurst = cfg.RateLimit.AuthRequests
	}

	if cfg.Relay.SendBuffer == 0 {
		cfg.Relay.SendBuffer = 64
	}
	if cfg.Relay.PingPeriod == 0 {
		cfg.Relay.PingPeriod = 30
	}
	if len(cfg.Relay.AllowedOrigins) == 0 {
		cfg.Relay.AllowedOrigins = cfg.Server.CORSOrigins
	}
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("config: database url is required")
	}
	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf("config: jwt secret must be at least %d characters", minJWTSecretLength)
	}
	switch c.Storage.Type {
	case "local", "s3", "cloudflare_r2":
	default:
		return fmt.Errorf("config: unsupported storage type %q", c.Storage.Type)
	}
	if c.Upload.MaxSize <= 0 {
		return errors.New("config: upload max_size must be positive")
	}
	if c.IsProduction() && (slices.Contains(c.Server.CORSOrigins, "*") || slices.Contains(c.Relay.AllowedOrigins, "*")) {
		return errors.New("config: wildcard origin is allowed only outside production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.TTL) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.JWT.RefreshTTL) * time.Hour
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
