package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PhilHem/timeremaining/backend/password"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MinSecretLength applies to both the session signing key and the shared app secret.
const MinSecretLength = 32

// Placeholder values that have shipped as defaults somewhere and must never be used.
var placeholderSecrets = []string{
	"your-secret-key-change-this-in-production",
	"your-shared-secret",
	"super-secret-key-change-in-prod",
	"change-me-in-production",
}

type Config struct {
	Listen       string           `yaml:"listen" env:"LISTEN"`
	DatabasePath string           `yaml:"database_path" env:"DATABASE_PATH"`
	StoreTimeout time.Duration    `yaml:"store_timeout" env:"STORE_TIMEOUT"` // bound on every store call
	Session      SessionConfig    `yaml:"session"`
	Validation   ValidationConfig `yaml:"validation"`
	TOTP         TOTPConfig       `yaml:"totp"`
	Password     password.Params  `yaml:"password"`
	Logs         LogsConfig       `yaml:"logs"`
	TLS          TLSConfig        `yaml:"tls"`
}

type SessionConfig struct {
	Secret  string        `yaml:"secret" env:"JWT_SECRET"`
	Timeout time.Duration `yaml:"timeout" env:"SESSION_TIMEOUT"`
	Secure  bool          `yaml:"secure_cookie" env:"COOKIE_SECURE"`
}

// ValidationConfig configures the signed server-to-server validation endpoint.
type ValidationConfig struct {
	AppID        string `yaml:"app_id" env:"APP_ID"` // optional; when set X-App-ID must match
	AppSecret    string `yaml:"app_secret" env:"APP_SECRET"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" env:"VALIDATE_MAX_BODY_BYTES"`
}

type TOTPConfig struct {
	Window       int           `yaml:"window" env:"TOTP_WINDOW"`
	PreventReuse bool          `yaml:"prevent_reuse" env:"TOTP_PREVENT_REUSE"`
	PendingTTL   time.Duration `yaml:"pending_ttl" env:"PENDING_2FA_TTL"`
}

type LogsConfig struct {
	Level     string        `yaml:"level" env:"LOG_LEVEL"`
	Persist   bool          `yaml:"persist" env:"LOGS_PERSIST"` // also write records to the database
	Retention time.Duration `yaml:"retention" env:"LOGS_RETENTION"`
}

type TLSConfig struct {
	Enabled bool   `yaml:"enabled" env:"TLS_ENABLED"`
	Cert    string `yaml:"cert" env:"TLS_CERT"`
	Key     string `yaml:"key" env:"TLS_KEY"`
}

var C Config

// Defaults returns the configuration used before any file or environment is applied.
// Secrets have no default.
func Defaults() Config {
	return Config{
		Listen:       ":8080",
		DatabasePath: "app.db",
		StoreTimeout: 3 * time.Second,
		Session: SessionConfig{
			Timeout: 24 * time.Hour,
			Secure:  true,
		},
		Validation: ValidationConfig{
			MaxBodyBytes: 1 << 20,
		},
		TOTP: TOTPConfig{
			Window:     1,
			PendingTTL: 10 * time.Minute,
		},
		Password: password.DefaultParams(),
		Logs: LogsConfig{
			Level:     "info",
			Retention: 48 * time.Hour,
		},
	}
}

// Load builds C from defaults, the YAML file at path (optional), a .env file (optional)
// and the process environment, in that order of precedence.
func Load(path string) error {
	C = Defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &C); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if err := env.Parse(&C); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Validate fails on configuration the server must not start with.
func (c Config) Validate() error {
	var errs []error

	if err := checkSecret("session secret (JWT_SECRET)", c.Session.Secret); err != nil {
		errs = append(errs, err)
	}
	if err := checkSecret("app secret (APP_SECRET)", c.Validation.AppSecret); err != nil {
		errs = append(errs, err)
	}
	if c.Session.Timeout <= 0 {
		errs = append(errs, errors.New("session timeout must be positive"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("store timeout must be positive"))
	}
	if c.TOTP.Window < 0 || c.TOTP.Window > 10 {
		errs = append(errs, fmt.Errorf("totp window %d out of range 0-10", c.TOTP.Window))
	}
	if c.TOTP.PendingTTL <= 0 {
		errs = append(errs, errors.New("pending 2fa ttl must be positive"))
	}
	if c.Validation.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("validate max body bytes must be positive"))
	}
	if c.Password.Memory == 0 || c.Password.Iterations == 0 || c.Password.Parallelism == 0 ||
		c.Password.SaltLength < 8 || c.Password.KeyLength < 16 {
		errs = append(errs, errors.New("password hashing parameters are too weak"))
	}
	if c.TLS.Enabled && (c.TLS.Cert == "" || c.TLS.Key == "") {
		errs = append(errs, errors.New("tls enabled without cert and key"))
	}

	return errors.Join(errs...)
}

func checkSecret(name, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", name)
	}
	if len(v) < MinSecretLength {
		return fmt.Errorf("%s must be at least %d bytes", name, MinSecretLength)
	}
	for _, p := range placeholderSecrets {
		if strings.EqualFold(v, p) {
			return fmt.Errorf("%s is a placeholder value", name)
		}
	}
	return nil
}
