package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret   string   `mapstructure:"JWT_SECRET"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	PublicSiteURL string `mapstructure:"PUBLIC_SITE_URL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	CDNStorageZone string `mapstructure:"CDN_STORAGE_ZONE"`
	CDNAccessKey   string `mapstructure:"CDN_ACCESS_KEY"`
	CDNStorageHost string `mapstructure:"CDN_STORAGE_HOST"`
	CDNPullZone    string `mapstructure:"CDN_PULL_ZONE"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// Per-type hourly email send ceilings. The verification and
	// confirmation paths historically use different values; both stay
	// configurable rather than unified.
	VerificationEmailHourlyLimit int `mapstructure:"VERIFICATION_EMAIL_HOURLY_LIMIT"`
	AppointmentEmailHourlyLimit  int `mapstructure:"APPOINTMENT_EMAIL_HOURLY_LIMIT"`
	ApprovalEmailHourlyLimit     int `mapstructure:"APPROVAL_EMAIL_HOURLY_LIMIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("VERIFICATION_EMAIL_HOURLY_LIMIT", 3)
	v.SetDefault("APPOINTMENT_EMAIL_HOURLY_LIMIT", 5)
	v.SetDefault("APPROVAL_EMAIL_HOURLY_LIMIT", 3)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("PUBLIC_SITE_URL")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_USER")
	v.BindEnv("SMTP_PASSWORD")
	v.BindEnv("SMTP_FROM")
	v.BindEnv("CDN_STORAGE_ZONE")
	v.BindEnv("CDN_ACCESS_KEY")
	v.BindEnv("CDN_STORAGE_HOST")
	v.BindEnv("CDN_PULL_ZONE")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("VERIFICATION_EMAIL_HOURLY_LIMIT")
	v.BindEnv("APPOINTMENT_EMAIL_HOURLY_LIMIT")
	v.BindEnv("APPROVAL_EMAIL_HOURLY_LIMIT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret is mandatory, and the mail/CDN settings must be complete
// whenever their respective feature is configured at all.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV is %q", c.Env)
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}
	if c.CDNStorageZone != "" {
		if c.CDNAccessKey == "" {
			return fmt.Errorf("CDN_ACCESS_KEY is required when CDN_STORAGE_ZONE is set")
		}
		if c.CDNPullZone == "" {
			return fmt.Errorf("CDN_PULL_ZONE is required when CDN_STORAGE_ZONE is set")
		}
	}
	if c.VerificationEmailHourlyLimit < 0 || c.AppointmentEmailHourlyLimit < 0 || c.ApprovalEmailHourlyLimit < 0 {
		return fmt.Errorf("email hourly limits must not be negative")
	}
	return nil
}
