package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port         string
	DBPath       string
	CSRFKey      []byte
	SessionKey   []byte
	JWTSecret    []byte
	TokenTTL     time.Duration
	CookieDomain string
	CookieSecure bool
	CartDir      string
	UploadDir    string
	StaticDir    string
	StoreName    string

	MailProvider string
	ResendAPIKey string
	MailFrom     string

	NotifyTimeout          time.Duration
	StrictOrderTransitions bool
	LogLevel               slog.Level
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8585")
	v.SetDefault("db_path", "./shophub.db")
	v.SetDefault("cookie_domain", "")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("cart_dir", "./data/carts")
	v.SetDefault("upload_dir", "./static/uploads")
	v.SetDefault("static_dir", "./static")
	v.SetDefault("store_name", "ShopHub")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("mail_provider", "log")
	v.SetDefault("resend_api_key", "")
	v.SetDefault("mail_from", "Orders <onboarding@resend.dev>")
	v.SetDefault("notify_timeout", "10s")
	v.SetDefault("strict_order_transitions", false)
	v.SetDefault("log_level", "debug")
	v.SetDefault("csrf_key", "")
	v.SetDefault("session_key", "")
	v.SetDefault("jwt_secret", "")
}

// LoadConfig reads a .env file when present, then config.yaml, then the
// environment. Environment variables win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./")
	v.AddConfigPath("/etc/shophub/")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                   v.GetString("port"),
		DBPath:                 v.GetString("db_path"),
		CookieDomain:           v.GetString("cookie_domain"),
		CookieSecure:           v.GetBool("cookie_secure"),
		CartDir:                v.GetString("cart_dir"),
		UploadDir:              v.GetString("upload_dir"),
		StaticDir:              v.GetString("static_dir"),
		StoreName:              v.GetString("store_name"),
		TokenTTL:               v.GetDuration("token_ttl"),
		MailProvider:           strings.ToLower(v.GetString("mail_provider")),
		ResendAPIKey:           v.GetString("resend_api_key"),
		MailFrom:               v.GetString("mail_from"),
		NotifyTimeout:          v.GetDuration("notify_timeout"),
		StrictOrderTransitions: v.GetBool("strict_order_transitions"),
	}

	// Keys are critical for security
	cfg.CSRFKey = secretKey("CSRF_KEY", v.GetString("csrf_key"))
	cfg.SessionKey = secretKey("SESSION_KEY", v.GetString("session_key"))
	cfg.JWTSecret = secretKey("JWT_SECRET", v.GetString("jwt_secret"))

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		slog.Warn("Invalid LOG_LEVEL. Falling back to debug.", "LOG_LEVEL", v.GetString("log_level"))
		cfg.LogLevel = slog.LevelDebug
	}

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT. Falling back to default.", "PORT", cfg.Port)
		cfg.Port = "8585"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return cfg, nil
}

// secretKey decodes a base64 key of at least 32 bytes. Anything else falls
// back to a random key that changes on every restart.
func secretKey(name, encoded string) []byte {
	if encoded == "" {
		slog.Warn(name + " not set. Generating a random key for development. This key will change on each restart. PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(decoded) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes). Generating a random key for development. PLEASE SET A SECURE " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	return decoded
}

// generateRandomBytes uses crypto/rand and only falls back to a time-based
// value if the system source fails.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		padded := make([]byte, n)
		copy(padded, fallbackKey)
		return padded
	}
	return b
}
