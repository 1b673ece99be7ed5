// internal/config/config.go
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Gateway     GatewayConfig
	Payment     PaymentConfig
	Encryption  EncryptionConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

// GatewayConfig carries the platform's own payment-gateway credentials plus
// the marketplace OAuth application used to connect establishments.
type GatewayConfig struct {
	BaseURL           string
	AccessToken       string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURI  string
	TimeoutSeconds    int
}

type PaymentConfig struct {
	DefaultFeePercent    float64
	PixExpirationMinutes int
	BoletoExpirationDays int
	PixPollIntervalSecs  int
	PixPollWindowMinutes int
}

// EncryptionConfig holds the symmetric key for token-at-rest encryption,
// hex-encoded in the environment. Must decode to 32 bytes (AES-256).
type EncryptionConfig struct {
	TokenKeyHex string
}

type I18nConfig struct {
	DefaultLocale string
	LocalesPath   string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Host:        getEnv("SERVER_HOST", "localhost"),
			ReadTimeout: getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			// must exceed the PIX wait window or the long-poll endpoint is cut off
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 630),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "levaja"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		Gateway: GatewayConfig{
			BaseURL:           getEnv("GATEWAY_BASE_URL", "https://api.mercadopago.com"),
			AccessToken:       getEnv("GATEWAY_ACCESS_TOKEN", ""),
			OAuthClientID:     getEnv("GATEWAY_OAUTH_CLIENT_ID", ""),
			OAuthClientSecret: getEnv("GATEWAY_OAUTH_CLIENT_SECRET", ""),
			OAuthRedirectURI:  getEnv("GATEWAY_OAUTH_REDIRECT_URI", ""),
			TimeoutSeconds:    getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 20),
		},
		Payment: PaymentConfig{
			DefaultFeePercent:    getEnvAsFloat("PLATFORM_FEE_PERCENT", 12.0),
			PixExpirationMinutes: getEnvAsInt("PIX_EXPIRATION_MINUTES", 10),
			BoletoExpirationDays: getEnvAsInt("BOLETO_EXPIRATION_DAYS", 3),
			PixPollIntervalSecs:  getEnvAsInt("PIX_POLL_INTERVAL_SECONDS", 3),
			PixPollWindowMinutes: getEnvAsInt("PIX_POLL_WINDOW_MINUTES", 10),
		},
		Encryption: EncryptionConfig{
			TokenKeyHex: getEnv("TOKEN_ENCRYPTION_KEY", ""),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "pt_BR"),
			LocalesPath:   getEnv("LOCALES_PATH", "./internal/i18n/locales"),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Environment == "production" && c.Gateway.AccessToken == "" {
		return fmt.Errorf("gateway access token is required in production")
	}

	if c.Encryption.TokenKeyHex != "" {
		key, err := hex.DecodeString(c.Encryption.TokenKeyHex)
		if err != nil {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
		}
	} else if c.Environment == "production" {
		return fmt.Errorf("TOKEN_ENCRYPTION_KEY is required in production")
	}

	if c.Payment.DefaultFeePercent <= 0 || c.Payment.DefaultFeePercent > 100 {
		return fmt.Errorf("PLATFORM_FEE_PERCENT must be in (0, 100]")
	}

	return nil
}

// TokenKey returns the decoded AES key. Validate has already checked it.
func (c *Config) TokenKey() []byte {
	key, _ := hex.DecodeString(c.Encryption.TokenKeyHex)
	return key
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
