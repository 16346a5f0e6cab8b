package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env            string
	Port           string
	DBDSN          string
	UploadDir      string
	LogFile        string
	LogLevel       string
	JWTSecret      string
	TokenTTL       time.Duration
	BcryptCost     int
	LoginRateMax   int
	LoginRateWin   time.Duration
	MaxUploadBytes int
}

const devSecret = "lukamath-dev-secret-change-me"

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_DSN", "lukamath.db") // sqlite file in project root
	v.SetDefault("UPLOAD_DIR", "./data/uploads")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOGIN_RATE_MAX", 5)
	v.SetDefault("LOGIN_RATE_WINDOW", "10m")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
}

// Load reads .env (if present) and the process environment. Outside
// development a JWT_SECRET must be provided.
func Load() (Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := Config{
		Env:            v.GetString("APP_ENV"),
		Port:           v.GetString("PORT"),
		DBDSN:          v.GetString("DB_DSN"),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		LogFile:        v.GetString("LOG_FILE"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		TokenTTL:       v.GetDuration("TOKEN_TTL"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		LoginRateMax:   v.GetInt("LOGIN_RATE_MAX"),
		LoginRateWin:   v.GetDuration("LOGIN_RATE_WINDOW"),
		MaxUploadBytes: v.GetInt("MAX_UPLOAD_BYTES"),
	}
	if cfg.JWTSecret == "" {
		if cfg.Env != "development" {
			return Config{}, errors.New("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = devSecret
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.TokenTTL <= 0:
		return errors.New("TOKEN_TTL must be positive")
	case c.BcryptCost < 4 || c.BcryptCost > 31:
		return errors.New("BCRYPT_COST must be between 4 and 31")
	case c.LoginRateMax <= 0:
		return errors.New("LOGIN_RATE_MAX must be positive")
	case c.MaxUploadBytes <= 0:
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// ForTest returns a config suited to in-memory tests: cheap hashing, a fixed
// secret, and generous limits.
func ForTest() Config {
	return Config{
		Env:            "test",
		Port:           "0",
		DBDSN:          ":memory:",
		UploadDir:      "",
		LogLevel:       "debug",
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		BcryptCost:     4,
		LoginRateMax:   100,
		LoginRateWin:   time.Minute,
		MaxUploadBytes: 1 << 20,
	}
}
