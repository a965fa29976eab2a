// Package config loads settings from the environment, an optional .env file and an
// optional YAML file named by MAYA_CONFIG. Environment values win over the file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	API      API      `yaml:"api"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Log      Log      `yaml:"log"`
	Keys     Keys     `yaml:"keys"`
}

type HTTP struct {
	ListenAddr   string        `yaml:"listen_addr" env:"LISTEN_ADDR" env-default:":8090"`
	CORSOrigins  []string      `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:","`
	SessionTTL   time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"30m"`
	ReapInterval time.Duration `yaml:"reap_interval" env:"REAP_INTERVAL" env-default:"1m"`
}

type API struct {
	BaseURL            string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://127.0.0.1:8080/api"`
	Timeout            time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"15s"`
	BreakerMaxFailures uint32        `yaml:"breaker_max_failures" env:"BREAKER_MAX_FAILURES" env-default:"5"`
	BreakerCooldown    time.Duration `yaml:"breaker_cooldown" env:"BREAKER_COOLDOWN" env-default:"30s"`
}

// Postgres is optional; an empty URL turns the submission journal off.
type Postgres struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns" env:"DATABASE_MAX_CONNS" env-default:"4"`
}

// Redis is optional; an empty address turns the Idempotency-Key guard off.
type Redis struct {
	Addr           string        `yaml:"addr" env:"REDIS_ADDR"`
	Password       string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB             int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env:"IDEMPOTENCY_TTL" env-default:"24h"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
	File   string `yaml:"file" env:"LOG_FILE"`
}

// Keys are base64 strings, or paths to files holding them.
type Keys struct {
	CookieHashKey  string `yaml:"cookie_hash_key" env:"COOKIE_HASH_KEY"`
	CookieBlockKey string `yaml:"cookie_block_key" env:"COOKIE_BLOCK_KEY"`
	VaultKey       string `yaml:"vault_key" env:"VAULT_KEY"`
	VaultPath      string `yaml:"vault_path" env:"VAULT_PATH"`
}

func FromEnv() (Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if path := strings.TrimSpace(os.Getenv("MAYA_CONFIG")); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if cfg.Keys.VaultPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		cfg.Keys.VaultPath = filepath.Join(dir, "mayabook", "session")
	}
	if cfg.API.Timeout <= 0 {
		return Config{}, errors.New("API_TIMEOUT must be positive")
	}
	return cfg, nil
}

// CookieKeys decodes the session cookie keys the web shell needs.
func (c Config) CookieKeys() (hashKey, blockKey []byte, err error) {
	if c.Keys.CookieHashKey == "" || c.Keys.CookieBlockKey == "" {
		return nil, nil, errors.New("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY are required (base64, see `mayabook keys`)")
	}
	if hashKey, err = decodeB64(c.Keys.CookieHashKey); err != nil {
		return nil, nil, fmt.Errorf("COOKIE_HASH_KEY: %w", err)
	}
	if blockKey, err = decodeB64(c.Keys.CookieBlockKey); err != nil {
		return nil, nil, fmt.Errorf("COOKIE_BLOCK_KEY: %w", err)
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, nil, fmt.Errorf("COOKIE_BLOCK_KEY must decode to 16, 24 or 32 bytes (got %d)", len(blockKey))
	}
	return hashKey, blockKey, nil
}

// VaultKey decodes the 32 byte key the CLI seals its saved session with.
func (c Config) VaultKey() ([]byte, error) {
	if c.Keys.VaultKey == "" {
		return nil, errors.New("VAULT_KEY is required to remember a sign-in (base64, see `mayabook keys`)")
	}
	k, err := decodeB64(c.Keys.VaultKey)
	if err != nil {
		return nil, fmt.Errorf("VAULT_KEY: %w", err)
	}
	if len(k) != 32 {
		return nil, fmt.Errorf("VAULT_KEY must decode to 32 bytes (got %d)", len(k))
	}
	return k, nil
}

func decodeB64(s string) ([]byte, error) {
	if b, err := os.ReadFile(s); err == nil {
		// secret mounts hold the key in a file
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
