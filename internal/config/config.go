package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the YAML file read when no path is given explicitly.
const ConfigPathEnv = "TRILHO_CONFIG"

const (
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Redis struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
}

// Enabled reports whether a Redis host was configured.
func (r Redis) Enabled() bool { return r.Host != "" }

// Client configures habitctl.
type Client struct {
	APIURL       string        `yaml:"api_url" validate:"required,url"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	RateLimit    float64       `yaml:"rate_limit" validate:"min=0"`
	SessionStore string        `yaml:"session_store" validate:"oneof=file redis memory"`
	SessionFile  string        `yaml:"session_file"`
	Redis        Redis         `yaml:"redis"`
}

type Database struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Enabled reports whether Postgres should back the repositories.
func (d Database) Enabled() bool { return d.Host != "" }

func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type JWT struct {
	Secret string        `yaml:"secret" validate:"required"`
	Issuer string        `yaml:"issuer" validate:"required"`
	TTL    time.Duration `yaml:"ttl" validate:"gt=0"`
}

// Server configures habitd.
type Server struct {
	Port            string   `yaml:"port" validate:"required"`
	Database        Database `yaml:"database"`
	JWT             JWT      `yaml:"jwt"`
	Redis           Redis    `yaml:"redis"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min" validate:"min=0"`
}

func DefaultClient() Client {
	return Client{
		APIURL:       "http://localhost:5000/api",
		Timeout:      10 * time.Second,
		SessionStore: SessionStoreFile,
		Redis:        Redis{Port: "6379"},
	}
}

func DefaultServer() Server {
	return Server{
		Port: "5000",
		Database: Database{
			Port: "5432",
			User: "trilho_user",
			Name: "trilho_db",
		},
		JWT: JWT{
			Secret: "dev-secret-change-me",
			Issuer: "trilho",
			TTL:    24 * time.Hour,
		},
		Redis:           Redis{Port: "6379"},
		RateLimitPerMin: 100,
	}
}

// LoadClient builds the client configuration from defaults, then the YAML
// file at path (or $TRILHO_CONFIG), then the environment and .env.
func LoadClient(path string) (*Client, error) {
	cfg := DefaultClient()
	if err := overlayFile(path, &cfg); err != nil {
		return nil, err
	}

	env := envReader{}
	env.str("TRILHO_API_URL", &cfg.APIURL)
	env.duration("TRILHO_TIMEOUT", &cfg.Timeout)
	env.float("TRILHO_RATE_LIMIT", &cfg.RateLimit)
	env.str("TRILHO_SESSION_STORE", &cfg.SessionStore)
	env.str("TRILHO_SESSION_FILE", &cfg.SessionFile)
	env.redis(&cfg.Redis)
	if err := env.err(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid client configuration: %w", err)
	}
	return &cfg, nil
}

// LoadServer builds the reference service configuration. An empty DB_HOST
// selects the in-memory repositories.
func LoadServer(path string) (*Server, error) {
	cfg := DefaultServer()
	if err := overlayFile(path, &cfg); err != nil {
		return nil, err
	}

	env := envReader{}
	env.str("PORT", &cfg.Port)
	env.str("DB_HOST", &cfg.Database.Host)
	env.str("DB_PORT", &cfg.Database.Port)
	env.str("DB_USER", &cfg.Database.User)
	env.str("DB_PASSWORD", &cfg.Database.Password)
	env.str("DB_NAME", &cfg.Database.Name)
	env.str("JWT_SECRET", &cfg.JWT.Secret)
	env.str("JWT_ISSUER", &cfg.JWT.Issuer)
	env.duration("JWT_TTL", &cfg.JWT.TTL)
	env.integer("RATE_LIMIT_PER_MIN", &cfg.RateLimitPerMin)
	env.redis(&cfg.Redis)
	if err := env.err(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid server configuration: %w", err)
	}
	return &cfg, nil
}

func overlayFile(path string, dst any) error {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// envReader applies set variables onto fields and collects parse errors.
type envReader struct {
	errs []error
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return
	}
	*dst = d
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return
	}
	*dst = f
}

func (e *envReader) redis(dst *Redis) {
	e.str("REDIS_HOST", &dst.Host)
	e.str("REDIS_PORT", &dst.Port)
	e.str("REDIS_PASSWORD", &dst.Password)
	e.integer("REDIS_DB", &dst.DB)
}

func (e *envReader) err() error {
	return errors.Join(e.errs...)
}
