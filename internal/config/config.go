// Package config loads process settings from the environment, a .env file and
// an optional YAML file named by CONFIG_FILE. Environment variables win over
// the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	JWTSecret   string

	TokenTTL   time.Duration
	RefreshTTL time.Duration

	HTTPPort        string
	GRPCPort        string
	ShutdownTimeout time.Duration

	BcryptCost     int
	MinPasswordLen int

	IssuePatientSignupToken bool
	RequireAuth             bool

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string

	MigrateOnStart bool
}

// Load reads the configuration once at startup. Missing required keys and
// unparsable values are reported together.
func Load() (*Config, error) {
	_ = godotenv.Load()

	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	src := &source{file: file}

	cfg := &Config{
		DatabaseURL: src.str("DATABASE_URL", ""),
		JWTSecret:   src.str("JWT_SECRET", ""),

		TokenTTL:   src.duration("TOKEN_TTL", time.Hour),
		RefreshTTL: src.duration("REFRESH_TTL", 7*24*time.Hour),

		HTTPPort:        src.str("HTTP_PORT", "8080"),
		GRPCPort:        src.str("GRPC_PORT", "50051"),
		ShutdownTimeout: src.duration("SHUTDOWN_TIMEOUT", 10*time.Second),

		BcryptCost:     src.integer("BCRYPT_COST", 12),
		MinPasswordLen: src.integer("MIN_PASSWORD_LEN", 5),

		IssuePatientSignupToken: src.boolean("ISSUE_PATIENT_SIGNUP_TOKEN", false),
		RequireAuth:             src.boolean("REQUIRE_AUTH", false),

		RateLimitRPS:   src.float("RATE_LIMIT_RPS", 5),
		RateLimitBurst: src.integer("RATE_LIMIT_BURST", 10),

		CORSAllowedOrigins: src.list("CORS_ALLOWED_ORIGINS", []string{"*"}),

		LogLevel:  src.str("LOG_LEVEL", "info"),
		LogFormat: src.str("LOG_FORMAT", "json"),

		MigrateOnStart: src.boolean("MIGRATE_ON_START", true),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		src.errs = append(src.errs, fmt.Errorf("required settings are not set: %s", strings.Join(missing, ", ")))
	}
	if cfg.TokenTTL <= 0 {
		src.errs = append(src.errs, errors.New("TOKEN_TTL must be positive"))
	}
	if cfg.RefreshTTL <= 0 {
		src.errs = append(src.errs, errors.New("REFRESH_TTL must be positive"))
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		src.errs = append(src.errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	if err := errors.Join(src.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// readFile parses a flat YAML mapping of lower-case keys, e.g. token_ttl: 1h.
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return out, nil
}

type source struct {
	file map[string]string
	errs []error
}

func (s *source) lookup(key string) (string, bool) {
	if v := os.Getenv(key); v != "" {
		return v, true
	}
	v, ok := s.file[strings.ToLower(key)]
	return v, ok && v != ""
}

func (s *source) str(key, fallback string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return fallback
}

func (s *source) integer(key string, fallback int) int {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return fallback
	}
	return i
}

func (s *source) float(key string, fallback float64) float64 {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return fallback
	}
	return f
}

func (s *source) boolean(key string, fallback bool) bool {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return fallback
	}
	return b
}

func (s *source) duration(key string, fallback time.Duration) time.Duration {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return fallback
	}
	return d
}

func (s *source) list(key string, fallback []string) []string {
	v, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
