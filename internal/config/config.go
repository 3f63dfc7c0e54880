// Package config loads service settings from the environment, an optional
// .env file and an optional YAML ranking file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/easylease/sublease/internal/listing"
)

// Feed modes for delivering confirmed messages to subscribers.
const (
	FeedDirect       = "direct"
	FeedChangeStream = "changestream"
)

type Config struct {
	MongoURI    string
	DatabaseURL string
	JWT         JWTConfig
	GRPCPort    string
	HTTPPort    string
	RateLimit   RateLimitConfig
	TLS         TLSConfig
	S3          S3Config
	GeocoderKey string
	MessageFeed string
	LogFile     string
	CORSOrigins []string
	Ranking     RankingConfig
}

type JWTConfig struct {
	Secret    string
	Keys      map[string]string
	ActiveKID string
	TTL       time.Duration
}

type RateLimitConfig struct {
	RPM   int
	Burst int
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
	Require  bool
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// Enabled reports whether object storage is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// RankingConfig is the legacy ranking setup read from RANKING_CONFIG.
type RankingConfig struct {
	Weights     []listing.Weight    `yaml:"weights"`
	Preferences listing.Preferences `yaml:"preferences"`
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:    os.Getenv("MONGODB_URI"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWT: JWTConfig{
			Secret:    os.Getenv("JWT_SECRET"),
			ActiveKID: os.Getenv("JWT_ACTIVE_KID"),
			TTL:       getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		GRPCPort: getEnv("GRPC_PORT", "50051"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		RateLimit: RateLimitConfig{
			RPM:   getEnvInt("RATE_LIMIT_RPM", 10),
			Burst: getEnvInt("RATE_LIMIT_BURST", 3),
		},
		TLS: TLSConfig{
			CertFile: os.Getenv("TLS_CERT"),
			KeyFile:  os.Getenv("TLS_KEY"),
			Require:  os.Getenv("REQUIRE_TLS") == "true",
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
		},
		GeocoderKey: os.Getenv("GEOCODER_API_KEY"),
		MessageFeed: getEnv("MESSAGE_FEED", FeedDirect),
		LogFile:     os.Getenv("LOG_FILE"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		Ranking: RankingConfig{
			Weights:     listing.DefaultWeights(),
			Preferences: listing.DefaultPreferences(),
		},
	}

	if v := os.Getenv("JWT_KEYS"); v != "" {
		keys, err := ParseKeys(v)
		if err != nil {
			return nil, err
		}
		cfg.JWT.Keys = keys
	}

	if path := os.Getenv("RANKING_CONFIG"); path != "" {
		r, err := LoadRanking(path)
		if err != nil {
			return nil, err
		}
		cfg.Ranking = *r
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MongoURI == "" {
		return errors.New("MONGODB_URI must be set")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set")
	}
	if c.JWT.Secret == "" && len(c.JWT.Keys) == 0 {
		return errors.New("either JWT_SECRET or JWT_KEYS must be set")
	}
	if len(c.JWT.Keys) > 0 {
		if _, ok := c.JWT.Keys[c.JWT.ActiveKID]; !ok {
			return fmt.Errorf("JWT_ACTIVE_KID %q is not one of JWT_KEYS", c.JWT.ActiveKID)
		}
	}
	if c.TLS.Require && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return errors.New("REQUIRE_TLS is true but TLS_CERT/TLS_KEY are not configured")
	}
	if c.MessageFeed != FeedDirect && c.MessageFeed != FeedChangeStream {
		return fmt.Errorf("MESSAGE_FEED must be %q or %q, got %q", FeedDirect, FeedChangeStream, c.MessageFeed)
	}
	if c.RateLimit.RPM <= 0 {
		return errors.New("RATE_LIMIT_RPM must be positive")
	}
	return nil
}

// ParseKeys parses a JWT keyring in the form kid:secret,kid2:secret2.
func ParseKeys(s string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(s, ",") {
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid JWT_KEYS entry: %s", p)
		}
		keys[parts[0]] = parts[1]
	}
	return keys, nil
}

// LoadRanking reads ranking weights and default preferences from a YAML
// file. Sections left out of the file keep their defaults.
func LoadRanking(path string) (*RankingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ranking config: %w", err)
	}

	r := &RankingConfig{
		Weights:     listing.DefaultWeights(),
		Preferences: listing.DefaultPreferences(),
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse ranking config: %w", err)
	}

	for _, w := range r.Weights {
		switch w.Key {
		case listing.WeightPets, listing.WeightParking, listing.WeightFurnished, listing.WeightSqft, listing.WeightRent:
		default:
			return nil, fmt.Errorf("ranking config: unknown weight key %q", w.Key)
		}
	}
	return r, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
