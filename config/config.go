// Package config reads the environment shared by the osm-ingest commands.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"osm-ingest/rules"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is read from the environment. Optional integrations are enabled by
// setting their address.
type Config struct {
	AppEnv    string `validate:"omitempty,oneof=development production test"`
	RulesFile string

	StreetCacheSize int `validate:"gte=0"`
	BatchSize       int `validate:"gte=1"`

	DatabaseURL      string `validate:"omitempty,url"`
	OverpassEndpoint string `validate:"omitempty,url"`

	RedisAddr      string `validate:"omitempty,hostname_port"`
	RedisStream    string `validate:"required_with=RedisAddr"`
	RedisStreamMax int64  `validate:"gte=0"`

	KafkaBrokers []string `validate:"omitempty,dive,hostname_port"`
	KafkaTopic   string   `validate:"required_with=KafkaBrokers"`

	MinioEndpoint  string `validate:"omitempty,hostname|hostname_port"`
	MinioAccessKey string `validate:"required_with=MinioEndpoint"`
	MinioSecretKey string `validate:"required_with=MinioEndpoint"`
	MinioBucket    string `validate:"required_with=MinioEndpoint"`
	MinioPrefix    string
	MinioInsecure  bool
}

// LoadDotenv loads .env and .env.local into the environment when present.
func LoadDotenv() {
	err := godotenv.Load(".env", ".env.local")
	if err != nil {
		slog.Info("no dotenv", "err", err)
	}
}

// FromEnv reads the process environment.
func FromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load reads configuration through lookup and validates it.
func Load(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	var errs []error
	getInt := func(key string, def int) int {
		v := get(key, "")
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer", key))
		}
		return n
	}

	cfg := Config{
		AppEnv:           get("APP_ENV", "production"),
		RulesFile:        get("RULES_FILE", ""),
		StreetCacheSize:  getInt("STREET_CACHE_SIZE", 4096),
		BatchSize:        getInt("BATCH_SIZE", 5000),
		DatabaseURL:      get("DATABASE_URL", ""),
		OverpassEndpoint: get("OVERPASS_ENDPOINT", ""),
		RedisAddr:        get("REDIS_ADDR", ""),
		RedisStream:      get("REDIS_STREAM", "osm:changes"),
		RedisStreamMax:   int64(getInt("REDIS_STREAM_MAXLEN", 0)),
		KafkaBrokers:     splitList(get("KAFKA_BROKERS", "")),
		KafkaTopic:       get("KAFKA_TOPIC", ""),
		MinioEndpoint:    get("MINIO_ENDPOINT", ""),
		MinioAccessKey:   get("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:   get("MINIO_SECRET_KEY", ""),
		MinioBucket:      get("MINIO_BUCKET", ""),
		MinioPrefix:      get("MINIO_PREFIX", "osm-ingest"),
		MinioInsecure:    get("MINIO_INSECURE", "") == "true",
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, ", "))
}

// Rules loads RulesFile, or the embedded defaults when it is unset.
func (c Config) Rules() (rules.Rules, error) {
	if c.RulesFile == "" {
		return rules.Default()
	}
	return rules.Load(c.RulesFile)
}

// Logger returns a JSON logger, or a debug level text logger in development.
func (c Config) Logger() *slog.Logger {
	if c.AppEnv == "development" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
