package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultStrategy             = "auto"
	defaultMaxPlans             = 5
	defaultAutoProductLimit     = 12
	defaultAutoCombinationCap   = 4096
	defaultQuoteCacheTTL        = 5 * time.Minute
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
	defaultRulesCollection      = "shippingRules"
	defaultEligibilityColl      = "productShippingEligibility"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firestore   FirestoreConfig
	Resolver    ResolverConfig
	Idempotency IdempotencyConfig
	PubSub      PubSubConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters and collection names.
type FirestoreConfig struct {
	ProjectID             string
	EmulatorHost          string
	RulesCollection       string
	EligibilityCollection string
}

// ResolverConfig tunes the shipping resolution engine.
type ResolverConfig struct {
	// Strategy is one of exhaustive, greedy, auto.
	Strategy string
	MaxPlans int
	// AutoProductLimit caps the number of multi-choice products for which the
	// auto strategy still enumerates exhaustively.
	AutoProductLimit int
	// AutoCombinationCap bounds the estimated assignment count for exhaustive search.
	AutoCombinationCap int
	QuoteCacheTTL      time.Duration
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// PubSubConfig names the topic that receives quote events. Empty disables publishing.
type PubSubConfig struct {
	QuoteTopic string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "SHIPPING_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "SHIPPING_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SHIPPING_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SHIPPING_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:             stringWithDefault(lookup, "SHIPPING_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost:          stringWithDefault(lookup, "SHIPPING_FIRESTORE_EMULATOR_HOST", ""),
			RulesCollection:       stringWithDefault(lookup, "SHIPPING_FIRESTORE_RULES_COLLECTION", defaultRulesCollection),
			EligibilityCollection: stringWithDefault(lookup, "SHIPPING_FIRESTORE_ELIGIBILITY_COLLECTION", defaultEligibilityColl),
		},
		Resolver: ResolverConfig{
			Strategy:           strings.ToLower(stringWithDefault(lookup, "SHIPPING_RESOLVER_STRATEGY", defaultStrategy)),
			MaxPlans:           intWithDefault(lookup, "SHIPPING_RESOLVER_MAX_PLANS", defaultMaxPlans),
			AutoProductLimit:   intWithDefault(lookup, "SHIPPING_RESOLVER_AUTO_PRODUCT_LIMIT", defaultAutoProductLimit),
			AutoCombinationCap: intWithDefault(lookup, "SHIPPING_RESOLVER_AUTO_COMBINATION_CAP", defaultAutoCombinationCap),
			QuoteCacheTTL:      durationWithDefault(lookup, "SHIPPING_RESOLVER_CACHE_TTL", defaultQuoteCacheTTL),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "SHIPPING_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "SHIPPING_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "SHIPPING_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "SHIPPING_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
		PubSub: PubSubConfig{
			QuoteTopic: stringWithDefault(lookup, "SHIPPING_PUBSUB_QUOTE_TOPIC", ""),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Firestore.RulesCollection == "" {
		missing = append(missing, "Firestore.RulesCollection")
	}
	if cfg.Firestore.EligibilityCollection == "" {
		missing = append(missing, "Firestore.EligibilityCollection")
	}
	switch cfg.Resolver.Strategy {
	case "exhaustive", "greedy", "auto":
	default:
		missing = append(missing, "Resolver.Strategy")
	}
	if cfg.Resolver.MaxPlans <= 0 {
		missing = append(missing, "Resolver.MaxPlans")
	}
	if cfg.Resolver.AutoProductLimit <= 0 {
		missing = append(missing, "Resolver.AutoProductLimit")
	}
	if cfg.Resolver.AutoCombinationCap <= 0 {
		missing = append(missing, "Resolver.AutoCombinationCap")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
