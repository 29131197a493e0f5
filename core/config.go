package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration options for sushichat.
// It supports layered configuration priority:
//  1. Default values (lowest priority)
//  2. Config file and environment variables (via viper)
//  3. Command line flags bound into viper
//  4. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithPort(8080),
//	    WithMockAI(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	Name        string `mapstructure:"name"`
	Address     string `mapstructure:"address"`
	Port        int    `mapstructure:"port"`
	Development bool   `mapstructure:"development"`

	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	AI        AIConfig        `mapstructure:"ai"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Quotes    QuoteConfig     `mapstructure:"quotes"`
	Sessions  SessionConfig   `mapstructure:"sessions"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Kitchen   KitchenConfig   `mapstructure:"kitchen"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// HTTPConfig contains HTTP server timeouts and CORS settings.
type HTTPConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing (CORS) configuration.
// Supports wildcard domains (e.g., *.example.com) and wildcard ports (e.g., http://localhost:*).
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// LoggingConfig selects the log level, format (json|text) and output (stdout|stderr|path).
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Output  string `mapstructure:"output"`
	Service string `mapstructure:"-"`
}

// AIConfig configures the language model client.
// Provider "mock" serves scripted completions without network access.
type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects the order/catalog persistence backend.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // sqlite | memory
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	SeedOnStart bool   `mapstructure:"seed_on_start"`
}

// RedisConfig enables Redis-backed quotes and session history when URL is set.
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"`
}

// QuoteConfig controls pending-order quotes.
type QuoteConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SessionConfig controls server-side chat history.
type SessionConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	MaxTurns int           `mapstructure:"max_turns"`
}

// CatalogConfig points at the YAML seed file. Empty means the embedded default.
type CatalogConfig struct {
	SeedFile string `mapstructure:"seed_file"`
}

// KitchenConfig selects where kitchen tickets are published.
type KitchenConfig struct {
	Backend    string           `mapstructure:"backend"` // log | servicebus | amqp | temporal | none
	ServiceBus ServiceBusConfig `mapstructure:"servicebus"`
	AMQP       AMQPConfig       `mapstructure:"amqp"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
}

// ServiceBusConfig uses ConnectionString when set, otherwise Namespace with the default Azure credential.
type ServiceBusConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	Namespace        string `mapstructure:"namespace"`
	Queue            string `mapstructure:"queue"`
}

// AMQPConfig targets an AMQP 1.0 broker with SASL plain auth.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Queue    string `mapstructure:"queue"`
}

// TemporalConfig targets the Temporal frontend that runs the kitchen workflow.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// TelemetryConfig contains tracing configuration.
// Exporter "otlp" requires Endpoint; "stdout" prints spans; "none" keeps a local provider only.
type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"`
	Endpoint     string  `mapstructure:"endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// Option is a functional option for configuring Config
type Option func(*Config) error

// EnvPrefix is the prefix for sushichat environment variables (SUSHICHAT_HTTP_READ_TIMEOUT, ...).
const EnvPrefix = "SUSHICHAT"

// DefaultConfig returns a configuration with sensible defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		Name:    "sushichat",
		Address: "0.0.0.0",
		Port:    8080,
		HTTP: HTTPConfig{
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORS: CORSConfig{
				Enabled:          false,
				AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Content-Type", "Authorization"},
				AllowCredentials: false,
				MaxAge:           86400,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		AI: AIConfig{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   800,
			Timeout:     60 * time.Second,
		},
		Storage: StorageConfig{
			Driver:      "sqlite",
			DSN:         "sushichat.db",
			AutoMigrate: true,
			SeedOnStart: true,
		},
		Redis: RedisConfig{
			DB:        2,
			Namespace: "sushichat",
		},
		Quotes: QuoteConfig{
			TTL: 30 * time.Minute,
		},
		Sessions: SessionConfig{
			TTL:      2 * time.Hour,
			MaxTurns: 20,
		},
		Kitchen: KitchenConfig{
			Backend: "log",
			ServiceBus: ServiceBusConfig{
				Queue: "kitchen-tickets",
			},
			AMQP: AMQPConfig{
				Queue: "kitchen-tickets",
			},
			Temporal: TemporalConfig{
				HostPort:  "localhost:7233",
				Namespace: "default",
				TaskQueue: "kitchen-tickets",
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			Exporter:     "otlp",
			Insecure:     true,
			SamplingRate: 1.0,
		},
	}
}

// envAliases maps config keys to conventional unprefixed environment variables.
var envAliases = map[string][]string{
	"port":                                 {"PORT"},
	"development":                          {"DEV_MODE"},
	"logging.level":                        {"LOG_LEVEL"},
	"ai.api_key":                           {"OPENAI_API_KEY"},
	"ai.base_url":                          {"OPENAI_BASE_URL"},
	"ai.model":                             {"OPENAI_MODEL"},
	"storage.dsn":                          {"DATABASE_URL"},
	"redis.url":                            {"REDIS_URL"},
	"telemetry.endpoint":                   {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"kitchen.servicebus.connection_string": {"SERVICEBUS_CONNECTION_STRING"},
	"kitchen.temporal.host_port":           {"TEMPORAL_HOST"},
}

// BindViper registers every config key with its default on v and wires environment lookup.
// Keys can then be overridden by a config file, SUSHICHAT_* variables or bound flags.
func BindViper(v *viper.Viper) error {
	d := DefaultConfig()
	defaults := map[string]interface{}{
		"name":                                 d.Name,
		"address":                              d.Address,
		"port":                                 d.Port,
		"development":                          d.Development,
		"http.read_timeout":                    d.HTTP.ReadTimeout,
		"http.write_timeout":                   d.HTTP.WriteTimeout,
		"http.idle_timeout":                    d.HTTP.IdleTimeout,
		"http.shutdown_timeout":                d.HTTP.ShutdownTimeout,
		"http.cors.enabled":                    d.HTTP.CORS.Enabled,
		"http.cors.allowed_origins":            d.HTTP.CORS.AllowedOrigins,
		"http.cors.allowed_methods":            d.HTTP.CORS.AllowedMethods,
		"http.cors.allowed_headers":            d.HTTP.CORS.AllowedHeaders,
		"http.cors.exposed_headers":            d.HTTP.CORS.ExposedHeaders,
		"http.cors.allow_credentials":          d.HTTP.CORS.AllowCredentials,
		"http.cors.max_age":                    d.HTTP.CORS.MaxAge,
		"logging.level":                        d.Logging.Level,
		"logging.format":                       d.Logging.Format,
		"logging.output":                       d.Logging.Output,
		"ai.provider":                          d.AI.Provider,
		"ai.api_key":                           d.AI.APIKey,
		"ai.base_url":                          d.AI.BaseURL,
		"ai.model":                             d.AI.Model,
		"ai.temperature":                       d.AI.Temperature,
		"ai.max_tokens":                        d.AI.MaxTokens,
		"ai.timeout":                           d.AI.Timeout,
		"storage.driver":                       d.Storage.Driver,
		"storage.dsn":                          d.Storage.DSN,
		"storage.auto_migrate":                 d.Storage.AutoMigrate,
		"storage.seed_on_start":                d.Storage.SeedOnStart,
		"redis.url":                            d.Redis.URL,
		"redis.db":                             d.Redis.DB,
		"redis.namespace":                      d.Redis.Namespace,
		"quotes.ttl":                           d.Quotes.TTL,
		"sessions.ttl":                         d.Sessions.TTL,
		"sessions.max_turns":                   d.Sessions.MaxTurns,
		"catalog.seed_file":                    d.Catalog.SeedFile,
		"kitchen.backend":                      d.Kitchen.Backend,
		"kitchen.servicebus.connection_string": d.Kitchen.ServiceBus.ConnectionString,
		"kitchen.servicebus.namespace":         d.Kitchen.ServiceBus.Namespace,
		"kitchen.servicebus.queue":             d.Kitchen.ServiceBus.Queue,
		"kitchen.amqp.url":                     d.Kitchen.AMQP.URL,
		"kitchen.amqp.username":                d.Kitchen.AMQP.Username,
		"kitchen.amqp.password":                d.Kitchen.AMQP.Password,
		"kitchen.amqp.queue":                   d.Kitchen.AMQP.Queue,
		"kitchen.temporal.host_port":           d.Kitchen.Temporal.HostPort,
		"kitchen.temporal.namespace":           d.Kitchen.Temporal.Namespace,
		"kitchen.temporal.task_queue":          d.Kitchen.Temporal.TaskQueue,
		"telemetry.enabled":                    d.Telemetry.Enabled,
		"telemetry.exporter":                   d.Telemetry.Exporter,
		"telemetry.endpoint":                   d.Telemetry.Endpoint,
		"telemetry.insecure":                   d.Telemetry.Insecure,
		"telemetry.sampling_rate":              d.Telemetry.SamplingRate,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// Load builds a Config from v (defaults, file, env, flags) and applies opts on top.
func Load(v *viper.Viper, opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	if v != nil {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, &ServiceError{
				Op:      "config.Load",
				Kind:    "config",
				Message: "failed to decode configuration",
				Err:     fmt.Errorf("%v: %w", err, ErrInvalidConfiguration),
			}
		}
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfig creates a validated configuration from defaults and options only.
func NewConfig(opts ...Option) (*Config, error) {
	return Load(nil, opts...)
}

// ListenAddr returns address:port for http.Server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

func configError(message string, sentinel error) error {
	return &ServiceError{
		Op:      "Config.Validate",
		Kind:    "config",
		Message: message,
		Err:     sentinel,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return configError(fmt.Sprintf("invalid port: %d", c.Port), ErrInvalidConfiguration)
	}
	if c.Name == "" {
		return configError("service name is required", ErrMissingConfiguration)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return configError(fmt.Sprintf("unsupported log format: %s", c.Logging.Format), ErrInvalidConfiguration)
	}

	switch c.AI.Provider {
	case "openai":
		if c.AI.APIKey == "" {
			return configError("AI API key is required for the openai provider (or use the mock provider)", ErrMissingConfiguration)
		}
	case "mock":
	default:
		return configError(fmt.Sprintf("unsupported AI provider: %s", c.AI.Provider), ErrInvalidConfiguration)
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.DSN == "" {
			return configError("storage DSN is required for the sqlite driver", ErrMissingConfiguration)
		}
	case "memory":
	default:
		return configError(fmt.Sprintf("unsupported storage driver: %s", c.Storage.Driver), ErrInvalidConfiguration)
	}

	if c.Quotes.TTL <= 0 {
		return configError("quote TTL must be positive", ErrInvalidConfiguration)
	}

	switch c.Kitchen.Backend {
	case "", "none", "log":
	case "servicebus":
		if c.Kitchen.ServiceBus.ConnectionString == "" && c.Kitchen.ServiceBus.Namespace == "" {
			return configError("servicebus connection string or namespace is required", ErrMissingConfiguration)
		}
	case "amqp":
		if c.Kitchen.AMQP.URL == "" {
			return configError("amqp URL is required for the amqp kitchen backend", ErrMissingConfiguration)
		}
	case "temporal":
		if c.Kitchen.Temporal.HostPort == "" {
			return configError("temporal host:port is required for the temporal kitchen backend", ErrMissingConfiguration)
		}
	default:
		return configError(fmt.Sprintf("unsupported kitchen backend: %s", c.Kitchen.Backend), ErrInvalidConfiguration)
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case "otlp":
			if c.Telemetry.Endpoint == "" {
				return configError("telemetry endpoint is required for the otlp exporter", ErrMissingConfiguration)
			}
		case "stdout", "none":
		default:
			return configError(fmt.Sprintf("unsupported telemetry exporter: %s", c.Telemetry.Exporter), ErrInvalidConfiguration)
		}
	}

	return nil
}

// Functional Options

// WithName sets the service name used in logs and traces.
func WithName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// WithPort sets the HTTP server port.
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return &ServiceError{
				Op:      "WithPort",
				Kind:    "config",
				Message: fmt.Sprintf("invalid port: %d", port),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Port = port
		return nil
	}
}

// WithAddress sets the bind address.
func WithAddress(address string) Option {
	return func(c *Config) error {
		c.Address = address
		return nil
	}
}

// WithDevelopmentMode logs every request and prefers text logs.
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development = enabled
		if enabled {
			c.Logging.Format = "text"
			if c.Logging.Level == "info" {
				c.Logging.Level = "debug"
			}
		}
		return nil
	}
}

// WithCORS enables CORS for the given origins.
func WithCORS(origins []string, credentials bool) Option {
	return func(c *Config) error {
		c.HTTP.CORS.Enabled = true
		c.HTTP.CORS.AllowedOrigins = origins
		c.HTTP.CORS.AllowCredentials = credentials
		return nil
	}
}

// WithLogLevel sets the log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat sets the log format (json or text).
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithOpenAIAPIKey selects the openai provider with the given key.
func WithOpenAIAPIKey(key string) Option {
	return func(c *Config) error {
		if key == "" {
			return &ServiceError{
				Op:      "WithOpenAIAPIKey",
				Kind:    "config",
				Message: "API key cannot be empty",
				Err:     ErrInvalidConfiguration,
			}
		}
		c.AI.Provider = "openai"
		c.AI.APIKey = key
		return nil
	}
}

// WithAIModel sets the model name.
func WithAIModel(model string) Option {
	return func(c *Config) error {
		c.AI.Model = model
		return nil
	}
}

// WithMockAI switches to the scripted mock provider.
func WithMockAI(enabled bool) Option {
	return func(c *Config) error {
		if enabled {
			c.AI.Provider = "mock"
		}
		return nil
	}
}

// WithStorage selects the storage driver and DSN.
func WithStorage(driver, dsn string) Option {
	return func(c *Config) error {
		c.Storage.Driver = driver
		c.Storage.DSN = dsn
		return nil
	}
}

// WithRedisURL enables Redis-backed quotes and sessions.
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Redis.URL = url
		return nil
	}
}

// WithSeedFile loads the catalog from a YAML file instead of the embedded default.
func WithSeedFile(path string) Option {
	return func(c *Config) error {
		c.Catalog.SeedFile = path
		return nil
	}
}

// WithQuoteTTL sets how long a quote stays confirmable.
func WithQuoteTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		c.Quotes.TTL = ttl
		return nil
	}
}

// WithKitchenBackend selects where kitchen tickets go.
func WithKitchenBackend(backend string) Option {
	return func(c *Config) error {
		c.Kitchen.Backend = backend
		return nil
	}
}

// WithTelemetry enables tracing with the given exporter and endpoint.
func WithTelemetry(exporter, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = true
		c.Telemetry.Exporter = exporter
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}
