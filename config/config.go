// Package config provides configuration management for ctxpack.
package config

import (
	"fmt"
	"time"
)

// Config is the global configuration for ctxpack.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Server is the HTTP server configuration.
	Server ServerConfig `mapstructure:"server" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Budget holds the per-role token ceilings used by the allocator.
	Budget BudgetConfig `mapstructure:"budget" validate:"required"`

	// DateHints configures relative date phrase extraction.
	DateHints DateHintsConfig `mapstructure:"date_hints"`

	// Retrieval configures the semantic search collaborator.
	Retrieval RetrievalConfig `mapstructure:"retrieval"`

	// Compression configures the summarization collaborator.
	Compression CompressionConfig `mapstructure:"compression"`

	// Telemetry configures where per-request records are written.
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Storage is the persistence configuration.
	Storage StorageConfig `mapstructure:"storage"`

	// Metrics is the Prometheus configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing is the OpenTelemetry configuration.
	Tracing TracingConfig `mapstructure:"tracing"`
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Version is the application version.
	Version string `mapstructure:"version"`

	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"env"`

	// Debug enables debug mode with verbose logging.
	Debug bool `mapstructure:"debug"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	// Host is the bind address.
	Host string `mapstructure:"host"`

	// Port is the HTTP API port.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`

	// HTTP is the HTTP server configuration.
	HTTP HTTPConfig `mapstructure:"http"`

	// CORS is the CORS configuration.
	CORS CORSConfig `mapstructure:"cors"`

	// RateLimit is the per-client request limiter.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// WebSocket configures the telemetry live tail.
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

// HTTPConfig holds HTTP-specific settings.
type HTTPConfig struct {
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// RequestTimeout bounds a single API request end to end.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	MaxHeaderBytes int `mapstructure:"max_header_bytes" validate:"min=0"`

	// MaxBodyBytes limits the size of JSON request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"min=0"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	// Enabled enables CORS support.
	Enabled bool `mapstructure:"enabled"`

	// AllowedOrigins is the list of allowed origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// AllowedMethods is the list of allowed HTTP methods.
	AllowedMethods []string `mapstructure:"allowed_methods"`

	// AllowedHeaders is the list of allowed headers.
	AllowedHeaders []string `mapstructure:"allowed_headers"`

	// ExposedHeaders is the list of headers exposed to the client.
	ExposedHeaders []string `mapstructure:"exposed_headers"`

	// AllowCredentials indicates whether credentials are allowed.
	AllowCredentials bool `mapstructure:"allow_credentials"`

	// MaxAge is the maximum age of CORS preflight cache in seconds.
	MaxAge int `mapstructure:"max_age"`
}

// RateLimitConfig holds per-client token bucket settings.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"min=0"`
	Burst             int     `mapstructure:"burst" validate:"min=0"`
}

// WebSocketConfig holds websocket settings for the telemetry live tail.
type WebSocketConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxConnections int           `mapstructure:"max_connections" validate:"min=0"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the output format (json, text).
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is the output destination (stdout, stderr, or file path).
	Output string `mapstructure:"output"`
}

// BudgetConfig holds the token ceilings and truncation policy.
type BudgetConfig struct {
	// System is the ceiling for the system message.
	System int `mapstructure:"system" validate:"min=1"`

	// User is the ceiling for the final user message.
	User int `mapstructure:"user" validate:"min=1"`

	// Memory is the ceiling for the packed memory block.
	Memory int `mapstructure:"memory" validate:"min=1"`

	// Tools is the ceiling for a single tool result.
	Tools int `mapstructure:"tools" validate:"min=1"`

	// TruncateRatio scales the proportional cut applied on overflow.
	TruncateRatio float64 `mapstructure:"truncate_ratio" validate:"gt=0,lte=1"`

	// FallbackChars is the raw-content cut used when compression fails.
	FallbackChars int `mapstructure:"fallback_chars" validate:"min=1"`

	// TopK is the number of candidates requested from retrieval.
	TopK int `mapstructure:"top_k" validate:"min=1,max=100"`
}

// DateHintsConfig configures the date phrase extractor.
type DateHintsConfig struct {
	// WeekStart is the first day of the week (sunday or monday).
	WeekStart string `mapstructure:"week_start" validate:"oneof=sunday monday"`

	// Timezone is an IANA zone name used to compute "today". Empty means local.
	Timezone string `mapstructure:"timezone" validate:"timezone"`
}

// RetrievalConfig configures the semantic search collaborator.
type RetrievalConfig struct {
	// Backend selects the searcher (local, http, none).
	Backend string `mapstructure:"backend" validate:"oneof=local http none"`

	// Endpoint is the semantic search URL for the http backend.
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Backend http"`

	// Headers are extra headers sent to the http backend.
	Headers map[string]string `mapstructure:"headers"`

	// Timeout bounds a single search call.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// Kinds is the default category filter applied when a request has none.
	Kinds []string `mapstructure:"kinds"`

	// Local configures the built-in document index.
	Local LocalIndexConfig `mapstructure:"local"`
}

// LocalIndexConfig configures the built-in document index.
type LocalIndexConfig struct {
	// Embedder is the hashing embedder name (hash, chargram).
	Embedder string `mapstructure:"embedder" validate:"oneof=hash chargram"`

	// Dimension is the embedding width.
	Dimension int `mapstructure:"dimension" validate:"min=8"`

	// VectorWeight is the RRF weight for vector ranks.
	VectorWeight float64 `mapstructure:"vector_weight" validate:"min=0"`

	// BM25Weight is the RRF weight for BM25 ranks.
	BM25Weight float64 `mapstructure:"bm25_weight" validate:"min=0"`

	// BM25 holds the BM25 tuning parameters.
	BM25 BM25Config `mapstructure:"bm25"`

	// L1CacheSize is the LRU size in front of Badger.
	L1CacheSize int `mapstructure:"l1_cache_size" validate:"min=1"`
}

// BM25Config holds BM25 scoring parameters.
type BM25Config struct {
	K1 float64 `mapstructure:"k1" validate:"gt=0"`
	B  float64 `mapstructure:"b" validate:"min=0,max=1"`
}

// CompressionConfig configures the summarization collaborator.
type CompressionConfig struct {
	// Backend selects the summarizer (none, http, openai).
	Backend string `mapstructure:"backend" validate:"oneof=none http openai"`

	// Endpoint is the summarization URL for the http backend.
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Backend http"`

	// Timeout bounds a single summarization call.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// Concurrency caps in-flight per-item calls.
	Concurrency int `mapstructure:"concurrency" validate:"min=1"`

	// Batch sends every item in a single call instead of one call per item.
	Batch bool `mapstructure:"batch"`

	// OpenAI configures the openai backend.
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig holds chat completion settings for compression.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// TelemetryConfig configures the telemetry recorder and its sinks.
type TelemetryConfig struct {
	// Sinks lists the enabled sinks (log, redis, kafka, badger, http).
	Sinks []string `mapstructure:"sinks" validate:"dive,oneof=log redis kafka badger http"`

	// Workers is the number of background writers.
	Workers int `mapstructure:"workers" validate:"min=1"`

	// QueueSize is the number of pending records before new ones are dropped.
	QueueSize int `mapstructure:"queue_size" validate:"min=1"`

	// Timeout bounds a single sink write.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// Endpoint is the telemetry store URL for the http sink.
	Endpoint string `mapstructure:"endpoint"`

	// Redis configures the redis stream sink.
	Redis RedisConfig `mapstructure:"redis"`

	// Kafka configures the kafka sink.
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	// Address is the Redis server address.
	Address string `mapstructure:"address"`

	// Password is the Redis password.
	Password string `mapstructure:"password"`

	// DB is the Redis database number.
	DB int `mapstructure:"db" validate:"min=0"`

	// Stream is the stream key records are appended to.
	Stream string `mapstructure:"stream"`

	// MaxLen caps the stream length (approximate trimming).
	MaxLen int64 `mapstructure:"max_len" validate:"min=0"`
}

// KafkaConfig holds Kafka writer settings.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size" validate:"min=0"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Badger is the BadgerDB configuration shared by the document index
	// and the telemetry store.
	Badger BadgerConfig `mapstructure:"badger"`
}

// BadgerConfig holds BadgerDB-specific settings.
type BadgerConfig struct {
	// Path is the database directory path.
	Path string `mapstructure:"path"`

	// InMemory keeps the database in memory only.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool `mapstructure:"sync_writes"`

	// ValueLogFileSize is the maximum size of value log files in bytes.
	ValueLogFileSize int64 `mapstructure:"value_log_file_size" validate:"min=0"`
}

// MetricsConfig holds observability settings.
type MetricsConfig struct {
	// Enabled enables metrics collection.
	Enabled bool `mapstructure:"enabled"`

	// Path is the metrics endpoint path.
	Path string `mapstructure:"path"`

	// Port is the metrics server port.
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// TracingConfig holds distributed tracing settings.
type TracingConfig struct {
	// Enabled enables distributed tracing.
	Enabled bool `mapstructure:"enabled"`

	// Exporter is the span exporter kind (otlp).
	Exporter string `mapstructure:"exporter" validate:"omitempty,oneof=otlp"`

	// Endpoint is the OTLP gRPC collector endpoint.
	Endpoint string `mapstructure:"endpoint"`

	// Timeout bounds a single export.
	Timeout time.Duration `mapstructure:"timeout"`

	// Headers are sent with every export.
	Headers map[string]string `mapstructure:"headers"`

	// Sampler is always_on, always_off or ratio.
	Sampler string `mapstructure:"sampler" validate:"omitempty,oneof=always_on always_off ratio"`

	// SampleRate is the fraction of traces to sample (0.0-1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// HasSink reports whether the named telemetry sink is enabled.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Telemetry.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// String returns a string representation of the configuration (without sensitive data).
func (c *Config) String() string {
	return fmt.Sprintf("Config{App: %s, Server: :%d, Env: %s, Retrieval: %s, Compression: %s, Sinks: %v}",
		c.App.Name, c.Server.Port, c.App.Environment,
		c.Retrieval.Backend, c.Compression.Backend, c.Telemetry.Sinks)
}
