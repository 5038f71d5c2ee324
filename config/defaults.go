package config

import "time"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "ctxpack",
			Version:     "dev",
			Environment: "development",
			Debug:       false,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			HTTP: HTTPConfig{
				ReadTimeout:     30 * time.Second,
				WriteTimeout:    30 * time.Second,
				IdleTimeout:     120 * time.Second,
				RequestTimeout:  20 * time.Second,
				ShutdownTimeout: 30 * time.Second,
				MaxHeaderBytes:  1 << 20, // 1MB
				MaxBodyBytes:    1 << 20,
			},
			CORS: CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
				ExposedHeaders: []string{"X-Request-ID"},
				MaxAge:         600,
			},
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 20,
				Burst:             40,
			},
			WebSocket: WebSocketConfig{
				Enabled:        true,
				MaxConnections: 100,
				PingInterval:   30 * time.Second,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Budget: BudgetConfig{
			System:        1500,
			User:          800,
			Memory:        1200,
			Tools:         800,
			TruncateRatio: 0.9,
			FallbackChars: 600,
			TopK:          12,
		},
		DateHints: DateHintsConfig{
			WeekStart: "sunday",
		},
		Retrieval: RetrievalConfig{
			Backend: "local",
			Timeout: 3 * time.Second,
			Local: LocalIndexConfig{
				Embedder:     "chargram",
				Dimension:    384,
				VectorWeight: 0.6,
				BM25Weight:   0.4,
				BM25: BM25Config{
					K1: 1.5,
					B:  0.75,
				},
				L1CacheSize: 1000,
			},
		},
		Compression: CompressionConfig{
			Backend:     "none",
			Timeout:     5 * time.Second,
			Concurrency: 4,
			OpenAI: OpenAIConfig{
				Model: "gpt-4o-mini",
			},
		},
		Telemetry: TelemetryConfig{
			Sinks:     []string{"log"},
			Workers:   2,
			QueueSize: 256,
			Timeout:   2 * time.Second,
			Redis: RedisConfig{
				Address: "localhost:6379",
				Stream:  "ctxpack:telemetry",
				MaxLen:  100000,
			},
			Kafka: KafkaConfig{
				Brokers:      []string{"localhost:9092"},
				Topic:        "ctxpack.telemetry",
				BatchSize:    100,
				BatchTimeout: 10 * time.Millisecond,
			},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:             "./data/badger",
				SyncWrites:       true,
				ValueLogFileSize: 1 << 28, // 256MB
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9091,
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "otlp",
			Endpoint:   "localhost:4317",
			Timeout:    5 * time.Second,
			Sampler:    "ratio",
			SampleRate: 0.1,
		},
	}
}
