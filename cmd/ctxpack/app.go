package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	"github.com/lifeos/ctxpack/config"
	"github.com/lifeos/ctxpack/pkg/api/events"
	"github.com/lifeos/ctxpack/pkg/assembler"
	"github.com/lifeos/ctxpack/pkg/compress"
	"github.com/lifeos/ctxpack/pkg/datehint"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/memory"
	"github.com/lifeos/ctxpack/pkg/metrics"
	"github.com/lifeos/ctxpack/pkg/pipeline"
	"github.com/lifeos/ctxpack/pkg/retrieval"
	badgerstore "github.com/lifeos/ctxpack/pkg/storage/badger"
	"github.com/lifeos/ctxpack/pkg/telemetry"
	"github.com/lifeos/ctxpack/pkg/tokens"
)

// telemetryRetention expires records written by the badger sink.
const telemetryRetention = 30 * 24 * time.Hour

// app holds every component built from one Config.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Manager

	db          *badger.DB
	index       *memory.Index
	searcher    retrieval.Searcher
	summarizer  compress.Summarizer
	recorder    *telemetry.Recorder
	broadcaster *events.Broadcaster
	pipeline    *pipeline.Pipeline
}

type appOptions struct {
	metrics     *metrics.Manager
	broadcaster *events.Broadcaster
}

// needsBadger reports whether any component stores data in Badger.
func needsBadger(cfg *config.Config) bool {
	return cfg.Retrieval.Backend == "local" || cfg.HasSink("badger")
}

// buildApp constructs the pipeline and its collaborators. On error every
// component opened so far is closed.
func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger, opts appOptions) (_ *app, err error) {
	a := &app{
		cfg:         cfg,
		log:         log,
		metrics:     opts.metrics,
		broadcaster: opts.broadcaster,
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if needsBadger(cfg) {
		a.db, err = badgerstore.Open(&badgerstore.Config{
			Path:             cfg.Storage.Badger.Path,
			InMemory:         cfg.Storage.Badger.InMemory,
			SyncWrites:       cfg.Storage.Badger.SyncWrites,
			ValueLogFileSize: cfg.Storage.Badger.ValueLogFileSize,
		}, log.With("component", "badger"))
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		log.Info("Initialized Badger storage", "path", cfg.Storage.Badger.Path, "in_memory", cfg.Storage.Badger.InMemory)
	}

	if err = a.buildSearcher(ctx); err != nil {
		return nil, err
	}
	if err = a.buildSummarizer(); err != nil {
		return nil, err
	}
	if err = a.buildRecorder(); err != nil {
		return nil, err
	}
	if err = a.buildPipeline(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) buildSearcher(ctx context.Context) error {
	rc := a.cfg.Retrieval
	switch rc.Backend {
	case "local":
		emb, err := memory.NewEmbedder(rc.Local.Embedder, rc.Local.Dimension)
		if err != nil {
			return err
		}
		a.index = memory.NewIndex(a.db, emb, memory.Config{
			VectorWeight: rc.Local.VectorWeight,
			BM25Weight:   rc.Local.BM25Weight,
			K1:           rc.Local.BM25.K1,
			B:            rc.Local.BM25.B,
			L1CacheSize:  rc.Local.L1CacheSize,
		}, memory.WithLogger(a.log.With("component", "memory")))

		n, err := a.index.Load(ctx)
		if err != nil {
			return fmt.Errorf("load memory index: %w", err)
		}
		a.metrics.SetIndexDocuments(n)
		a.log.Info("Loaded memory index", "documents", n, "embedder", emb.ModelID())
		a.searcher = retrieval.NewLocalSearcher(a.index, memory.ModeHybrid)
	case "http":
		a.searcher = retrieval.NewHTTPSearcher(rc.Endpoint,
			retrieval.WithHTTPClient(&http.Client{Timeout: rc.Timeout}),
			retrieval.WithHeaders(rc.Headers),
		)
		a.log.Info("Using remote semantic search", "endpoint", rc.Endpoint)
	default:
		a.log.Warn("Semantic search disabled; every request gets an empty memory block")
	}
	return nil
}

func (a *app) buildSummarizer() error {
	cc := a.cfg.Compression
	switch cc.Backend {
	case "http":
		a.summarizer = compress.NewHTTPSummarizer(cc.Endpoint, &http.Client{Timeout: cc.Timeout})
	case "openai":
		s, err := compress.NewOpenAISummarizer(compress.OpenAIConfig{
			APIKey:  cc.OpenAI.APIKey,
			BaseURL: cc.OpenAI.BaseURL,
			Model:   cc.OpenAI.Model,
		})
		if err != nil {
			return fmt.Errorf("create openai summarizer: %w", err)
		}
		a.summarizer = s
	default:
		a.summarizer = compress.NewTruncateSummarizer(a.cfg.Budget.TruncateRatio)
	}
	a.log.Info("Using summarizer", "backend", a.summarizer.Name(), "batch", cc.Batch)
	return nil
}

func (a *app) buildRecorder() error {
	tc := a.cfg.Telemetry
	var sinks []telemetry.Sink
	for _, name := range tc.Sinks {
		switch name {
		case "log":
			sinks = append(sinks, telemetry.NewLogSink(a.log.With("component", "telemetry")))
		case "redis":
			client := redis.NewClient(&redis.Options{
				Addr:     tc.Redis.Address,
				Password: tc.Redis.Password,
				DB:       tc.Redis.DB,
			})
			sinks = append(sinks, telemetry.NewRedisSink(client, tc.Redis.Stream, tc.Redis.MaxLen))
		case "kafka":
			s, err := telemetry.NewKafkaSink(telemetry.KafkaConfig{
				Brokers:      tc.Kafka.Brokers,
				Topic:        tc.Kafka.Topic,
				BatchSize:    tc.Kafka.BatchSize,
				BatchTimeout: tc.Kafka.BatchTimeout,
			})
			if err != nil {
				closeSinks(sinks)
				return err
			}
			sinks = append(sinks, s)
		case "badger":
			sinks = append(sinks, telemetry.NewBadgerSink(badgerstore.NewStore(a.db), telemetryRetention))
		case "http":
			sinks = append(sinks, telemetry.NewHTTPSink(tc.Endpoint, &http.Client{Timeout: tc.Timeout}))
		default:
			closeSinks(sinks)
			return fmt.Errorf("unknown telemetry sink %q", name)
		}
	}
	if a.broadcaster != nil {
		sinks = append(sinks, telemetry.NewBroadcastSink(a.broadcaster))
	}

	a.recorder = telemetry.NewRecorder(sinks,
		telemetry.WithWorkers(tc.Workers),
		telemetry.WithQueueSize(tc.QueueSize),
		telemetry.WithTimeout(tc.Timeout),
		telemetry.WithLogger(a.log.With("component", "telemetry")),
		telemetry.WithMetrics(a.metrics),
	)
	a.log.Info("Telemetry recorder started", "sinks", a.recorder.Sinks(), "workers", tc.Workers)
	return nil
}

func closeSinks(sinks []telemetry.Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}

func (a *app) buildPipeline() error {
	bc := a.cfg.Budget
	budget := tokens.Budget{
		System: bc.System,
		User:   bc.User,
		Memory: bc.Memory,
		Tools:  bc.Tools,
	}

	var src assembler.MemorySource
	if a.searcher != nil {
		src = retrieval.NewRetriever(a.searcher,
			retrieval.WithTimeout(a.cfg.Retrieval.Timeout),
			retrieval.WithDefaultKinds(a.cfg.Retrieval.Kinds),
			retrieval.WithLogger(a.log.With("component", "retrieval")),
			retrieval.WithMetrics(a.metrics),
		)
	}

	comp := compress.New(a.summarizer,
		compress.WithTimeout(a.cfg.Compression.Timeout),
		compress.WithConcurrency(a.cfg.Compression.Concurrency),
		compress.WithBatch(a.cfg.Compression.Batch),
		compress.WithFallbackChars(bc.FallbackChars),
		compress.WithLogger(a.log.With("component", "compress")),
		compress.WithMetrics(a.metrics),
	)

	alloc, err := assembler.New(budget, src, comp,
		assembler.WithTruncateRatio(bc.TruncateRatio),
		assembler.WithTopK(bc.TopK),
		assembler.WithLogger(a.log.With("component", "assembler")),
		assembler.WithMetrics(a.metrics),
	)
	if err != nil {
		return fmt.Errorf("create allocator: %w", err)
	}

	ext, err := newExtractor(a.cfg.DateHints)
	if err != nil {
		return err
	}

	a.pipeline = pipeline.New(alloc, ext,
		pipeline.WithRecorder(a.recorder),
		pipeline.WithLogger(a.log),
		pipeline.WithMetrics(a.metrics),
	)
	return nil
}

func newExtractor(dc config.DateHintsConfig) (*datehint.Extractor, error) {
	weekStart, err := datehint.ParseWeekday(dc.WeekStart)
	if err != nil {
		return nil, err
	}
	loc := time.Local
	if dc.Timezone != "" {
		if loc, err = time.LoadLocation(dc.Timezone); err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", dc.Timezone, err)
		}
	}
	return datehint.New(weekStart, loc), nil
}

// Close drains telemetry, then closes storage.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.recorder != nil {
		if err := a.recorder.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := badgerstore.Close(a.db); err != nil {
			errs = append(errs, fmt.Errorf("close badger: %w", err))
		}
	}
	return errors.Join(errs...)
}
