// Package app assembles memoir's components from a resolved configuration.
// Every command that touches the profile builds one App and closes it on exit.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/papercomputeco/memoir/pkg/config"
	"github.com/papercomputeco/memoir/pkg/credentials"
	"github.com/papercomputeco/memoir/pkg/dotdir"
	"github.com/papercomputeco/memoir/pkg/eventstream"
	"github.com/papercomputeco/memoir/pkg/eventstream/kafka"
	"github.com/papercomputeco/memoir/pkg/eventstream/nop"
	"github.com/papercomputeco/memoir/pkg/extract"
	"github.com/papercomputeco/memoir/pkg/llm"
	"github.com/papercomputeco/memoir/pkg/llm/provider"
	"github.com/papercomputeco/memoir/pkg/llm/structured"
	"github.com/papercomputeco/memoir/pkg/logger"
	"github.com/papercomputeco/memoir/pkg/memory"
	"github.com/papercomputeco/memoir/pkg/metrics"
	"github.com/papercomputeco/memoir/pkg/organize"
	"github.com/papercomputeco/memoir/pkg/progress"
	"github.com/papercomputeco/memoir/pkg/storage"
	"github.com/papercomputeco/memoir/pkg/worker"
)

const (
	// SQLiteFile is the default database name inside the .memoir/ directory.
	SQLiteFile = "memoir.db"

	// LogFile is where memoir serve writes its JSON log.
	LogFile = "memoir.log"

	serviceName = "memoir"
)

// Options controls what New builds.
type Options struct {
	Config    *config.Config
	ConfigDir string
	Logger    *slog.Logger

	// Generator replaces the configured backend when set.
	Generator llm.Generator

	// Store replaces the configured record store when set. It is still
	// closed by Close.
	Store memory.Store

	// StartPool starts the background extraction workers.
	StartPool bool
}

// App holds the wired components. Fields are nil for parts not requested.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     memory.Store
	Generator llm.Generator
	Client    *structured.Client
	Extractor *extract.Extractor
	Organizer *organize.Organizer
	Progress  *progress.Log
	Metrics   *metrics.Recorder
	Publisher eventstream.Publisher
	Pool      *worker.Pool
}

// New opens the store, builds the generator and wires extraction,
// organization and event publishing on top of them.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	a := &App{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(),
	}

	publisher, err := newPublisher(cfg.EventStream)
	if err != nil {
		return nil, err
	}
	a.Publisher = publisher
	source := eventSource()

	gen := opts.Generator
	if gen == nil {
		gen, err = newGenerator(cfg.Generation, opts.ConfigDir, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	a.Generator = gen

	a.Store = opts.Store
	if a.Store == nil {
		a.Store, err = openStore(ctx, cfg.Storage, opts.ConfigDir)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	a.Client = structured.New(gen,
		structured.WithLogger(log.With("component", "structured")),
		structured.WithJSONMode(cfg.Generation.JSONMode),
	)
	a.Extractor = extract.New(a.Client, a.Store,
		extract.WithLogger(log.With("component", "extract")),
		extract.WithMetrics(a.Metrics),
	)

	a.Progress = progress.NewLog(
		progress.WithPublisher(publisher, source),
		progress.WithLogger(log),
	)
	a.Organizer = organize.New(a.Client, a.Store, a.Progress,
		organize.WithLogger(log.With("component", "organize")),
		organize.WithMetrics(a.Metrics),
		organize.WithMaxItems(int(cfg.Organize.MaxItemsPerStep)),
		organize.WithThresholds(organize.Thresholds{
			Medium:  int(cfg.Organize.MediumDays),
			Old:     int(cfg.Organize.OldDays),
			Ancient: int(cfg.Organize.AncientDays),
		}),
	)

	if opts.StartPool {
		a.Pool, err = worker.NewPool(&worker.Config{
			Processor:  a.Extractor,
			Publisher:  publisher,
			Source:     source,
			Metrics:    a.Metrics,
			NumWorkers: cfg.Extraction.Workers,
			QueueSize:  cfg.Extraction.QueueSize,
			Logger:     log.With("component", "worker"),
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	log.Debug("memoir components ready",
		"storage", cfg.Storage.Provider,
		"generator", provider.Name(gen),
		"eventstream", cfg.EventStream.Provider,
		"pool", opts.StartPool,
	)
	return a, nil
}

// Close drains the worker pool, then closes the publisher and the store.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
	}

	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

func newGenerator(g config.GenerationConfig, configDir string, log *slog.Logger) (llm.Generator, error) {
	creds, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	gen, err := provider.New(provider.Config{
		Provider:          g.Provider,
		Model:             g.Model,
		Target:            g.Target,
		Timeout:           g.TimeoutDuration(),
		Temperature:       g.Temperature,
		MaxTokens:         int64(g.MaxTokens),
		RequestsPerMinute: int(g.RequestsPerMinute),
		Credentials:       creds,
		Logger:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	return gen, nil
}

// SQLitePath returns the configured database path, defaulting to memoir.db
// in the resolved .memoir/ directory.
func SQLitePath(s config.StorageConfig, configDir string) (string, error) {
	if s.SQLitePath != "" {
		return s.SQLitePath, nil
	}
	return dotdir.NewManager().Path(configDir, SQLiteFile)
}

func openStore(ctx context.Context, s config.StorageConfig, configDir string) (memory.Store, error) {
	sc := storage.Config{Provider: s.Provider, PostgresDSN: s.PostgresDSN}
	if s.Provider == "" || s.Provider == storage.ProviderSQLite {
		path, err := SQLitePath(s, configDir)
		if err != nil {
			return nil, err
		}
		sc.SQLitePath = path
	}

	store, err := storage.Open(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", s.Provider, err)
	}
	return store, nil
}

func newPublisher(es config.EventStreamConfig) (eventstream.Publisher, error) {
	switch es.Provider {
	case "", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{Brokers: es.Brokers, Topic: es.Topic})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q (available: none, kafka)", es.Provider)
	}
}

func eventSource() eventstream.EventSource {
	host, _ := os.Hostname()
	return eventstream.EventSource{Service: serviceName, Hostname: host}
}
