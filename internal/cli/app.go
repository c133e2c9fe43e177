// Package cli wires a tessera.yaml configuration into a running engine and
// its adapters.
package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/config"
	"github.com/aretw0/tessera/pkg/adapters/bolt"
	"github.com/aretw0/tessera/pkg/adapters/cron"
	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/adapters/mqtt"
	"github.com/aretw0/tessera/pkg/adapters/postgres"
	"github.com/aretw0/tessera/pkg/adapters/process"
	"github.com/aretw0/tessera/pkg/adapters/redis"
	"github.com/aretw0/tessera/pkg/codec"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/host"
	"github.com/aretw0/tessera/pkg/observability"
	"github.com/aretw0/tessera/pkg/persistence/middleware"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/aretw0/tessera/pkg/scope"
)

// App is an engine with every adapter the configuration enables.
type App struct {
	Config   *config.Config
	Engine   *tessera.Engine
	Host     *host.Recorder
	Feed     *observability.Feed
	Registry *prometheus.Registry

	// Optional adapters; nil when disabled.
	Globals   *redis.Store
	Scheduler *cron.Scheduler
	Source    *mqtt.Source
	Store     ports.ScriptStore

	logger  *slog.Logger
	closers []func() error
}

// Build creates the App described by cfg. Host output is echoed to out.
func Build(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (_ *App, err error) {
	app := &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	recOpts := []host.RecorderOption{host.WithOutput(out)}
	if cfg.Commands != "" {
		commands, err := process.LoadCommands(cfg.Commands)
		if err != nil {
			return nil, err
		}
		recOpts = append(recOpts, host.WithCommands(process.NewRunner(
			process.WithRegistry(commands),
			process.WithBaseDir(filepath.Dir(cfg.Commands)),
			process.WithLogger(logger),
		)))
	}
	app.Host = host.NewRecorder(recOpts...)

	globals, err := app.buildGlobals(ctx)
	if err != nil {
		return nil, err
	}
	if app.Store, err = app.buildStore(); err != nil {
		return nil, err
	}

	app.Feed = observability.NewFeed(cfg.Server.FeedSize)
	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewMetrics(app.Registry)
	if err != nil {
		return nil, err
	}

	opts := []tessera.Option{
		tessera.WithName(cfg.Name),
		tessera.WithLogger(logger),
		tessera.WithHost(app.Host),
		tessera.WithGlobalStore(globals),
		tessera.WithDebug(cfg.Debug),
		tessera.WithReportSink(app.Feed),
		tessera.WithLifecycleHooks(metrics.Hooks()),
	}
	if cfg.Debug {
		opts = append(opts, tessera.WithLifecycleHooks(debugHooks(logger)))
	}
	if app.Store != nil {
		opts = append(opts, tessera.WithScriptStore(app.Store))
	}
	if cfg.Audit.Postgres {
		sink, err := app.buildAudit(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tessera.WithReportSink(sink))
	}

	if app.Engine, err = tessera.New(opts...); err != nil {
		return nil, err
	}
	if err := app.load(ctx); err != nil {
		return nil, err
	}

	if cfg.Scheduler.Enabled {
		cronOpts := []cron.Option{cron.WithLogger(logger), cron.WithInterval(cfg.Scheduler.Interval)}
		if app.Globals != nil {
			cronOpts = append(cronOpts, cron.WithLocker(redis.NewLocker(app.Globals.Client(), app.Globals.Prefix())))
		}
		app.Scheduler = cron.New(app.Engine, cronOpts...)
	}
	if cfg.MQTT.Broker != "" {
		app.Source = mqtt.New(mqtt.Config{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Username:   cfg.MQTT.Username,
			Password:   cfg.Secrets.MQTTPassword,
			Topic:      cfg.MQTT.Topic,
			Prefix:     cfg.MQTT.Prefix,
			ReplyTopic: cfg.MQTT.ReplyTopic,
		}, app.Engine, mqtt.WithLogger(logger))
	}
	return app, nil
}

func (a *App) buildGlobals(ctx context.Context) (scope.Store, error) {
	var globals scope.Store = scope.NewMemoryStore()
	if a.Config.Globals.Backend == "redis" {
		r := a.Config.Globals.Redis
		opts := []redis.Option{redis.WithLogger(a.logger)}
		if r.Prefix != "" {
			opts = append(opts, redis.WithPrefix(r.Prefix))
		}
		store := redis.New(r.Addr, a.Config.Secrets.RedisPassword, r.DB, opts...)
		a.closers = append(a.closers, store.Close)
		if err := store.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("redis globals: %w", err)
		}
		a.Globals = store
		globals = store
	}
	for _, name := range scope.SortedNames(a.Config.Globals.Values) {
		if _, ok := globals.Load(name); !ok {
			globals.Store(name, a.Config.Globals.Values[name])
		}
	}
	return globals, nil
}

func (a *App) buildStore() (ports.ScriptStore, error) {
	var store ports.ScriptStore
	switch a.Config.Store.Backend {
	case "memory":
		store = memory.NewStore()
	case "bolt":
		b, err := bolt.Open(a.Config.Store.Path, bolt.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b.Close)
		store = b
	default:
		return nil, nil
	}

	if a.Config.Store.Encrypt {
		key, err := hex.DecodeString(a.Config.Secrets.StoreKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.EnvStoreKey, err)
		}
		encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		store = encrypt(store)
	}
	return store, nil
}

func (a *App) buildAudit(ctx context.Context) (ports.ReportSink, error) {
	sink, err := postgres.Open(ctx, a.Config.Secrets.PostgresDSN, a.Config.Audit.Instance)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sink.Close)
	if err := sink.Migrate(ctx); err != nil {
		return nil, err
	}
	if len(a.Config.Audit.Redact) == 0 {
		return sink, nil
	}
	redact, err := middleware.NewPIIMiddleware(a.Config.Audit.Redact)
	if err != nil {
		return nil, err
	}
	return redact(sink), nil
}

// load restores stored scripts and then registers the scripts directory.
func (a *App) load(ctx context.Context) error {
	if a.Store != nil {
		n, err := a.Engine.LoadScripts(ctx, a.Store)
		if err != nil {
			a.logger.Warn("some stored scripts were skipped", "err", err)
		}
		a.logger.Info("scripts restored", "count", n)
	}
	if a.Config.Scripts.Dir == "" {
		return nil
	}
	scripts, err := codec.ReadDir(a.Config.Scripts.Dir)
	if err != nil {
		return err
	}
	if err := a.Engine.RegisterAll(ctx, scripts); err != nil {
		return err
	}
	a.logger.Info("scripts loaded", "dir", a.Config.Scripts.Dir, "count", len(scripts))
	return nil
}

// Run starts the background adapters and blocks until ctx is done or one
// of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if a.Globals != nil {
		g.Go(func() error { return a.Globals.Run(ctx, a.Config.Globals.Redis.Refresh) })
	}
	if a.Scheduler != nil {
		g.Go(func() error { return a.Scheduler.Run(ctx) })
	}
	if a.Source != nil {
		if err := a.Source.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			a.Source.Stop()
			return nil
		})
	}
	if a.Config.Scripts.Dir != "" && a.Config.Scripts.Watch > 0 {
		w := NewWatcher(a.Engine, a.Config.Scripts.Dir, a.logger)
		g.Go(func() error { return w.Run(ctx, a.Config.Scripts.Watch) })
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases every adapter in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnScriptStart: func(ctx context.Context, s *domain.Script, e *domain.Event) {
			logger.Debug("script start", "script", s.ID, "category", e.Category)
		},
		OnScriptFinish: func(ctx context.Context, s *domain.Script, o domain.Outcome) {
			logger.Debug("script finish", "script", s.ID, "status", o.Status(), "duration", o.Duration)
		},
	}
}
