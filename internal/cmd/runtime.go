package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/chatcore/internal/accounts"
	"github.com/Iron-Ham/chatcore/internal/bridge"
	"github.com/Iron-Ham/chatcore/internal/config"
	"github.com/Iron-Ham/chatcore/internal/engine/sim"
	"github.com/Iron-Ham/chatcore/internal/errors"
	"github.com/Iron-Ham/chatcore/internal/event"
	"github.com/Iron-Ham/chatcore/internal/eventlog"
	"github.com/Iron-Ham/chatcore/internal/i18n"
	"github.com/Iron-Ham/chatcore/internal/logging"
)

// runtime is everything a command needs to talk to the engine. Commands
// that only inspect state skip the bridge; commands that watch events or
// run long operations start it.
type runtime struct {
	cfg      *config.Config
	logger   *logging.Logger
	mgr      *accounts.Manager
	bus      *event.Bus
	bridge   *bridge.Bridge
	recorder *eventlog.Recorder
}

// engineOptions lets tests speed up the simulated engine.
var engineOptions []sim.Option

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.NewConfigError("invalid configuration", err).WithPath(viper.ConfigFileUsed())
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWithRotation(cfg.LogDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
}

func newTranslator(cfg *config.Config) (*i18n.Translator, error) {
	bundle, err := i18n.NewBundle()
	if err != nil {
		return nil, err
	}
	if cfg.I18n.CatalogDir != "" {
		if err := bundle.LoadDir(cfg.I18n.CatalogDir); err != nil {
			return nil, err
		}
	}
	return bundle.NewTranslator(i18n.Preferences(cfg.I18n.Language)), nil
}

func openRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	translator, err := newTranslator(cfg)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to load string catalogs: %w", err)
	}

	opts := []accounts.Option{
		accounts.WithLogger(logger),
		accounts.WithTranslator(translator),
	}
	if cfg.Engine.ReadOnly {
		opts = append(opts, accounts.WithReadOnly())
	}
	mgr, err := accounts.Open(sim.New(engineOptions...), cfg.AccountsDir(), opts...)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		mgr:    mgr,
		bus:    event.NewBus(event.WithLogger(logger)),
	}, nil
}

// startBridge starts translating engine events onto rt.bus, recording them
// when bridge.record_path is set.
func (rt *runtime) startBridge(ctx context.Context) error {
	opts := []bridge.Option{
		bridge.WithLogger(rt.logger),
		bridge.WithQueueSize(rt.cfg.Bridge.QueueSize),
		bridge.WithStringResponder(rt.mgr),
	}
	if path := rt.cfg.ResolveRecordPath(); path != "" {
		rec, err := eventlog.Create(path, eventlog.WithLogger(rt.logger))
		if err != nil {
			return err
		}
		rt.recorder = rec
		opts = append(opts, bridge.WithRecorder(rec))
	}
	rt.bridge = bridge.New(rt.mgr.EventEmitter(), rt.bus, opts...)
	return rt.bridge.Start(ctx)
}

// watchConfig applies log level changes from the config file while a
// long-running command is active.
func (rt *runtime) watchConfig() {
	config.Watch(config.Watcher{
		OnChange: func(c *config.Config) {
			if c.Logging.Level != rt.cfg.Logging.Level {
				rt.logger.SetLevel(c.Logging.Level)
				rt.logger.Info("log level changed", "level", c.Logging.Level)
				rt.cfg.Logging.Level = c.Logging.Level
			}
		},
		OnError: func(err error) {
			rt.logger.Warn("config reload rejected", "error", err)
		},
	})
}

// Close tears down the account set, then waits for the bridge to drain the
// events queued until then and close the event source.
func (rt *runtime) Close() error {
	errs := []error{rt.mgr.Close()}
	if rt.bridge != nil {
		rt.bridge.Wait()
	}
	if rt.recorder != nil {
		errs = append(errs, rt.recorder.Close())
	}
	errs = append(errs, rt.logger.Close())
	return errors.Join(errs...)
}
