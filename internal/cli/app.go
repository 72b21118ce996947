package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organizational/internal/cache"
	"github.com/mesh-intelligence/organizational/internal/logging"
	"github.com/mesh-intelligence/organizational/internal/memstore"
	"github.com/mesh-intelligence/organizational/internal/metrics"
	"github.com/mesh-intelligence/organizational/internal/paths"
	"github.com/mesh-intelligence/organizational/pkg/organizational"
	"github.com/mesh-intelligence/organizational/pkg/sqlite"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

// contentStore is what the CLI needs from a backend.
type contentStore interface {
	types.ContentStore
	types.OptionStore
}

// app is an opened service with everything it holds.
type app struct {
	cfg     types.Config
	log     zerolog.Logger
	reg     *prometheus.Registry
	svc     *organizational.Service
	closers []func() error
}

// openApp loads the configuration, attaches the configured backend, opens
// the object cache and builds the service. The caller must Close it.
func openApp(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	configDir, err := flags.resolveConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if cfg.DataDir, err = flags.resolveDataDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	regOpts, err := cfg.RegistryOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	registry, err := types.NewRegistry(regOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	a := &app{cfg: cfg, log: log, reg: prometheus.NewRegistry()}
	m, err := metrics.New(a.reg)
	if err != nil {
		return nil, err
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	objCache, err := a.openCache()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.svc = organizational.New(store, objCache, registry, organizational.Options{
		OptionStore:    store,
		BaseURL:        cfg.BaseURL,
		DirectoryLimit: cfg.Directory.Limit,
		DirectoryTTL:   cfg.Directory.TTL,
		Logger:         log,
		Metrics:        m,
	})
	if _, err := a.svc.Upgrade(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore() (contentStore, error) {
	if a.cfg.Backend == types.BackendMemory {
		a.log.Warn().Msg("memory backend: nothing is persisted")
		return memstore.New(), nil
	}
	store, err := sqlite.Open(a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Detach)
	return store, nil
}

func (a *app) openCache() (*cache.Badger, error) {
	cc := cache.Config{InMemory: true, Logger: &a.log}
	if a.cfg.Cache.Backend == types.CacheBadger {
		dir, err := paths.ResolveCacheDir(a.cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve cache dir: %w", err)
		}
		cc = cache.Config{Path: dir, Logger: &a.log}
	}
	c, err := cache.Open(cc)
	if err != nil {
		return nil, fmt.Errorf("open object cache: %w", err)
	}
	a.closers = append(a.closers, c.Close)
	return c, nil
}

// Close releases the cache and detaches the backend, newest first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp opens the app, runs fn and closes the app.
func withApp(cmd *cobra.Command, flags *rootFlags, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, flags)
	if err != nil {
		return err
	}
	runErr := fn(cmd.Context(), a)
	if err := a.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close: %w", err)
	}
	return runErr
}
