package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds backend selection, cache, directory, server and logging
// parameters. It is read from config.yaml by the CLI.
type Config struct {
	Backend      string                 `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir      string                 `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	SyncStrategy string                 `json:"sync_strategy" yaml:"sync_strategy" mapstructure:"sync_strategy"`
	BaseURL      string                 `json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Types        []string               `json:"types" yaml:"types" mapstructure:"types"`
	Names        map[string]Names       `json:"names" yaml:"names" mapstructure:"names"`
	Fabricated   []FabricatedSlotConfig `json:"fabricated" yaml:"fabricated" mapstructure:"fabricated" validate:"dive"`
	Cache        CacheConfig            `json:"cache" yaml:"cache" mapstructure:"cache"`
	Directory    DirectoryConfig        `json:"directory" yaml:"directory" mapstructure:"directory"`
	Server       ServerConfig           `json:"server" yaml:"server" mapstructure:"server"`
	Log          LogConfig              `json:"log" yaml:"log" mapstructure:"log"`
}

// FabricatedSlotConfig is the config.yaml form of FabricatedSlot.
type FabricatedSlotConfig struct {
	Name   string   `json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Base   string   `json:"base" yaml:"base" mapstructure:"base" validate:"required"`
	Owners []string `json:"owners" yaml:"owners" mapstructure:"owners"`
}

// CacheConfig selects the object cache backend. An empty Path with the
// badger backend keeps the cache in memory.
type CacheConfig struct {
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=memory badger"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// DirectoryConfig bounds object directory builds.
type DirectoryConfig struct {
	Limit int           `json:"limit" yaml:"limit" mapstructure:"limit" validate:"gte=0"`
	TTL   time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `json:"addr" yaml:"addr" mapstructure:"addr"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json console auto"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Sync strategies for the SQLite backend.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheBadger = "badger"
)

// Defaults applied by WithDefaults.
const (
	DefaultDirectoryLimit = 1000
	DefaultDirectoryTTL   = 2 * time.Hour
	DefaultServerAddr     = "127.0.0.1:8080"
)

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrSyncStrategyUnknown = errors.New("unknown sync strategy")
	ErrInvalidConfig       = errors.New("invalid config")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendMemory: true,
}

var validate = validator.New()

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.SyncStrategy {
	case "", SyncImmediate, SyncOnClose:
	default:
		return ErrSyncStrategyUnknown
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WithDefaults returns a copy of c with zero directory and server fields
// filled in.
func (c Config) WithDefaults() Config {
	if c.Directory.Limit == 0 {
		c.Directory.Limit = DefaultDirectoryLimit
	}
	if c.Directory.TTL == 0 {
		c.Directory.TTL = DefaultDirectoryTTL
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	return c
}

// RegistryOptions converts the type, name and fabricated slot settings
// into options for NewRegistry.
func (c Config) RegistryOptions() (RegistryOptions, error) {
	var opts RegistryOptions
	for _, name := range c.Types {
		t, err := ParseType(name)
		if err != nil {
			return opts, err
		}
		opts.Enabled = append(opts.Enabled, t)
	}
	if len(c.Names) > 0 {
		opts.Names = make(map[ObjectType]Names, len(c.Names))
		for name, n := range c.Names {
			t, err := ParseType(name)
			if err != nil {
				return opts, err
			}
			opts.Names[t] = n
		}
	}
	for _, f := range c.Fabricated {
		base, err := ParseType(f.Base)
		if err != nil {
			return opts, fmt.Errorf("fabricated slot %q: %w", f.Name, err)
		}
		slot := FabricatedSlot{Name: f.Name, Base: base}
		for _, o := range f.Owners {
			owner, err := ParseType(o)
			if err != nil {
				return opts, fmt.Errorf("fabricated slot %q: %w", f.Name, err)
			}
			slot.Owners = append(slot.Owners, owner)
		}
		opts.Fabricated = append(opts.Fabricated, slot)
	}
	return opts, nil
}
