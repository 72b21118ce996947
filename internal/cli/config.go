package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/organizational/internal/paths"
	"github.com/mesh-intelligence/organizational/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	envPrefix = "ORGANIZATIONAL"
)

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	Backend      string `yaml:"backend"`
	DataDir      string `yaml:"data_dir,omitempty"`
	SyncStrategy string `yaml:"sync_strategy"`
	Cache        struct {
		Backend string `yaml:"backend"`
	} `yaml:"cache"`
	Directory struct {
		Limit int    `yaml:"limit"`
		TTL   string `yaml:"ttl"`
	} `yaml:"directory"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// defaultConfigFile is what init writes when config.yaml is missing.
func defaultConfigFile(dataDir string) configFile {
	var c configFile
	c.Backend = types.BackendSQLite
	c.DataDir = dataDir
	c.SyncStrategy = types.SyncImmediate
	c.Cache.Backend = types.CacheMemory
	c.Directory.Limit = types.DefaultDirectoryLimit
	c.Directory.TTL = types.DefaultDirectoryTTL.String()
	c.Log.Level = "info"
	c.Log.Format = "auto"
	return c
}

// loadConfig reads config.yaml from configDir with viper. Environment
// variables such as ORGANIZATIONAL_BACKEND override file values. A missing
// config.yaml yields the defaults.
func loadConfig(configDir string) (types.Config, error) {
	v := viper.New()
	v.SetDefault("backend", types.BackendSQLite)
	v.SetDefault("sync_strategy", types.SyncImmediate)
	v.SetDefault("cache.backend", types.CacheMemory)
	v.SetDefault("directory.limit", types.DefaultDirectoryLimit)
	v.SetDefault("directory.ttl", types.DefaultDirectoryTTL)
	v.SetDefault("server.addr", types.DefaultServerAddr)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg.WithDefaults(), nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. It reports whether a file was written.
func writeConfigIfMissing(configDir, dataDir string) (bool, error) {
	path := paths.ConfigFile(configDir)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(defaultConfigFile(dataDir))
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	return true, os.WriteFile(path, data, 0o644)
}
