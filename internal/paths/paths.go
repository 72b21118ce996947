// Package paths resolves the configuration, data and cache directories
// used by orgctl.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "organizational"

// CWD-relative data directory used when nothing else is configured.
const DefaultDataDirName = ".organizational"

// ConfigFileName is the file read from the configuration directory.
const ConfigFileName = "config.yaml"

// Environment variables that override directory locations.
const (
	EnvConfigDir = "ORGANIZATIONAL_CONFIG_DIR"
	EnvDataDir   = "ORGANIZATIONAL_DATA_DIR"
	EnvCacheDir  = "ORGANIZATIONAL_CACHE_DIR"
)

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	userCacheDir  func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	userCacheDir:  os.UserCacheDir,
}

// xdgDir returns $env/organizational, or home/fallback.../organizational
// when env is unset.
func xdgDir(env string, fallback ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return filepath.Join(v, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, AppName)...), nil
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/organizational (fallback ~/.config/organizational)
// macOS:   ~/Library/Application Support/organizational
// Windows: %APPDATA%/organizational
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultDataDir returns the platform data directory. On macOS and Windows
// it is the configuration directory.
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", ".local", "share")
	}
	return DefaultConfigDir()
}

// DefaultCacheDir returns the platform cache directory, used for the
// persistent object cache.
func DefaultCacheDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CACHE_HOME", ".cache")
	}
	dir, err := platformDir.userCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir applies flag > ORGANIZATIONAL_CONFIG_DIR > platform
// default.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config.yaml data_dir >
// ORGANIZATIONAL_DATA_DIR > $(CWD)/.organizational.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveCacheDir applies config.yaml cache.path > ORGANIZATIONAL_CACHE_DIR
// > platform default.
func ResolveCacheDir(configValue string) (string, error) {
	for _, v := range []string{configValue, os.Getenv(EnvCacheDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	return DefaultCacheDir()
}

// ConfigFile returns the config.yaml path inside dir.
func ConfigFile(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}
