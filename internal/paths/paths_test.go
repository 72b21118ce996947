package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirs_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	tests := []struct {
		name     string
		env      string
		fn       func() (string, error)
		fallback []string
	}{
		{"config", "XDG_CONFIG_HOME", DefaultConfigDir, []string{".config"}},
		{"data", "XDG_DATA_HOME", DefaultDataDir, []string{".local", "share"}},
		{"cache", "XDG_CACHE_HOME", DefaultCacheDir, []string{".cache"}},
	}
	for _, tt := range tests {
		t.Run(tt.name+" uses XDG variable", func(t *testing.T) {
			t.Setenv(tt.env, "/tmp/xdg")
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, "/tmp/xdg/organizational", got)
		})
		t.Run(tt.name+" falls back to home", func(t *testing.T) {
			t.Setenv(tt.env, "")
			orig := platformDir.homeDir
			platformDir.homeDir = func() (string, error) { return "/home/tester", nil }
			t.Cleanup(func() { platformDir.homeDir = orig })

			got, err := tt.fn()
			require.NoError(t, err)
			want := filepath.Join(append(append([]string{"/home/tester"}, tt.fallback...), AppName)...)
			assert.Equal(t, want, got)
		})
	}
}

func TestDefaultConfigDir_HomeError(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	t.Setenv("XDG_CONFIG_HOME", "")
	orig := platformDir.homeDir
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Cleanup(func() { platformDir.homeDir = orig })

	_, err := DefaultConfigDir()
	assert.Error(t, err)
}

func TestResolveConfigDir(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "/tmp/env-config")
		got, err := ResolveConfigDir("/tmp/flag-config")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/flag-config", got)
	})

	t.Run("env when no flag", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "/tmp/env-config")
		got, err := ResolveConfigDir("")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/env-config", got)
	})

	t.Run("platform default otherwise", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "")
		want, err := DefaultConfigDir()
		require.NoError(t, err)
		got, err := ResolveConfigDir("")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("relative flag becomes absolute", func(t *testing.T) {
		got, err := ResolveConfigDir("rel")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
	})
}

func TestResolveDataDir(t *testing.T) {
	tests := []struct {
		name   string
		flag   string
		config string
		env    string
		want   string
	}{
		{"flag beats everything", "/tmp/flag", "/tmp/config", "/tmp/env", "/tmp/flag"},
		{"config beats env", "", "/tmp/config", "/tmp/env", "/tmp/config"},
		{"env when nothing else", "", "", "/tmp/env", "/tmp/env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			got, err := ResolveDataDir(tt.flag, tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("cwd default", func(t *testing.T) {
		t.Setenv(EnvDataDir, "")
		cwd, err := os.Getwd()
		require.NoError(t, err)
		got, err := ResolveDataDir("", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cwd, DefaultDataDirName), got)
	})
}

func TestResolveCacheDir(t *testing.T) {
	t.Setenv(EnvCacheDir, "/tmp/env-cache")

	got, err := ResolveCacheDir("/tmp/cfg-cache")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cfg-cache", got)

	got, err = ResolveCacheDir("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-cache", got)
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, filepath.Join("/etc/org", "config.yaml"), ConfigFile("/etc/org"))
}
