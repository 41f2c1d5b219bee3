package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/prompt-loader/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestWithDefault(t *testing.T) {
	cfg, err := config.WithDefault().Build()
	require.NoError(t, err)

	baseURL := cfg.BaseURL()
	assert.Equal(t, "http://localhost:28888", baseURL.String())
	assert.Equal(t, "/prompts/", cfg.PathPrefix())
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, "prompt-loader/1.0", cfg.UserAgent())
	assert.Equal(t, 1, cfg.MaxAttempt())
	assert.Equal(t, 100*time.Millisecond, cfg.BackoffInitialDuration())
	assert.Equal(t, 2.0, cfg.BackoffMultiplier())
	assert.Equal(t, 10*time.Second, cfg.BackoffMaxDuration())
	assert.Equal(t, time.Duration(0), cfg.Jitter())
	assert.NotZero(t, cfg.RandomSeed())
	assert.Equal(t, config.CacheBackendMemory, cfg.CacheBackend())
	assert.Empty(t, cfg.MemcacheServers())
	assert.Equal(t, "promptloader", cfg.MemcacheKeyPrefix())
	assert.Equal(t, "prompts", cfg.TemplatesDir())
	assert.Equal(t, ":28888", cfg.ListenAddr())
	assert.Equal(t, "output", cfg.OutputDir())
}

func TestBuilderOverrides(t *testing.T) {
	cfg, err := config.WithDefault().
		WithBaseURL("https://cdn.example.com/app").
		WithPathPrefix("/templates/").
		WithTimeout(3 * time.Second).
		WithUserAgent("custom/2.0").
		WithMaxAttempt(4).
		WithBackoffInitialDuration(50 * time.Millisecond).
		WithBackoffMultiplier(3.0).
		WithBackoffMaxDuration(time.Second).
		WithJitter(20 * time.Millisecond).
		WithRandomSeed(7).
		WithCacheBackend(config.CacheBackendMemcache).
		WithMemcacheServers([]string{"10.0.0.1:11211"}).
		WithMemcacheKeyPrefix("app").
		WithTemplatesDir("tpl").
		WithListenAddr("127.0.0.1:9000").
		WithOutputDir("out").
		Build()
	require.NoError(t, err)

	baseURL := cfg.BaseURL()
	assert.Equal(t, "cdn.example.com", baseURL.Host)
	assert.Equal(t, "/templates/", cfg.PathPrefix())
	assert.Equal(t, 3*time.Second, cfg.Timeout())
	assert.Equal(t, "custom/2.0", cfg.UserAgent())
	assert.Equal(t, 4, cfg.MaxAttempt())
	assert.Equal(t, config.CacheBackendMemcache, cfg.CacheBackend())
	assert.Equal(t, []string{"10.0.0.1:11211"}, cfg.MemcacheServers())
	assert.Equal(t, "app", cfg.MemcacheKeyPrefix())
	assert.Equal(t, "tpl", cfg.TemplatesDir())
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr())
	assert.Equal(t, "out", cfg.OutputDir())

	retryParam := cfg.RetryParam()
	assert.Equal(t, 4, retryParam.MaxAttempts)
	assert.Equal(t, int64(7), retryParam.RandomSeed)
	assert.Equal(t, 20*time.Millisecond, retryParam.Jitter)
	assert.Equal(t, 50*time.Millisecond, retryParam.BackoffParam.InitialDuration())
	assert.Equal(t, 3.0, retryParam.BackoffParam.Multiplier())
	assert.Equal(t, time.Second, retryParam.BackoffParam.MaxDuration())
}

func TestMemcacheServersIsACopy(t *testing.T) {
	cfg, err := config.WithDefault().
		WithCacheBackend(config.CacheBackendMemcache).
		WithMemcacheServers([]string{"a:11211"}).
		Build()
	require.NoError(t, err)

	servers := cfg.MemcacheServers()
	servers[0] = "mutated"

	assert.Equal(t, []string{"a:11211"}, cfg.MemcacheServers())
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func() *config.Config
	}{
		{"relative base url", func() *config.Config { return config.WithDefault().WithBaseURL("/prompts") }},
		{"unparsable base url", func() *config.Config { return config.WithDefault().WithBaseURL("http://[::1") }},
		{"zero timeout", func() *config.Config { return config.WithDefault().WithTimeout(0) }},
		{"negative timeout", func() *config.Config { return config.WithDefault().WithTimeout(-time.Second) }},
		{"zero max attempt", func() *config.Config { return config.WithDefault().WithMaxAttempt(0) }},
		{"unknown backend", func() *config.Config { return config.WithDefault().WithCacheBackend("redis") }},
		{"memcache without servers", func() *config.Config {
			return config.WithDefault().WithCacheBackend(config.CacheBackendMemcache)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestWithConfigFile_JSON(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"baseUrl": "https://prompts.example.com",
		"timeout": 2000000000,
		"maxAttempt": 3,
		"cacheBackend": "memcache",
		"memcacheServers": ["127.0.0.1:11211"],
		"outputDir": "rendered"
	}`)

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	baseURL := cfg.BaseURL()
	assert.Equal(t, "https://prompts.example.com", baseURL.String())
	assert.Equal(t, 2*time.Second, cfg.Timeout())
	assert.Equal(t, 3, cfg.MaxAttempt())
	assert.Equal(t, config.CacheBackendMemcache, cfg.CacheBackend())
	assert.Equal(t, []string{"127.0.0.1:11211"}, cfg.MemcacheServers())
	assert.Equal(t, "rendered", cfg.OutputDir())
	// untouched fields keep defaults
	assert.Equal(t, "/prompts/", cfg.PathPrefix())
	assert.Equal(t, "prompt-loader/1.0", cfg.UserAgent())
}

func TestWithConfigFile_YAML(t *testing.T) {
	path := writeConfigFile(t, "config.yaml", `
baseUrl: http://templates.internal:8080
pathPrefix: /static/prompts/
timeout: 1500ms
backoffInitialDuration: 250ms
templatesDir: ./assets/prompts
listenAddr: 0.0.0.0:8080
`)

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	baseURL := cfg.BaseURL()
	assert.Equal(t, "templates.internal:8080", baseURL.Host)
	assert.Equal(t, "/static/prompts/", cfg.PathPrefix())
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout())
	assert.Equal(t, 250*time.Millisecond, cfg.BackoffInitialDuration())
	assert.Equal(t, "./assets/prompts", cfg.TemplatesDir())
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
}

func TestWithConfigFile_YMLExtension(t *testing.T) {
	path := writeConfigFile(t, "config.YML", "userAgent: yml-agent/1.0\n")

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "yml-agent/1.0", cfg.UserAgent())
}

func TestWithConfigFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "nope.json"))
		assert.True(t, errors.Is(err, config.ErrFileDoesNotExist))
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeConfigFile(t, "bad.json", `{"baseUrl": `)
		_, err := config.WithConfigFile(path)
		assert.True(t, errors.Is(err, config.ErrConfigParsingFail))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "bad.yaml", "baseUrl: [unclosed\n")
		_, err := config.WithConfigFile(path)
		assert.True(t, errors.Is(err, config.ErrConfigParsingFail))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeConfigFile(t, "config.toml", `baseUrl = "http://x"`)
		_, err := config.WithConfigFile(path)
		assert.True(t, errors.Is(err, config.ErrConfigParsingFail))
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfigFile(t, "config.json", `{"cacheBackend": "redis"}`)
		_, err := config.WithConfigFile(path)
		assert.True(t, errors.Is(err, config.ErrInvalidConfig))
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "https://env.example.com")
	t.Setenv(config.EnvCacheBackend, "memcache")
	t.Setenv(config.EnvMemcacheServers, " a:11211, ,b:11211 ")

	cfg, err := config.WithDefault().ApplyEnv().Build()
	require.NoError(t, err)

	baseURL := cfg.BaseURL()
	assert.Equal(t, "https://env.example.com", baseURL.String())
	assert.Equal(t, config.CacheBackendMemcache, cfg.CacheBackend())
	assert.Equal(t, []string{"a:11211", "b:11211"}, cfg.MemcacheServers())
}

func TestApplyEnv_UnsetKeepsValues(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvCacheBackend, "")
	t.Setenv(config.EnvMemcacheServers, "")

	cfg, err := config.WithDefault().WithBaseURL("http://kept:1").ApplyEnv().Build()
	require.NoError(t, err)

	baseURL := cfg.BaseURL()
	assert.Equal(t, "http://kept:1", baseURL.String())
	assert.Equal(t, config.CacheBackendMemory, cfg.CacheBackend())
}
