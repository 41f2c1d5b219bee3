package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rohmanhakim/prompt-loader/pkg/fileutil"
	"github.com/rohmanhakim/prompt-loader/pkg/retry"
	"github.com/rohmanhakim/prompt-loader/pkg/timeutil"
	"gopkg.in/yaml.v3"
)

const (
	CacheBackendMemory   = "memory"
	CacheBackendMemcache = "memcache"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvBaseURL         = "PROMPTLOADER_BASE_URL"
	EnvCacheBackend    = "PROMPTLOADER_CACHE_BACKEND"
	EnvMemcacheServers = "PROMPTLOADER_MEMCACHE_SERVERS"
)

type Config struct {
	//===============
	// Template origin
	//===============
	// Origin the templates are fetched from
	baseURL string
	// Path segment joined between baseURL and the template key
	pathPrefix string

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string
	// maximum attempt during retry; 1 means no retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration
	// Randomized variation added on top of each backoff delay
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64

	//===============
	// Cache
	//===============
	// Either "memory" or "memcache"
	cacheBackend string
	// host:port of memcached servers, used when cacheBackend is "memcache"
	memcacheServers []string
	// Namespace for every key this process writes to memcached
	memcacheKeyPrefix string

	//===============
	// Serve
	//===============
	// Directory served under pathPrefix by the serve command
	templatesDir string
	// Address the serve command listens on
	listenAddr string

	//===============
	// Output
	//===============
	// Root directory in which rendered prompts are written
	outputDir string
}

type configDTO struct {
	BaseURL                string        `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	PathPrefix             string        `json:"pathPrefix,omitempty" yaml:"pathPrefix,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty" yaml:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty" yaml:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty" yaml:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty" yaml:"backoffMaxDuration,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`
	CacheBackend           string        `json:"cacheBackend,omitempty" yaml:"cacheBackend,omitempty"`
	MemcacheServers        []string      `json:"memcacheServers,omitempty" yaml:"memcacheServers,omitempty"`
	MemcacheKeyPrefix      string        `json:"memcacheKeyPrefix,omitempty" yaml:"memcacheKeyPrefix,omitempty"`
	TemplatesDir           string        `json:"templatesDir,omitempty" yaml:"templatesDir,omitempty"`
	ListenAddr             string        `json:"listenAddr,omitempty" yaml:"listenAddr,omitempty"`
	OutputDir              string        `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault()

	// Only override if a non-zero value is provided
	if dto.BaseURL != "" {
		cfg.baseURL = dto.BaseURL
	}
	if dto.PathPrefix != "" {
		cfg.pathPrefix = dto.PathPrefix
	}
	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.CacheBackend != "" {
		cfg.cacheBackend = dto.CacheBackend
	}
	if len(dto.MemcacheServers) > 0 {
		cfg.memcacheServers = dto.MemcacheServers
	}
	if dto.MemcacheKeyPrefix != "" {
		cfg.memcacheKeyPrefix = dto.MemcacheKeyPrefix
	}
	if dto.TemplatesDir != "" {
		cfg.templatesDir = dto.TemplatesDir
	}
	if dto.ListenAddr != "" {
		cfg.listenAddr = dto.ListenAddr
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}

	return cfg.Build()
}

// WithConfigFile loads a JSON (.json) or YAML (.yaml, .yml) config file.
// Fields absent from the file keep their defaults. In JSON, durations are
// nanosecond integers; in YAML they may also be strings such as "10s".
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	switch ext := fileutil.GetFileExtension(path); ext {
	case "json":
		err = json.Unmarshal(configContent, &cfgDTO)
	case "yaml", "yml":
		err = yaml.Unmarshal(configContent, &cfgDTO)
	default:
		err = fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		baseURL:                "http://localhost:28888",
		pathPrefix:             "/prompts/",
		timeout:                10 * time.Second,
		userAgent:              "prompt-loader/1.0",
		maxAttempt:             1,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		jitter:                 0,
		randomSeed:             time.Now().UnixNano(),
		cacheBackend:           CacheBackendMemory,
		memcacheServers:        []string{},
		memcacheKeyPrefix:      "promptloader",
		templatesDir:           "prompts",
		listenAddr:             ":28888",
		outputDir:              "output",
	}
	return &defaultConfig
}

// ApplyEnv overrides fields from PROMPTLOADER_* environment variables.
// Unset or empty variables leave the field untouched.
func (c *Config) ApplyEnv() *Config {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.baseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheBackend)); v != "" {
		c.cacheBackend = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMemcacheServers)); v != "" {
		c.memcacheServers = splitList(v)
	}
	return c
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) WithBaseURL(baseURL string) *Config {
	c.baseURL = baseURL
	return c
}

func (c *Config) WithPathPrefix(prefix string) *Config {
	c.pathPrefix = prefix
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithCacheBackend(backend string) *Config {
	c.cacheBackend = backend
	return c
}

func (c *Config) WithMemcacheServers(servers []string) *Config {
	c.memcacheServers = servers
	return c
}

func (c *Config) WithMemcacheKeyPrefix(prefix string) *Config {
	c.memcacheKeyPrefix = prefix
	return c
}

func (c *Config) WithTemplatesDir(dir string) *Config {
	c.templatesDir = dir
	return c
}

func (c *Config) WithListenAddr(addr string) *Config {
	c.listenAddr = addr
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) Build() (Config, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return Config{}, fmt.Errorf("%w: baseUrl %q: %s", ErrInvalidConfig, c.baseURL, err.Error())
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return Config{}, fmt.Errorf("%w: baseUrl %q must be an absolute URL", ErrInvalidConfig, c.baseURL)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.timeout)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1, got %d", ErrInvalidConfig, c.maxAttempt)
	}

	switch c.cacheBackend {
	case CacheBackendMemory:
	case CacheBackendMemcache:
		if len(c.memcacheServers) == 0 {
			return Config{}, fmt.Errorf("%w: cacheBackend %q requires at least one memcache server", ErrInvalidConfig, c.cacheBackend)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown cacheBackend %q", ErrInvalidConfig, c.cacheBackend)
	}

	return *c, nil
}

// BaseURL returns the parsed template origin. Build guarantees it parses.
func (c Config) BaseURL() url.URL {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return url.URL{}
	}
	return *parsed
}

func (c Config) PathPrefix() string {
	return c.pathPrefix
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

// RetryParam assembles the fetch retry policy from the config.
func (c Config) RetryParam() retry.RetryParam {
	return retry.NewRetryParam(
		c.jitter,
		c.randomSeed,
		c.maxAttempt,
		timeutil.NewBackoffParam(
			c.backoffInitialDuration,
			c.backoffMultiplier,
			c.backoffMaxDuration,
		),
	)
}

func (c Config) CacheBackend() string {
	return c.cacheBackend
}

func (c Config) MemcacheServers() []string {
	servers := make([]string, len(c.memcacheServers))
	copy(servers, c.memcacheServers)
	return servers
}

func (c Config) MemcacheKeyPrefix() string {
	return c.memcacheKeyPrefix
}

func (c Config) TemplatesDir() string {
	return c.templatesDir
}

func (c Config) ListenAddr() string {
	return c.listenAddr
}

func (c Config) OutputDir() string {
	return c.outputDir
}
