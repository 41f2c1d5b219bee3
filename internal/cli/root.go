package cmd

import (
	"flag"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/rohmanhakim/prompt-loader/internal/build"
	"github.com/rohmanhakim/prompt-loader/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile         string
	baseURL         string
	cacheBackend    string
	memcacheServers []string
	timeout         time.Duration
	maxAttempt      int

	// render
	renderVars      []string
	renderVarsFile  string
	renderOutputDir string
	renderWrite     bool
	renderStrict    bool

	// serve
	listenAddr   string
	templatesDir string
)

// envFiles are loaded in order; a variable already set is never overwritten,
// so earlier files and the real environment take precedence.
var envFiles = []string{".env.local", ".env"}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "promptloader",
		Short: "Load, cache and render prompt templates.",
		Long: `promptloader fetches prompt templates over HTTP, caches their raw text
and renders {{placeholder}} tokens from a context of values.

Use "render" for one-off rendering from the command line and "serve" to
host a templates directory together with a render and cache API.`,
		Version:       build.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadEnvFiles()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path, JSON or YAML (e.g., ./promptloader.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "origin templates are fetched from (default http://localhost:28888)")
	rootCmd.PersistentFlags().StringVar(&cacheBackend, "cache-backend", "", "template cache: memory or memcache")
	rootCmd.PersistentFlags().StringArrayVar(&memcacheServers, "memcache-server", []string{}, "memcached host:port (can be repeated)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for a single template request")
	rootCmd.PersistentFlags().IntVar(&maxAttempt, "max-attempt", 0, "attempts per template fetch, retrying 5xx and network failures")
	// glog verbosity and destinations (-v, -logtostderr, ...)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	lipgloss.SetHasDarkBackground(true)

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCacheCmd())

	return rootCmd
}

func loadEnvFiles() {
	for _, path := range envFiles {
		// A missing file is not an error worth reporting.
		_ = godotenv.Load(path)
	}
}

// InitConfigWithError resolves configuration in increasing precedence:
// defaults, config file, PROMPTLOADER_* environment, command-line flags.
func InitConfigWithError() (config.Config, error) {
	configBuilder := config.WithDefault()

	if cfgFile != "" {
		fileCfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		configBuilder = &fileCfg
	}

	configBuilder = configBuilder.ApplyEnv()

	if baseURL != "" {
		configBuilder = configBuilder.WithBaseURL(baseURL)
	}
	if cacheBackend != "" {
		configBuilder = configBuilder.WithCacheBackend(cacheBackend)
	}
	if len(memcacheServers) > 0 {
		configBuilder = configBuilder.WithMemcacheServers(memcacheServers)
	}
	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}
	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}
	if renderOutputDir != "" {
		configBuilder = configBuilder.WithOutputDir(renderOutputDir)
	}
	if listenAddr != "" {
		configBuilder = configBuilder.WithListenAddr(listenAddr)
	}
	if templatesDir != "" {
		configBuilder = configBuilder.WithTemplatesDir(templatesDir)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	baseURL = ""
	cacheBackend = ""
	memcacheServers = []string{}
	timeout = 0
	maxAttempt = 0
	renderVars = []string{}
	renderVarsFile = ""
	renderOutputDir = ""
	renderWrite = false
	renderStrict = false
	listenAddr = ""
	templatesDir = ""
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetBaseURLForTest(url string) {
	baseURL = url
}

func SetCacheBackendForTest(backend string) {
	cacheBackend = backend
}

func SetMemcacheServersForTest(servers []string) {
	memcacheServers = servers
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetMaxAttemptForTest(attempts int) {
	maxAttempt = attempts
}

func SetOutputDirForTest(dir string) {
	renderOutputDir = dir
}

func SetListenAddrForTest(addr string) {
	listenAddr = addr
}

func SetTemplatesDirForTest(dir string) {
	templatesDir = dir
}

func SetEnvFilesForTest(paths []string) {
	envFiles = paths
}
