package cmd

import (
	"github.com/rohmanhakim/prompt-loader/internal/config"
	"github.com/rohmanhakim/prompt-loader/internal/fetcher"
	"github.com/rohmanhakim/prompt-loader/internal/metadata"
	"github.com/rohmanhakim/prompt-loader/internal/promptstore"
	"github.com/rohmanhakim/prompt-loader/internal/promptstore/cache"
)

// newStore is the composition root shared by every command.
func newStore(cfg config.Config, sink metadata.MetadataSink) *promptstore.Store {
	textFetcher := fetcher.NewTextFetcher(
		sink,
		cfg.BaseURL(),
		cfg.PathPrefix(),
		cfg.UserAgent(),
		cfg.Timeout(),
	)
	return promptstore.New(
		textFetcher,
		newCache(cfg),
		sink,
		promptstore.WithRetryParam(cfg.RetryParam()),
	)
}

func newCache(cfg config.Config) cache.Cache {
	switch cfg.CacheBackend() {
	case config.CacheBackendMemcache:
		return cache.NewMemcacheCacheFromServers(cfg.MemcacheServers(), cfg.MemcacheKeyPrefix())
	default:
		return cache.NewMemoryCache()
	}
}
