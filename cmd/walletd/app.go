package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creastat/wallet/config"
	"github.com/creastat/wallet/kv"
	"github.com/creastat/wallet/provider"
	"github.com/creastat/wallet/session"
	"github.com/creastat/wallet/supabase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// dialTimeout bounds the wallet bridge handshake, not wallet requests.
const dialTimeout = 10 * time.Second

// app bundles the wired components for one command run.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	store    kv.Store
	provider provider.Provider
	manager  *session.Manager
}

// bindFlags registers the flags shared by every session command. Flags
// override the environment.
func bindFlags(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVar(&cfg.ProviderURL, "provider", cfg.ProviderURL, "wallet bridge WebSocket URL (empty: no wallet)")
	cmd.Flags().StringVar((*string)(&cfg.Store), "store", string(cfg.Store), "session store: memory, file, redis or supabase")
	cmd.Flags().StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "file store path")
	cmd.Flags().StringVar(&cfg.KeyPrefix, "key-prefix", cfg.KeyPrefix, "prefix for session storage keys")
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	p, err := openProvider(ctx, cfg, log)
	if err != nil {
		// An unreachable wallet is treated like a missing one.
		log.Warn("wallet bridge unavailable", "url", cfg.ProviderURL, "error", err)
		p = nil
	}
	if p == nil {
		log.Info("no wallet provider, sessions stay disconnected")
	}

	opts := []session.Option{
		session.WithLogger(log),
		session.WithKeys(session.PrefixedKeys(cfg.KeyPrefix)),
	}
	if reg != nil {
		opts = append(opts, session.WithMetrics(session.NewMetrics(reg)))
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		provider: p,
		manager:  session.New(p, store, opts...),
	}, nil
}

// Close tears everything down in reverse order of construction.
func (a *app) Close() {
	if err := a.manager.Close(); err != nil {
		a.log.Warn("failed to close session manager", "error", err)
	}
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.log.Warn("failed to close wallet provider", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("failed to close store", "error", err)
	}
}

func openStore(cfg config.Config) (kv.Store, error) {
	switch cfg.Store {
	case config.StoreTypeSupabase:
		return supabase.New(supabase.Config{
			URL:    cfg.SupabaseURL,
			APIKey: cfg.SupabaseKey,
			Table:  cfg.SupabaseTable,
		})

	case kv.StoreTypeRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return kv.NewStore(kv.StoreTypeRedis,
			kv.WithRedisClient(redis.NewClient(opt)),
			kv.WithRedisTTL(cfg.RedisTTL),
		)

	case kv.StoreTypeFile:
		return kv.NewStore(kv.StoreTypeFile, kv.WithFilePath(cfg.FileStorePath()))

	default:
		return kv.NewStore(cfg.Store)
	}
}

func openProvider(ctx context.Context, cfg config.Config, log *slog.Logger) (provider.Provider, error) {
	if cfg.ProviderURL == "" {
		return nil, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	p, err := provider.Dial(dialCtx, cfg.ProviderURL, provider.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return p, nil
}
