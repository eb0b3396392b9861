package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/kataras/golog"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"geoaval/config"
	"geoaval/geo"
	"geoaval/log"
	"geoaval/research"
	"geoaval/store"
	"geoaval/store/memory"
	"geoaval/store/postgres"
	"geoaval/store/redis"
	"geoaval/store/sqlite"
	"geoaval/tool"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "geoaval",
		Short:         "Evaluate how generative engines cite a brand",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newAnalyzeCmd(&configPath))
	return root
}

func loadConfig(path string) (config.Config, error) {
	return config.Load(path)
}

func setupLogger(cfg config.Config) log.Logger {
	gl := golog.New()
	logger := log.NewGologLogger(gl)
	logger.SetLevel(parseLogLevel(cfg.LogLevel))
	log.SetDefaultLogger(logger)
	return logger
}

func parseLogLevel(s string) log.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return log.LogLevelDebug
	case "warn":
		return log.LogLevelWarn
	case "error":
		return log.LogLevelError
	case "none":
		return log.LogLevelNone
	default:
		return log.LogLevelInfo
	}
}

// buildStore selects the session store backend from configuration. The
// returned close func is a no-op for backends without a connection to
// release.
func buildStore(ctx context.Context, cfg config.Config) (store.SessionStore, func() error, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return memory.NewMemorySessionStore(), func() error { return nil }, nil
	case config.StoreRedis:
		s := redis.NewRedisSessionStore(redis.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			TTL:      cfg.Store.RedisTTL,
		})
		return s, s.Close, nil
	case config.StoreSQLite:
		s, err := sqlite.NewSQLiteSessionStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := postgres.NewPostgresSessionStore(ctx, postgres.PostgresOptions{
			ConnString: cfg.Store.PostgresConnString,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres store: %w", err)
		}
		if err := s.InitSchema(ctx); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("init postgres schema: %w", err)
		}
		return s, func() error { s.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildRunner wires the model capability, the optional search tool and
// the session store into a pipeline runner.
func buildRunner(cfg config.Config, sessions store.SessionStore, logger log.Logger, city string) (*geo.Runner, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set GEO_AVAL_API_KEY or OPENAI_API_KEY)")
	}

	capOpts := []research.OpenAIOption{research.WithLogger(logger)}
	if cfg.OpenAI.Model != "" {
		capOpts = append(capOpts, research.WithModel(cfg.OpenAI.Model))
	}
	if cfg.OpenAI.BaseURL != "" {
		cc := openai.DefaultConfig(cfg.OpenAI.APIKey)
		cc.BaseURL = cfg.OpenAI.BaseURL
		capOpts = append(capOpts, research.WithClient(openai.NewClientWithConfig(cc)))
	}
	capability := research.NewOpenAICapability(cfg.OpenAI.APIKey, capOpts...)

	var searcher tool.Searcher
	if cfg.Brave.APIKey != "" {
		braveOpts := []tool.BraveOption{}
		if cfg.Brave.Country != "" {
			braveOpts = append(braveOpts, tool.WithBraveCountry(cfg.Brave.Country))
		}
		if cfg.Brave.Lang != "" {
			braveOpts = append(braveOpts, tool.WithBraveLang(cfg.Brave.Lang))
		}
		if city != "" {
			braveOpts = append(braveOpts, tool.WithBraveCity(city))
		}
		brave, err := tool.NewBraveSearch(cfg.Brave.APIKey, braveOpts...)
		if err != nil {
			return nil, fmt.Errorf("configure brave search: %w", err)
		}
		searcher = brave
	} else {
		logger.Warn("no Brave API key configured, running without web search")
	}

	return geo.NewRunner(capability, searcher, sessions,
		geo.WithLogger(logger),
		geo.WithConfig(geo.Config{
			MaxKeywords:       cfg.Pipeline.MaxKeywords,
			RefineTopK:        cfg.Pipeline.RefineTopK,
			EnableRefine:      cfg.Pipeline.EnableRefine,
			GatherConcurrency: cfg.Pipeline.GatherConcurrency,
			CallTimeout:       cfg.Pipeline.CallTimeout,
		}),
	)
}
