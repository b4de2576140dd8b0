package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"PharmaStore/internal/assist"
	"PharmaStore/internal/catalog"
	"PharmaStore/internal/config"
	"PharmaStore/internal/ordering"
	"PharmaStore/pkg/kit"
)

const service = "pharmacy"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := kit.NewLogger(service, cfg.Development)
	defer func() { _ = log.Sync() }()

	store, err := buildStore(cfg, log)
	if err != nil {
		log.Fatal("store init failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	n, err := catalog.LoadFile(ctx, store, cfg.CatalogPath)
	cancel()
	if err != nil {
		log.Warn("catalog load failed, starting empty", zap.Error(err), zap.String("path", cfg.CatalogPath))
	} else {
		log.Info("catalog loaded", zap.Int("products", n), zap.String("path", cfg.CatalogPath))
	}

	cache := catalog.NewCache(store, cfg.CacheTTL)

	engine := &ordering.Engine{Store: store, Cache: cache, Log: log}
	facade := &ordering.Facade{
		Validator: &ordering.Validator{Store: store},
		Engine:    engine,
		Log:       log,
	}

	s := &ordering.Server{
		Facade:      facade,
		Store:       store,
		Cache:       cache,
		CatalogPath: cfg.CatalogPath,
		Log:         log,
	}

	h := ordering.NewHandler(s, ordering.HTTPDeps{
		Log:               log,
		Service:           service,
		Registry:          prometheus.NewRegistry(),
		MetricsEnabled:    cfg.MetricsEnabled,
		MetricsToken:      cfg.MetricsToken,
		OrderLimitPerMin:  cfg.OrderLimitPerMin,
		Assist:            buildAssist(cfg, log),
		AssistLimitPerMin: cfg.AssistLimitPerMin,
	})

	if err := kit.RunHTTPServer(cfg.Addr, h, cfg.ShutdownTimeout, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func buildStore(cfg config.Config, log *zap.Logger) (catalog.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory product store")
		return catalog.NewMemStore(), nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetConnMaxIdleTime(5 * time.Minute)

	log.Info("using postgres product store")
	return catalog.NewPostgresStore(db), nil
}

func buildAssist(cfg config.Config, log *zap.Logger) http.Handler {
	if cfg.AssistURL == "" {
		log.Info("assistant disabled: no upstream configured")
		return nil
	}

	var transcripts assist.TranscriptStore = assist.NewMemTranscripts()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("bad redis url", zap.Error(err))
		}
		transcripts = assist.NewRedisTranscripts(redis.NewClient(opts))
		log.Info("assistant transcripts in redis")
	}

	s := &assist.Server{
		Client:      assist.NewClient(cfg.AssistURL, cfg.AssistAPIKey, cfg.AssistModel, cfg.AssistTimeout),
		Transcripts: transcripts,
		Log:         log,
	}
	return s.Routes()
}
