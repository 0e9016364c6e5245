package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"hospital-ai-desk/internal/cache"
	"hospital-ai-desk/internal/config"
	"hospital-ai-desk/internal/core"
	"hospital-ai-desk/internal/db"
	httpserver "hospital-ai-desk/internal/http"
	"hospital-ai-desk/internal/llm"
	"hospital-ai-desk/internal/logger"
	"hospital-ai-desk/internal/records"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	lg, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "hospital-ai-desk")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []core.GatewayOption{core.WithTimeout(cfg.LLM.Timeout), core.WithLogger(lg)}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		annotations := cache.NewAnnotationCache(cache.NewRedisKVStore(redisClient), cfg.Redis.TTL, lg)
		opts = append(opts, core.WithAnnotationCache(annotations))
		lg.Info("annotation cache enabled", zap.String("addr", cfg.Redis.Addr))
	}
	gateway := core.NewGateway(newLLMClient(cfg), opts...)

	kinds := []records.Kind{records.KindLab, records.KindRadiology}
	initial := make(map[records.Kind][]records.Record, len(kinds))

	var repo *db.Repository
	var notifier *db.Notifier
	var changes <-chan db.Change
	if cfg.DatabaseURL != "" {
		dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			lg.Fatal("failed to open database", zap.Error(err))
		}
		defer dbConn.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = dbConn.PingContext(pingCtx)
		cancel()
		if err != nil {
			lg.Fatal("failed to ping database", zap.Error(err))
		}
		if err := db.Migrate(ctx, dbConn); err != nil {
			lg.Fatal("failed to run migrations", zap.Error(err))
		}
		repo = db.NewRepository(dbConn)
		notifier = db.NewNotifier(dbConn, cfg.NotifyChannel)
		for _, k := range kinds {
			recs, err := repo.LoadRecords(ctx, k)
			if err != nil {
				lg.Fatal("failed to load records", zap.String("kind", string(k)), zap.Error(err))
			}
			initial[k] = recs
		}
		changes, err = db.Listen(ctx, cfg.DatabaseURL, cfg.NotifyChannel, lg)
		if err != nil {
			lg.Warn("record change listener unavailable", zap.Error(err))
		}
	} else {
		lg.Warn("DATABASE_URL not set, records are kept in memory only")
	}

	lists := make([]*records.ListController, 0, len(kinds))
	mirrors := make(map[records.Kind]db.Mirror, len(kinds))
	for _, k := range kinds {
		list := records.NewListController(k, initial[k], gateway, lg)
		if repo != nil {
			list.Subscribe(persist(repo, notifier, lg))
		}
		lists = append(lists, list)
		mirrors[k] = list
	}
	if changes != nil {
		go repo.Follow(ctx, changes, mirrors, lg)
	}

	api := httpserver.NewServer(gateway, lists, cfg.MaxImageBytes, lg)
	go api.RunChatJanitor(ctx, time.Minute, cfg.ChatIdleTimeout)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	lg.Info("listening", zap.String("addr", srv.Addr), zap.String("llm_provider", cfg.LLM.Provider))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("server error", zap.Error(err))
	}
}

func newLLMClient(cfg *config.Config) llm.Client {
	if cfg.LLM.Provider == "gemini" {
		return llm.NewGeminiClient(llm.GeminiConfig{
			APIKey:  cfg.LLM.Gemini.APIKey,
			BaseURL: cfg.LLM.Gemini.BaseURL,
			Model:   cfg.LLM.Gemini.Model,
		})
	}
	return llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:      cfg.LLM.OpenAI.APIKey,
		BaseURL:     cfg.LLM.OpenAI.BaseURL,
		ChatModel:   cfg.LLM.OpenAI.ChatModel,
		VisionModel: cfg.LLM.OpenAI.VisionModel,
	})
}

// persist mirrors list changes to postgres and announces them. Failures are
// logged; the in-memory list stays authoritative.
func persist(repo *db.Repository, notifier *db.Notifier, lg *zap.Logger) func(records.Event) {
	return func(ev records.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fields := []zap.Field{
			zap.String("kind", string(ev.Kind)),
			zap.String("event", string(ev.Type)),
			zap.String("record_id", ev.Record.ID),
		}
		if err := repo.Apply(ctx, ev); err != nil {
			lg.Error("failed to persist record", append(fields, zap.Error(err))...)
			return
		}
		if err := notifier.Notify(ctx, ev); err != nil {
			lg.Warn("failed to notify record change", append(fields, zap.Error(err))...)
		}
	}
}
