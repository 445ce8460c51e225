package main

import (
	"context"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/emofriend/emofriend-backend/internal/ai"
	"github.com/emofriend/emofriend-backend/internal/chat"
	"github.com/emofriend/emofriend-backend/internal/classify"
	"github.com/emofriend/emofriend-backend/internal/config"
	"github.com/emofriend/emofriend-backend/internal/db"
	"github.com/emofriend/emofriend-backend/internal/httpapi"
	"github.com/emofriend/emofriend-backend/internal/httpapi/handlers"
	"github.com/emofriend/emofriend-backend/internal/logger"
	"github.com/emofriend/emofriend-backend/internal/mood"
	"github.com/emofriend/emofriend-backend/internal/store/rabbitmq"
)

func buildRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()
	reg.Register("openrouter", func(ctx context.Context) (ai.Provider, error) {
		return ai.NewOpenRouterProvider(
			cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel,
			cfg.OpenRouterSiteURL, cfg.OpenRouterAppName,
		), nil
	})
	reg.Register("ollama", func(ctx context.Context) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	})
	return reg
}

func buildClassifier(cfg config.Config, log *zap.Logger) classify.Classifier {
	if cfg.ClassifierMode == "http" {
		return classify.NewHTTPClassifier(cfg.ClassifierURL)
	}
	return classify.NewScriptClassifier(cfg.ClassifierCmd, strings.Fields(cfg.ClassifierArgs), log)
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.New(cfg.Env, cfg.LogFile)
	defer func() { _ = log.Sync() }()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	if err := chat.Migrate(gdb); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	provider, err := buildRegistry(cfg).Get(context.Background(), cfg.AIProvider)
	if err != nil {
		log.Fatal("ai provider init failed", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	var moods mood.Store
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// Mood is a soft signal; degrade to process-local state.
		log.Warn("redis unreachable, using in-memory mood store", zap.Error(err))
		moods = mood.NewMemoryStore()
	} else {
		moods = mood.NewRedisStore(rdb, cfg.MoodTTL)
	}

	svc := chat.NewService(chat.NewRepo(gdb), provider, moods, cfg.ChatHistoryWindow, log)

	var rabbit handlers.JobPublisher
	if pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.Warn("rabbitmq unreachable, async sends disabled", zap.Error(err))
	} else {
		rabbit = pub
		defer pub.Close()
	}

	h := handlers.New(cfg, log, svc, moods, buildClassifier(cfg, log), rabbit)
	r := httpapi.NewRouter(h, log)

	log.Info("api listening",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
