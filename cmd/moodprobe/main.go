package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/emofriend/emofriend-backend/internal/classify"
	"github.com/emofriend/emofriend-backend/internal/config"
	"github.com/emofriend/emofriend-backend/internal/logger"
	"github.com/emofriend/emofriend-backend/internal/mood"
)

// fileFrameSource reads the latest capture frame from a fixed path. An
// external grabber overwrites the file; a missing or empty file means no
// frame this tick.
type fileFrameSource struct {
	path string
}

func (f *fileFrameSource) NextFrame(context.Context) ([]byte, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("empty capture file")
	}
	return b, nil
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.New(cfg.Env, cfg.LogFile)
	defer func() { _ = log.Sync() }()

	userID := os.Getenv("MOOD_USER_ID")
	if userID == "" {
		log.Fatal("MOOD_USER_ID is required")
	}
	framePath := os.Getenv("MOOD_FRAME_PATH")
	if framePath == "" {
		framePath = "capture/latest.jpg"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis unreachable", zap.Error(err))
	}
	store := mood.NewRedisStore(rdb, cfg.MoodTTL)

	var classifier classify.Classifier
	if cfg.ClassifierMode == "http" {
		classifier = classify.NewHTTPClassifier(cfg.ClassifierURL)
	} else {
		classifier = classify.NewScriptClassifier(cfg.ClassifierCmd, strings.Fields(cfg.ClassifierArgs), log)
	}

	sampler := mood.NewSampler(&fileFrameSource{path: framePath}, classifier, store, userID, cfg.MoodSampleInterval, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sampler.Start(ctx)
	log.Info("mood probe running",
		zap.String("user_id", userID),
		zap.String("frame_path", framePath),
		zap.Duration("interval", cfg.MoodSampleInterval),
	)

	<-ctx.Done()
	sampler.Stop()
	log.Info("mood probe stopped")
}
