package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/emofriend/emofriend-backend/internal/ai"
	"github.com/emofriend/emofriend-backend/internal/chat"
	"github.com/emofriend/emofriend-backend/internal/config"
	"github.com/emofriend/emofriend-backend/internal/db"
	"github.com/emofriend/emofriend-backend/internal/logger"
	"github.com/emofriend/emofriend-backend/internal/mood"
)

type jobMsg struct {
	JobID string `json:"job_id"`
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
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
	provider, err := reg.Get(context.Background(), cfg.AIProvider)
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
		log.Warn("redis unreachable, using in-memory mood store", zap.Error(err))
		moods = mood.NewMemoryStore()
	} else {
		moods = mood.NewRedisStore(rdb, cfg.MoodTTL)
	}

	repo := chat.NewRepo(gdb)
	svc := chat.NewService(repo, provider, moods, cfg.ChatHistoryWindow, log)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal("rabbit dial failed", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("rabbit channel failed", zap.Error(err))
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	}); err != nil {
		log.Fatal("queue declare failed", zap.Error(err))
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal("qos failed", zap.Error(err))
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal("consume failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker started",
		zap.String("queue", cfg.RabbitQueue),
		zap.Int("concurrency", concurrency),
	)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m jobMsg
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					log.Warn("bad job message", zap.Int("worker", workerID), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleJob(ctx, log, svc, repo, m.JobID); err != nil {
					log.Warn("job failed",
						zap.Int("worker", workerID),
						zap.String("job_id", m.JobID),
						zap.Duration("cost", time.Since(start)),
						zap.Error(err),
					)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Warn("ack failed", zap.String("job_id", m.JobID), zap.Error(err))
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn("delivery channel closed")
				time.Sleep(time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func handleJob(ctx context.Context, log *zap.Logger, svc *chat.Service, repo *chat.Repo, jobID string) error {
	if err := repo.UpdateJobStatusRunning(ctx, jobID); err != nil {
		log.Warn("job status update failed", zap.String("job_id", jobID), zap.Error(err))
	}

	j, err := repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	reply, err := svc.GenerateReply(ctx, j.UserID, j.SessionID)
	if err != nil {
		if errors.Is(err, chat.ErrSessionDeleted) {
			// Session went away mid-flight; the reply is discarded and the
			// job closed rather than retried.
			return repo.MarkJobFailed(ctx, jobID, err.Error())
		}
		_ = repo.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}

	return repo.MarkJobSucceeded(ctx, jobID, reply.ID)
}
