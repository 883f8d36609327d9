package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/config"
	"github.com/PoluyanbIch/SafetyQuizBot/internal/quiz"
	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
	"github.com/PoluyanbIch/SafetyQuizBot/internal/storage/sqlite"
	"github.com/PoluyanbIch/SafetyQuizBot/internal/telegram"
)

func main() {
	if env := os.Getenv("ENV"); env != config.EnvProduction && env != config.EnvTest {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Error loading .env: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := setupLogger(cfg.Env)
	if cfg.Warnings != nil {
		logger.Warn("invalid configuration values replaced by defaults", "err", cfg.Warnings)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer store.Close()

	if err := seedQuestions(ctx, store, cfg.QuestionsFile, logger); err != nil {
		log.Fatalf("Error importing questions: %v", err)
	}

	// Redis when REDIS_ADDR is set, memory otherwise
	leaderboardService := service.NewLeaderboardService(service.LeaderboardOptions{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	}, logger)
	if rs, ok := leaderboardService.(*service.RedisLeaderboardService); ok {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Fatalf("Error connecting to redis: %v", err)
		}
		defer rs.Close()
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		log.Fatal(err)
	}
	api.Debug = cfg.Debug
	logger.Info("authorised on account", "username", api.Self.UserName)

	channel := telegram.NewChannel(api, logger)
	engine := quiz.NewEngine(store, channel, quiz.NewSessions(), leaderboardService, cfg.Quiz, logger)
	bot := telegram.NewBot(api, channel, engine, store, leaderboardService, logger)

	logger.Info("🤖 Bot is starting...", "env", cfg.Env)
	bot.Start(ctx)
}

// seedQuestions imports the question bank into an empty database.
func seedQuestions(ctx context.Context, store *sqlite.SQLiteStore, questionsFile string, logger *slog.Logger) error {
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(categories) > 0 {
		return nil
	}

	bank := service.LoadQuestionBank(questionsFile, logger)
	if err := store.ImportQuestionBank(ctx, bank); err != nil {
		return err
	}
	logger.Info("question bank imported", "categories", len(bank))
	return nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvProduction:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case config.EnvTest:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
