package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/quiz"
)

const (
	EnvLocal      = "local"
	EnvProduction = "production"
	EnvTest       = "test"
)

var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")

type Config struct {
	Env           string
	Token         string
	Debug         bool
	DatabasePath  string
	QuestionsFile string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Quiz quiz.Settings

	// Warnings lists values that were invalid and replaced by defaults.
	Warnings error
}

// Load reads the configuration from the environment. A missing token is
// fatal; any other invalid value keeps its default and is reported in
// Warnings.
func Load() (*Config, error) {
	cfg := &Config{
		Env:           getEnv("ENV", EnvLocal),
		Token:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabasePath:  getEnv("DATABASE_PATH", "quiz.db"),
		QuestionsFile: getEnv("QUESTIONS_FILE", "questions.txt"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		Quiz:          quiz.DefaultSettings(),
	}
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}

	var warnings []error
	warn := func(err error) {
		if err != nil {
			warnings = append(warnings, err)
		}
	}

	cfg.Debug = parseBool("BOT_DEBUG", false, warn)
	cfg.RedisDB = parseInt("REDIS_DB", 0, warn)
	cfg.Quiz.MaxQuestions = parseInt("MAX_QUESTIONS", cfg.Quiz.MaxQuestions, warn)
	cfg.Quiz.QuestionTimeLimit = parseDuration("QUESTION_TIME_LIMIT", cfg.Quiz.QuestionTimeLimit, warn)
	cfg.Quiz.TickInterval = parseDuration("TIMER_UPDATE_INTERVAL", cfg.Quiz.TickInterval, warn)
	cfg.Quiz.AnswerDisplayTime = parseDuration("ANSWER_DISPLAY_TIME", cfg.Quiz.AnswerDisplayTime, warn)
	cfg.Quiz.StartDelay = parseDuration("TEST_START_DELAY", cfg.Quiz.StartDelay, warn)
	cfg.Quiz.StrictInvariants = cfg.Env == EnvLocal

	if cfg.Quiz.MaxQuestions <= 0 {
		warn(fmt.Errorf("MAX_QUESTIONS must be positive, got %d", cfg.Quiz.MaxQuestions))
		cfg.Quiz.MaxQuestions = quiz.DefaultSettings().MaxQuestions
	}
	if cfg.Quiz.QuestionTimeLimit <= 0 {
		warn(fmt.Errorf("QUESTION_TIME_LIMIT must be positive, got %s", cfg.Quiz.QuestionTimeLimit))
		cfg.Quiz.QuestionTimeLimit = quiz.DefaultSettings().QuestionTimeLimit
	}
	if cfg.Quiz.TickInterval <= 0 {
		warn(fmt.Errorf("TIMER_UPDATE_INTERVAL must be positive, got %s", cfg.Quiz.TickInterval))
		cfg.Quiz.TickInterval = quiz.DefaultSettings().TickInterval
	}

	cfg.Warnings = errors.Join(warnings...)
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func parseInt(key string, fallback int, warn func(error)) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		warn(fmt.Errorf("%s: invalid integer %q, using %d", key, raw, fallback))
		return fallback
	}
	return v
}

func parseBool(key string, fallback bool, warn func(error)) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		warn(fmt.Errorf("%s: invalid boolean %q, using %t", key, raw, fallback))
		return fallback
	}
	return v
}

// parseDuration accepts a Go duration ("90s", "1m30s") or bare seconds.
func parseDuration(key string, fallback time.Duration, warn func(error)) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		warn(fmt.Errorf("%s: invalid duration %q, using %s", key, raw, fallback))
		return fallback
	}
	return v
}
