package quiz

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
)

type fakeRepo struct {
	mu         sync.Mutex
	categories []service.Category
	questions  map[int64]service.Question
	options    map[int64][]service.AnswerOption
	missing    map[int64]bool
	names      map[int64]string
	sampleErr  error
}

// newFakeRepo builds category 1 with n questions; question q has options
// q*10+1..q*10+4 and q*10+1 is correct. Category 2 is empty.
func newFakeRepo(n int) *fakeRepo {
	repo := &fakeRepo{
		categories: []service.Category{{ID: 1, Name: "Fire"}, {ID: 2, Name: "Empty"}},
		questions:  make(map[int64]service.Question),
		options:    make(map[int64][]service.AnswerOption),
		missing:    make(map[int64]bool),
		names:      make(map[int64]string),
	}
	for q := int64(1); q <= int64(n); q++ {
		repo.questions[q] = service.Question{ID: q, CategoryID: 1, Text: fmt.Sprintf("Q%d text", q)}
		for o := int64(1); o <= 4; o++ {
			repo.options[q] = append(repo.options[q], service.AnswerOption{
				ID:         q*10 + o,
				QuestionID: q,
				Text:       fmt.Sprintf("option %d", o),
				IsCorrect:  o == 1,
			})
		}
	}
	return repo
}

func correctAnswer(questionID int64) int64 { return questionID*10 + 1 }
func wrongAnswer(questionID int64) int64   { return questionID*10 + 2 }

func (f *fakeRepo) ListCategories(context.Context) ([]service.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categories, nil
}

// SampleQuestions returns questions in id order so tests stay deterministic.
func (f *fakeRepo) SampleQuestions(_ context.Context, categoryID int64, limit int) ([]service.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sampleErr != nil {
		return nil, f.sampleErr
	}

	var out []service.Question
	for _, q := range f.questions {
		if q.CategoryID == categoryID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) LoadQuestion(_ context.Context, questionID int64) (service.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[questionID]
	if !ok || f.missing[questionID] {
		return service.Question{}, service.ErrNotFound
	}
	return q, nil
}

func (f *fakeRepo) LoadAnswerOptions(_ context.Context, questionID int64) ([]service.AnswerOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	options, ok := f.options[questionID]
	if !ok || f.missing[questionID] {
		return nil, service.ErrNotFound
	}
	return options, nil
}

func (f *fakeRepo) LoadDisplayName(_ context.Context, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.names[userID]
	if !ok {
		return "", service.ErrNotFound
	}
	return name, nil
}

type channelCall struct {
	kind   string
	chatID int64
	handle Handle
	view   View
}

type fakeChannel struct {
	mu      sync.Mutex
	nextID  int
	calls   []channelCall
	sendErr func(View) error
}

func (f *fakeChannel) Send(_ context.Context, chatID int64, view View) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		if err := f.sendErr(view); err != nil {
			return Handle{}, err
		}
	}
	f.nextID++
	h := Handle{ChatID: chatID, MessageID: f.nextID, Caption: view.Media != ""}
	f.calls = append(f.calls, channelCall{kind: "send", chatID: chatID, handle: h, view: view})
	return h, nil
}

func (f *fakeChannel) Edit(_ context.Context, handle Handle, view View) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, channelCall{kind: "edit", chatID: handle.ChatID, handle: handle, view: view})
	return nil
}

func (f *fakeChannel) Delete(_ context.Context, handle Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, channelCall{kind: "delete", chatID: handle.ChatID, handle: handle})
	return nil
}

func (f *fakeChannel) snapshot() []channelCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]channelCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// find returns calls of kind whose view text contains substr.
func (f *fakeChannel) find(kind, substr string) []channelCall {
	var out []channelCall
	for _, c := range f.snapshot() {
		if c.kind == kind && strings.Contains(c.view.Text, substr) {
			out = append(out, c)
		}
	}
	return out
}

func testSettings() Settings {
	return Settings{
		MaxQuestions:      10,
		QuestionTimeLimit: time.Hour,
		TickInterval:      time.Hour,
		AnswerDisplayTime: time.Millisecond,
		MaxRenderFailures: 3,
		StrictInvariants:  true,
	}
}

type testEnv struct {
	engine      *Engine
	repo        *fakeRepo
	channel     *fakeChannel
	leaderboard *service.MemoryLeaderboardService
}

func newTestEnv(t *testing.T, repo *fakeRepo, settings Settings) *testEnv {
	t.Helper()

	channel := &fakeChannel{}
	leaderboard := service.NewMemoryLeaderboardService()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(repo, channel, NewSessions(), leaderboard, settings, logger)
	t.Cleanup(func() { engine.Shutdown(context.Background()) })

	return &testEnv{engine: engine, repo: repo, channel: channel, leaderboard: leaderboard}
}

func participant(userID int64) Participant {
	return Participant{UserID: userID, ChatID: userID, Username: fmt.Sprintf("user%d", userID)}
}

func (env *testEnv) snapshot(t *testing.T, userID int64) Snapshot {
	t.Helper()
	snap, ok := env.engine.Snapshot(userID)
	require.True(t, ok, "no session for user %d", userID)
	return snap
}

func (env *testEnv) waitFinished(t *testing.T, userID int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := env.engine.Snapshot(userID)
		return !ok
	}, 2*time.Second, 2*time.Millisecond)
}
