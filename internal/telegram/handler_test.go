package telegram

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/quiz"
	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
	"github.com/PoluyanbIch/SafetyQuizBot/internal/storage/sqlite"
)

type testBot struct {
	bot    *Bot
	api    *fakeAPI
	engine *quiz.Engine
	store  *sqlite.SQLiteStore
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()

	store, err := sqlite.NewSQLiteStore(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.ImportQuestionBank(context.Background(), service.DefaultQuestionBank()))

	logger := discardLogger()
	api := newFakeAPI()
	channel := NewChannel(api, logger)
	leaderboard := service.NewMemoryLeaderboardService()
	engine := quiz.NewEngine(store, channel, quiz.NewSessions(), leaderboard, quiz.Settings{
		QuestionTimeLimit: time.Hour,
		TickInterval:      time.Hour,
		AnswerDisplayTime: time.Hour,
	}, logger)
	t.Cleanup(func() { engine.Shutdown(context.Background()) })

	return &testBot{
		bot:    NewBot(api, channel, engine, store, leaderboard, logger),
		api:    api,
		engine: engine,
		store:  store,
	}
}

func command(chatID int64, text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID, FirstName: "Ann", LastName: "Lee", UserName: "ann"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func callback(chatID int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID, FirstName: "Ann", LastName: "Lee", UserName: "ann"},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func lastText(t *testing.T, api *fakeAPI) string {
	t.Helper()
	msgs := api.sentMessages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1].Text
}

func lastToast(t *testing.T, api *fakeAPI) string {
	t.Helper()
	answers := api.callbackAnswers()
	require.NotEmpty(t, answers)
	return answers[len(answers)-1].Text
}

func TestStartCommandRemembersUser(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleUpdate(ctx, command(5, "/start"))

	assert.Contains(t, lastText(t, tb.api), "Main menu")
	name, err := tb.store.LoadDisplayName(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", name)
}

func TestCommands(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "/top", want: "No results yet"},
		{text: "/info", want: "<b>10</b> questions"},
		{text: "/quiz", want: "Choose a category"},
		{text: "/nope", want: "Unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			tb := newTestBot(t)
			tb.bot.handleUpdate(context.Background(), command(5, tt.text))
			assert.Contains(t, lastText(t, tb.api), tt.want)
		})
	}
}

func TestQuizFlowThroughCallbacks(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	categories, err := tb.store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)

	tb.bot.handleUpdate(ctx, callback(5, 100, quiz.CategoryData(categories[0].ID)))

	assert.Equal(t, "", lastToast(t, tb.api))
	deletes := tb.api.deletes()
	require.NotEmpty(t, deletes)
	assert.Equal(t, 100, deletes[0].MessageID)
	assert.Contains(t, lastText(t, tb.api), "Question 1/3")

	snap, ok := tb.engine.Snapshot(5)
	require.True(t, ok)
	qid := snap.CurrentQuestionID

	tb.bot.handleUpdate(ctx, callback(5, 101, quiz.AnswerData(qid, 999999)))
	assert.Equal(t, "❌ Answer or question not found", lastToast(t, tb.api))

	tb.bot.handleUpdate(ctx, callback(5, 101, quiz.AnswerData(qid+1000, 1)))
	assert.Equal(t, "⏰ Too late, time is up", lastToast(t, tb.api))

	options, err := tb.store.LoadAnswerOptions(ctx, qid)
	require.NoError(t, err)
	correct, ok := service.CorrectOption(options)
	require.True(t, ok)

	tb.bot.handleUpdate(ctx, callback(5, 101, quiz.AnswerData(qid, correct.ID)))
	assert.Equal(t, "", lastToast(t, tb.api))

	snap, ok = tb.engine.Snapshot(5)
	require.True(t, ok)
	assert.Equal(t, 1, snap.CorrectCount)
	assert.Equal(t, quiz.StateRevealing, snap.State)

	tb.bot.handleUpdate(ctx, callback(5, 101, quiz.MainMenuAction))
	_, ok = tb.engine.Snapshot(5)
	assert.False(t, ok)
	assert.Contains(t, lastText(t, tb.api), "Main menu")
}

func TestInvalidCallback(t *testing.T) {
	tb := newTestBot(t)

	tb.bot.handleUpdate(context.Background(), callback(5, 1, "quiz_answer:oops"))
	assert.Equal(t, "❌ Invalid request format", lastToast(t, tb.api))
}

func TestStartStopsOnCancel(t *testing.T) {
	tb := newTestBot(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		tb.bot.Start(ctx)
		close(done)
	}()

	tb.api.updates <- command(5, "/top")
	require.Eventually(t, func() bool {
		return len(tb.api.sentMessages()) == 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop")
	}
	assert.True(t, tb.api.isStopped())
}

func TestAnswerToast(t *testing.T) {
	assert.Equal(t, "", answerToast(nil))
	assert.Equal(t, "⏰ Too late, time is up", answerToast(quiz.ErrStaleAction))
	assert.Equal(t, "❌ Answer or question not found", answerToast(quiz.ErrAnswerNotFound))
	assert.Equal(t, "❌ Something went wrong", answerToast(errors.New("boom")))
}

func TestLeaderboardView(t *testing.T) {
	view := leaderboardView([]service.LeaderboardEntry{
		{UserID: 1, Username: "ann", Score: 9, Total: 10, Percentage: 90, Date: "01.02.2026"},
		{UserID: 2, DisplayName: "<Bob>", Score: 1, Total: 3, Percentage: 33.3, Date: "01.02.2026"},
	})

	assert.Contains(t, view.Text, "🥇 1. @ann - 90.0% (9/10)")
	assert.Contains(t, view.Text, "🥈 2. &lt;Bob&gt; - 33.3% (1/3)")
}

func TestContinueWithoutQuizShowsNotice(t *testing.T) {
	tb := newTestBot(t)

	tb.bot.handleUpdate(context.Background(), callback(5, 200, quiz.ContinueAction))

	assert.Equal(t, "⏰ This quiz is already over", lastToast(t, tb.api))
	deletes := tb.api.deletes()
	require.Len(t, deletes, 1)
	assert.Equal(t, 200, deletes[0].MessageID)
	assert.Empty(t, tb.api.sentMessages())
}

func TestContinueToast(t *testing.T) {
	assert.Equal(t, "", continueToast(nil))
	assert.Equal(t, "⏰ This quiz is already over", continueToast(quiz.ErrStaleAction))
	assert.Equal(t, "❌ Something went wrong", continueToast(errors.New("boom")))
}
