package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/quiz"
	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
)

const (
	startQuizAction   = "start_quiz"
	leaderboardAction = "leaderboard"
	infoAction        = "info"

	leaderboardSize = 10
)

// UserDirectory remembers who talks to the bot.
type UserDirectory interface {
	UpsertUser(ctx context.Context, telegramID int64, fullName, username string) error
}

// Bot routes Telegram updates to the quiz engine and the menus.
type Bot struct {
	api                API
	channel            *Channel
	engine             *quiz.Engine
	users              UserDirectory
	leaderboardService service.LeaderboardService
	logger             *slog.Logger

	wg sync.WaitGroup
}

func NewBot(
	api API,
	channel *Channel,
	engine *quiz.Engine,
	users UserDirectory,
	leaderboardService service.LeaderboardService,
	logger *slog.Logger,
) *Bot {
	return &Bot{
		api:                api,
		channel:            channel,
		engine:             engine,
		users:              users,
		leaderboardService: leaderboardService,
		logger:             logger,
	}
}

// Start polls updates until ctx is done, handling each one in its own
// goroutine, then abandons running quizzes.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("bot is polling updates")

	defer func() {
		b.api.StopReceivingUpdates()
		b.engine.Shutdown(context.Background())
		b.wg.Wait()
		// sessions started by updates that were still in flight
		b.engine.Shutdown(context.Background())
		b.logger.Info("bot stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.rememberUser(ctx, msg.From)
		b.sendMainMenu(ctx, chatID)
	case "quiz":
		b.rememberUser(ctx, msg.From)
		if msg.From != nil {
			_ = b.engine.QuizAbandoned(ctx, msg.From.ID)
		}
		b.showCategories(ctx, chatID)
	case "top":
		b.sendLeaderboard(ctx, chatID)
	case "info":
		b.sendInfo(ctx, chatID)
	default:
		b.sendView(ctx, chatID, quiz.View{Text: "🤷 Unknown command. Use /start to open the menu."})
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || callback.From == nil {
		b.answerCallback(callback.ID, "")
		return
	}

	chatID := callback.Message.Chat.ID
	userID := callback.From.ID
	current := quiz.Handle{ChatID: chatID, MessageID: callback.Message.MessageID}

	switch callback.Data {
	case startQuizAction:
		b.answerCallback(callback.ID, "")
		b.openCategories(ctx, userID, current)
	case quiz.MainMenuAction:
		b.answerCallback(callback.ID, "")
		_ = b.engine.QuizAbandoned(ctx, userID)
		b.deleteMessage(ctx, current)
		b.sendMainMenu(ctx, chatID)
	case leaderboardAction:
		b.answerCallback(callback.ID, "")
		b.sendLeaderboard(ctx, chatID)
	case infoAction:
		b.answerCallback(callback.ID, "")
		b.sendInfo(ctx, chatID)
	default:
		b.handleQuizCallback(ctx, callback, current)
	}
}

func (b *Bot) handleQuizCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, current quiz.Handle) {
	userID := callback.From.ID

	action, err := quiz.ParseAction(callback.Data)
	if err != nil {
		b.logger.Warn("unknown callback", "user_id", userID, "data", callback.Data, "err", err)
		b.answerCallback(callback.ID, "❌ Invalid request format")
		return
	}

	switch action.Kind {
	case quiz.ActionCategories:
		b.answerCallback(callback.ID, "")
		b.openCategories(ctx, userID, current)

	case quiz.ActionCategory:
		// the start notice holds the goroutine, answer before it does
		b.answerCallback(callback.ID, "")
		b.rememberUser(ctx, callback.From)
		b.deleteMessage(ctx, current)
		p := quiz.Participant{UserID: userID, ChatID: current.ChatID, Username: callback.From.UserName}
		err := b.engine.CategoryChosen(ctx, p, action.CategoryID)
		if err != nil && !errors.Is(err, quiz.ErrEmptyPool) && !errors.Is(err, quiz.ErrStaleAction) {
			b.logger.Error("error starting quiz", "user_id", userID, "category_id", action.CategoryID, "err", err)
		}

	case quiz.ActionAnswer:
		err := b.engine.AnswerChosen(ctx, userID, action.QuestionID, action.AnswerID)
		b.answerCallback(callback.ID, answerToast(err))
		if err != nil && !errors.Is(err, quiz.ErrStaleAction) && !errors.Is(err, quiz.ErrAnswerNotFound) {
			b.logger.Error("error handling answer", "user_id", userID, "question_id", action.QuestionID, "err", err)
		}

	case quiz.ActionContinue:
		err := b.engine.ContinueRequested(ctx, userID)
		b.answerCallback(callback.ID, continueToast(err))
		if err != nil && !errors.Is(err, quiz.ErrStaleAction) {
			b.logger.Error("error showing next question", "user_id", userID, "err", err)
		}
		// a button left over from a quiz that is gone
		if _, running := b.engine.Snapshot(userID); err != nil && !running {
			b.deleteMessage(ctx, current)
		}

	default:
		b.answerCallback(callback.ID, "")
	}
}

func answerToast(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, quiz.ErrStaleAction):
		return "⏰ Too late, time is up"
	case errors.Is(err, quiz.ErrAnswerNotFound):
		return "❌ Answer or question not found"
	default:
		return "❌ Something went wrong"
	}
}

func continueToast(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, quiz.ErrStaleAction):
		return "⏰ This quiz is already over"
	default:
		return "❌ Something went wrong"
	}
}

func (b *Bot) openCategories(ctx context.Context, userID int64, current quiz.Handle) {
	_ = b.engine.QuizAbandoned(ctx, userID)
	b.deleteMessage(ctx, current)
	b.showCategories(ctx, current.ChatID)
}

func (b *Bot) showCategories(ctx context.Context, chatID int64) {
	if err := b.engine.ShowCategories(ctx, chatID); err != nil {
		b.logger.Error("error showing categories", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) rememberUser(ctx context.Context, user *tgbotapi.User) {
	if user == nil || b.users == nil {
		return
	}

	fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if err := b.users.UpsertUser(ctx, user.ID, fullName, user.UserName); err != nil {
		b.logger.Warn("error saving user", "user_id", user.ID, "err", err)
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Debug("error answering callback", "err", err)
	}
}

func (b *Bot) deleteMessage(ctx context.Context, handle quiz.Handle) {
	if err := b.channel.Delete(ctx, handle); err != nil {
		b.logger.Debug("error deleting message", "chat_id", handle.ChatID, "err", err)
	}
}

func (b *Bot) sendView(ctx context.Context, chatID int64, view quiz.View) {
	if _, err := b.channel.Send(ctx, chatID, view); err != nil {
		b.logger.Warn("error sending message", "chat_id", chatID, "err", err)
	}
}

func mainMenuView() quiz.View {
	return quiz.View{
		Text: "📋 <b>Main menu</b>",
		Buttons: [][]quiz.Button{
			{
				{Text: "🦺 Safety quiz", Data: startQuizAction},
				{Text: "🏆 Leaderboard", Data: leaderboardAction},
			},
			{{Text: "ℹ️ How it works", Data: infoAction}},
		},
	}
}

func (b *Bot) sendMainMenu(ctx context.Context, chatID int64) {
	b.sendView(ctx, chatID, mainMenuView())
}

func leaderboardView(top []service.LeaderboardEntry) quiz.View {
	buttons := [][]quiz.Button{{
		{Text: "🎯 Start quiz", Data: startQuizAction},
		{Text: "📋 Main menu", Data: quiz.MainMenuAction},
	}}

	if len(top) == 0 {
		return quiz.View{
			Text:    "🏆 <b>Leaderboard</b>\n\nNo results yet. Be the first! 🎯",
			Buttons: buttons,
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 <b>Top %d players</b>\n\n", leaderboardSize)

	for i, entry := range top {
		name := entry.DisplayName
		if entry.Username != "" {
			name = "@" + entry.Username
		}

		medal := "🔸"
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}

		fmt.Fprintf(&sb, "%s %d. %s - %.1f%% (%d/%d)\n   📅 %s\n\n",
			medal, i+1, html.EscapeString(name), entry.Percentage, entry.Score, entry.Total, entry.Date)
	}

	return quiz.View{Text: sb.String(), Buttons: buttons}
}

func (b *Bot) sendLeaderboard(ctx context.Context, chatID int64) {
	b.sendView(ctx, chatID, leaderboardView(b.leaderboardService.GetTop(ctx, leaderboardSize)))
}

func infoView(settings quiz.Settings) quiz.View {
	text := fmt.Sprintf("🦺 <b>Safety quiz</b>\n\n"+
		"📚 Pick a category and answer up to <b>%d</b> questions.\n"+
		"⏱ Every question has <b>%d seconds</b>; the message shows the time left.\n"+
		"✅ After each answer you see the correct option, then press <i>Next question</i>.\n"+
		"🏆 Your best result goes to the leaderboard, /top shows it.\n\n"+
		"Commands: /start, /quiz, /top, /info",
		settings.MaxQuestions, int(settings.QuestionTimeLimit.Seconds()))

	return quiz.View{
		Text:    text,
		Buttons: [][]quiz.Button{{{Text: "🔙 Back", Data: quiz.MainMenuAction}}},
	}
}

func (b *Bot) sendInfo(ctx context.Context, chatID int64) {
	b.sendView(ctx, chatID, infoView(b.engine.Settings()))
}
