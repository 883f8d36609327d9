package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/quiz"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Channel renders quiz views as Telegram messages.
type Channel struct {
	api    API
	logger *slog.Logger
}

func NewChannel(api API, logger *slog.Logger) *Channel {
	return &Channel{api: api, logger: logger}
}

func (c *Channel) Send(ctx context.Context, chatID int64, view quiz.View) (quiz.Handle, error) {
	if err := ctx.Err(); err != nil {
		return quiz.Handle{}, err
	}

	var msg tgbotapi.Chattable
	if view.Media != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(view.Media))
		photo.Caption = view.Text
		photo.ParseMode = tgbotapi.ModeHTML
		if kb := keyboard(view.Buttons); kb != nil {
			photo.ReplyMarkup = *kb
		}
		msg = photo
	} else {
		text := tgbotapi.NewMessage(chatID, view.Text)
		text.ParseMode = tgbotapi.ModeHTML
		text.DisableWebPagePreview = true
		if kb := keyboard(view.Buttons); kb != nil {
			text.ReplyMarkup = *kb
		}
		msg = text
	}

	sent, err := c.api.Send(msg)
	if err != nil {
		return quiz.Handle{}, fmt.Errorf("send to chat %d: %w", chatID, err)
	}

	return quiz.Handle{ChatID: chatID, MessageID: sent.MessageID, Caption: view.Media != ""}, nil
}

func (c *Channel) Edit(ctx context.Context, handle quiz.Handle, view quiz.View) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var edit tgbotapi.Chattable
	if handle.Caption {
		cfg := tgbotapi.NewEditMessageCaption(handle.ChatID, handle.MessageID, view.Text)
		cfg.ParseMode = tgbotapi.ModeHTML
		cfg.ReplyMarkup = keyboard(view.Buttons)
		edit = cfg
	} else {
		cfg := tgbotapi.NewEditMessageText(handle.ChatID, handle.MessageID, view.Text)
		cfg.ParseMode = tgbotapi.ModeHTML
		cfg.DisableWebPagePreview = true
		cfg.ReplyMarkup = keyboard(view.Buttons)
		edit = cfg
	}

	if _, err := c.api.Request(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return fmt.Errorf("edit message %d in chat %d: %w", handle.MessageID, handle.ChatID, err)
	}
	return nil
}

func (c *Channel) Delete(ctx context.Context, handle quiz.Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(handle.ChatID, handle.MessageID)); err != nil {
		return fmt.Errorf("delete message %d in chat %d: %w", handle.MessageID, handle.ChatID, err)
	}
	return nil
}

// isNotModified reports Telegram refusing an edit that changes nothing.
func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

func keyboard(rows [][]quiz.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.Share != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonSwitch(b.Text, b.Share))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &kb
}
