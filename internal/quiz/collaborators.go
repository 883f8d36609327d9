package quiz

import (
	"context"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
)

// Repository is the read side of the question storage.
type Repository interface {
	ListCategories(ctx context.Context) ([]service.Category, error)
	// SampleQuestions returns at most limit distinct questions of a category.
	SampleQuestions(ctx context.Context, categoryID int64, limit int) ([]service.Question, error)
	LoadQuestion(ctx context.Context, questionID int64) (service.Question, error)
	LoadAnswerOptions(ctx context.Context, questionID int64) ([]service.AnswerOption, error)
	LoadDisplayName(ctx context.Context, userID int64) (string, error)
}

// Handle points at a message delivered through a Channel.
type Handle struct {
	ChatID    int64
	MessageID int
	Caption   bool // the message is media with a caption
}

type Button struct {
	Text string
	Data string
	// Share, when set, makes the button offer the text for sharing
	// instead of sending Data back.
	Share string
}

type View struct {
	Text    string
	Media   string
	Buttons [][]Button
}

// Channel delivers views to a chat. Every failure is advisory to the engine.
type Channel interface {
	Send(ctx context.Context, chatID int64, view View) (Handle, error)
	Edit(ctx context.Context, handle Handle, view View) error
	Delete(ctx context.Context, handle Handle) error
}
