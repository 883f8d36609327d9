package quiz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Callback data understood by the quiz layer.
const (
	CategoriesAction = "quiz_categories"
	ContinueAction   = "quiz_next"
	NoopAction       = "quiz_noop"
	MainMenuAction   = "main_menu"

	categoryActionPrefix = "quiz_category:"
	answerActionPrefix   = "quiz_answer:"
)

// ErrInvalidAction means callback data could not be decoded.
var ErrInvalidAction = errors.New("invalid action")

// ActionKind tells which button was pressed.
type ActionKind int

const (
	ActionCategory ActionKind = iota + 1
	ActionAnswer
	ActionContinue
	ActionCategories
	ActionNoop
)

// Action is decoded callback data.
type Action struct {
	Kind       ActionKind
	CategoryID int64
	QuestionID int64
	AnswerID   int64
}

// CategoryData encodes a category choice.
func CategoryData(categoryID int64) string {
	return categoryActionPrefix + strconv.FormatInt(categoryID, 10)
}

// AnswerData encodes an answer to a specific question.
func AnswerData(questionID, answerID int64) string {
	return fmt.Sprintf("%s%d:%d", answerActionPrefix, questionID, answerID)
}

// ParseAction decodes callback data produced by the quiz views.
func ParseAction(data string) (Action, error) {
	switch {
	case data == ContinueAction:
		return Action{Kind: ActionContinue}, nil
	case data == CategoriesAction:
		return Action{Kind: ActionCategories}, nil
	case data == NoopAction:
		return Action{Kind: ActionNoop}, nil
	case strings.HasPrefix(data, categoryActionPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, categoryActionPrefix), 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("%w %q: %v", ErrInvalidAction, data, err)
		}
		return Action{Kind: ActionCategory, CategoryID: id}, nil
	case strings.HasPrefix(data, answerActionPrefix):
		parts := strings.Split(strings.TrimPrefix(data, answerActionPrefix), ":")
		if len(parts) != 2 {
			return Action{}, fmt.Errorf("%w %q", ErrInvalidAction, data)
		}
		questionID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("%w %q: %v", ErrInvalidAction, data, err)
		}
		answerID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("%w %q: %v", ErrInvalidAction, data, err)
		}
		return Action{Kind: ActionAnswer, QuestionID: questionID, AnswerID: answerID}, nil
	default:
		return Action{}, fmt.Errorf("%w %q", ErrInvalidAction, data)
	}
}
