package service

import "errors"

// ErrNotFound is returned by repositories when a category, question,
// answer list or user is missing.
var ErrNotFound = errors.New("not found")

type Category struct {
	ID   int64
	Name string
}

type Question struct {
	ID         int64
	CategoryID int64
	Text       string
	Media      string // Telegram file id, empty for text-only questions
}

type AnswerOption struct {
	ID         int64
	QuestionID int64
	Text       string
	IsCorrect  bool
}

// BankQuestion is a question together with its options, as read from a
// question bank file before it gets persisted.
type BankQuestion struct {
	Text    string
	Media   string
	Options []AnswerOption
}

type BankCategory struct {
	Name      string
	Questions []BankQuestion
}

// CorrectOption returns the first option flagged correct.
func CorrectOption(options []AnswerOption) (AnswerOption, bool) {
	for _, option := range options {
		if option.IsCorrect {
			return option, true
		}
	}
	return AnswerOption{}, false
}

// FindOption looks an option up by id.
func FindOption(options []AnswerOption, answerID int64) (AnswerOption, bool) {
	for _, option := range options {
		if option.ID == answerID {
			return option, true
		}
	}
	return AnswerOption{}, false
}
