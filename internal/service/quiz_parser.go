package service

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// MaxOptions is the number of answer options a question can be rendered with.
const MaxOptions = 4

// ParseQuestionBank reads a question bank file:
//
//	# Category name
//	? Question text | optional media file id
//	+ correct option
//	- wrong option
func ParseQuestionBank(filename string) ([]BankCategory, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadQuestionBank(file)
}

func ReadQuestionBank(r io.Reader) ([]BankCategory, error) {
	var (
		categories []BankCategory
		category   *BankCategory
		question   *BankQuestion
		startLine  int
	)

	flushQuestion := func() error {
		if question == nil {
			return nil
		}
		if err := validateQuestion(*question); err != nil {
			return fmt.Errorf("question at line %d: %w", startLine, err)
		}
		category.Questions = append(category.Questions, *question)
		question = nil
		return nil
	}
	flushCategory := func() error {
		if err := flushQuestion(); err != nil {
			return err
		}
		if category != nil {
			categories = append(categories, *category)
			category = nil
		}
		return nil
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		marker, rest := line[0], strings.TrimSpace(line[1:])
		switch marker {
		case '#':
			if err := flushCategory(); err != nil {
				return nil, err
			}
			if rest == "" {
				return nil, fmt.Errorf("line %d: category name cannot be empty", lineNo)
			}
			category = &BankCategory{Name: rest}
		case '?':
			if category == nil {
				return nil, fmt.Errorf("line %d: question outside of a category", lineNo)
			}
			if err := flushQuestion(); err != nil {
				return nil, err
			}
			text, media := parseQuestionLine(rest)
			if utf8.RuneCountInString(text) == 0 {
				return nil, fmt.Errorf("line %d: question cannot be empty", lineNo)
			}
			question = &BankQuestion{Text: text, Media: media}
			startLine = lineNo
		case '+', '-':
			if question == nil {
				return nil, fmt.Errorf("line %d: option without a question", lineNo)
			}
			if rest == "" {
				return nil, fmt.Errorf("line %d: option cannot be empty", lineNo)
			}
			question.Options = append(question.Options, AnswerOption{
				Text:      rest,
				IsCorrect: marker == '+',
			})
		default:
			return nil, fmt.Errorf("line %d: unknown marker %q", lineNo, marker)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	if err := flushCategory(); err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("no valid categories found in file")
	}

	return categories, nil
}

// parseQuestionLine splits "text | media" into its parts.
func parseQuestionLine(line string) (string, string) {
	text, media, found := strings.Cut(line, "|")
	if !found {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(text), strings.TrimSpace(media)
}

func validateQuestion(q BankQuestion) error {
	if len(q.Options) == 0 || len(q.Options) > MaxOptions {
		return fmt.Errorf("must have 1..%d options, got %d", MaxOptions, len(q.Options))
	}

	correct := 0
	for _, option := range q.Options {
		if option.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("must have exactly one correct option, got %d", correct)
	}
	return nil
}

// LoadQuestionBank loads the bank from file or returns the default one on error.
func LoadQuestionBank(filename string, logger *slog.Logger) []BankCategory {
	categories, err := ParseQuestionBank(filename)
	if err != nil {
		logger.Warn("failed to load question bank, using default questions",
			"file", filename, "err", err)
		return DefaultQuestionBank()
	}

	logger.Info("question bank loaded", "file", filename, "categories", len(categories))
	return categories
}

// DefaultQuestionBank returns the built-in questions.
func DefaultQuestionBank() []BankCategory {
	return []BankCategory{
		{
			Name: "General safety",
			Questions: []BankQuestion{
				{
					Text: "What is the first thing to do when you discover a fire?",
					Options: []AnswerOption{
						{Text: "Raise the alarm", IsCorrect: true},
						{Text: "Finish your current task"},
						{Text: "Open all windows"},
						{Text: "Use the elevator"},
					},
				},
				{
					Text: "Which colour are mandatory-action safety signs?",
					Options: []AnswerOption{
						{Text: "Red"},
						{Text: "Blue", IsCorrect: true},
						{Text: "Green"},
						{Text: "Yellow"},
					},
				},
				{
					Text: "Personal protective equipment must be checked",
					Options: []AnswerOption{
						{Text: "Once a year"},
						{Text: "Only after an accident"},
						{Text: "Before every use", IsCorrect: true},
					},
				},
			},
		},
	}
}
