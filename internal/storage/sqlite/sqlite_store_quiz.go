package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
)

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]service.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []service.Category
	for rows.Next() {
		var category service.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// SampleQuestions returns up to limit distinct questions of a category,
// sampled uniformly.
func (s *SQLiteStore) SampleQuestions(ctx context.Context, categoryID int64, limit int) ([]service.Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM questions WHERE category_id = ?`, categoryID)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sampled := service.SampleQuestionIDs(ids, limit)
	questions := make([]service.Question, 0, len(sampled))
	for _, id := range sampled {
		question, err := s.LoadQuestion(ctx, id)
		if errors.Is(err, service.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, nil
}

func (s *SQLiteStore) LoadQuestion(ctx context.Context, questionID int64) (service.Question, error) {
	var question service.Question
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, category_id, text, media FROM questions WHERE id = ?`,
		questionID,
	).Scan(&question.ID, &question.CategoryID, &question.Text, &question.Media)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return service.Question{}, fmt.Errorf("question %d: %w", questionID, service.ErrNotFound)
		}
		return service.Question{}, err
	}
	return question, nil
}

func (s *SQLiteStore) LoadAnswerOptions(ctx context.Context, questionID int64) ([]service.AnswerOption, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, question_id, text, is_correct FROM answers WHERE question_id = ? ORDER BY id`,
		questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []service.AnswerOption
	for rows.Next() {
		var option service.AnswerOption
		if err := rows.Scan(&option.ID, &option.QuestionID, &option.Text, &option.IsCorrect); err != nil {
			return nil, err
		}
		options = append(options, option)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("answers of question %d: %w", questionID, service.ErrNotFound)
	}
	return options, nil
}

func (s *SQLiteStore) DeleteQuestion(ctx context.Context, questionID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, questionID)
	return err
}

// ImportQuestionBank stores every category of the bank in one transaction.
func (s *SQLiteStore) ImportQuestionBank(ctx context.Context, bank []service.BankCategory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, category := range bank {
		res, err := tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, category.Name)
		if err != nil {
			return err
		}
		categoryID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, question := range category.Questions {
			res, err := tx.ExecContext(
				ctx,
				`INSERT INTO questions (category_id, text, media) VALUES (?, ?, ?)`,
				categoryID, question.Text, question.Media,
			)
			if err != nil {
				return err
			}
			questionID, err := res.LastInsertId()
			if err != nil {
				return err
			}

			for _, option := range question.Options {
				if _, err := tx.ExecContext(
					ctx,
					`INSERT INTO answers (question_id, text, is_correct) VALUES (?, ?, ?)`,
					questionID, option.Text, option.IsCorrect,
				); err != nil {
					return err
				}
			}
		}
	}

	return tx.Commit()
}

// CreateCategory adds an empty category and returns its id.
func (s *SQLiteStore) CreateCategory(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
