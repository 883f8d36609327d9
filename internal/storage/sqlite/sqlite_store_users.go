package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
)

func (s *SQLiteStore) UpsertUser(ctx context.Context, telegramID int64, fullName, username string) error {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		fullName = username
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (telegram_id, full_name, username, updated_at_unix) VALUES (?, ?, ?, ?)
		 ON CONFLICT(telegram_id) DO UPDATE SET
			full_name = excluded.full_name,
			username = excluded.username,
			updated_at_unix = excluded.updated_at_unix`,
		telegramID, fullName, username, time.Now().UTC().Unix(),
	)
	return err
}

func (s *SQLiteStore) LoadDisplayName(ctx context.Context, telegramID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT full_name FROM users WHERE telegram_id = ?`,
		telegramID,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("user %d: %w", telegramID, service.ErrNotFound)
		}
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("user %d has no name: %w", telegramID, service.ErrNotFound)
	}
	return name, nil
}
