package quiz

import (
	"context"
	"errors"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
)

// Report is the outcome of a finished attempt.
type Report struct {
	UserID     int64
	Name       string
	Correct    int
	Total      int
	Percentage float64
	Grade      service.Grade
	Shareable  bool
	NewBest    bool
	Position   int
}

// NewReport scores an attempt. The share offer needs 70% or more.
func NewReport(userID int64, name string, correct, total int) Report {
	percentage := service.Percentage(correct, total)
	return Report{
		UserID:     userID,
		Name:       name,
		Correct:    correct,
		Total:      total,
		Percentage: percentage,
		Grade:      service.GradeFor(percentage),
		Shareable:  percentage >= service.MinSharePercentage,
	}
}

// finalize scores the attempt, shows the summary and destroys the session.
func (e *Engine) finalize(s *Session) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStaleAction
	}
	s.closed = true
	s.state = StateFinished
	s.accepting.Store(false)
	e.checkInvariants(s)
	timer := s.timer
	s.timer = nil
	correct, total := s.correct, len(s.questionIDs)
	messages := s.messages
	s.messages = nil
	s.mu.Unlock()

	if timer != nil {
		timer.Cancel()
	}
	e.sessions.Remove(s)
	defer s.cancel()

	ctx := context.WithoutCancel(s.ctx)
	p := s.Participant

	report := NewReport(p.UserID, e.displayName(ctx, p.UserID), correct, total)
	if e.leaderboard != nil && total > 0 {
		entry := service.NewEntry(p.UserID, p.Username, report.Name, correct, total)
		if e.leaderboard.AddEntry(ctx, entry) {
			report.NewBest = true
			report.Position, _ = e.leaderboard.GetUserPosition(ctx, p.UserID)
		}
	}

	for _, handle := range messages {
		if err := e.channel.Delete(ctx, handle); err != nil {
			e.logger.Debug("error deleting quiz message", "session_id", s.ID, "err", err)
		}
	}

	if _, err := e.channel.Send(ctx, p.ChatID, reportView(report)); err != nil {
		e.logger.Warn("error sending quiz result", "session_id", s.ID, "err", err)
		e.sendNotice(ctx, p.ChatID, errorView())
	}

	e.logger.Info("quiz finished",
		"user_id", p.UserID, "session_id", s.ID,
		"correct", correct, "total", total, "percentage", report.Percentage, "grade", report.Grade.String())
	return nil
}

func (e *Engine) displayName(ctx context.Context, userID int64) string {
	name, err := e.repo.LoadDisplayName(ctx, userID)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) {
			e.logger.Warn("error loading display name", "user_id", userID, "err", err)
		}
		return defaultDisplayName
	}
	if name == "" {
		return defaultDisplayName
	}
	return name
}
