package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
)

var (
	// ErrStaleAction means the event targets a question or session that is
	// no longer current: the other side of the race won, or the quiz ended.
	ErrStaleAction = errors.New("stale action")
	// ErrAnswerNotFound means the answer is not among the presented options.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrEmptyPool means the category has no questions.
	ErrEmptyPool = errors.New("category has no questions")
	// ErrRenderFailed means questions repeatedly could not be shown.
	ErrRenderFailed = errors.New("question could not be rendered")
)

// Engine runs timed quizzes, one session per user.
type Engine struct {
	repo        Repository
	channel     Channel
	sessions    *Sessions
	scheduler   *Scheduler
	leaderboard service.LeaderboardService
	settings    Settings
	logger      *slog.Logger
}

// NewEngine wires the engine to its collaborators. Zero settings fall back
// to DefaultSettings.
func NewEngine(
	repo Repository,
	channel Channel,
	sessions *Sessions,
	leaderboard service.LeaderboardService,
	settings Settings,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		repo:        repo,
		channel:     channel,
		sessions:    sessions,
		scheduler:   NewScheduler(),
		leaderboard: leaderboard,
		settings:    settings.withDefaults(),
		logger:      logger,
	}
}

// Settings returns the effective settings, defaults applied.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Snapshot returns the state of the user's running session.
func (e *Engine) Snapshot(userID int64) (Snapshot, bool) {
	s := e.sessions.Get(userID)
	if s == nil {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

// ShowCategories sends the category picker.
func (e *Engine) ShowCategories(ctx context.Context, chatID int64) error {
	categories, err := e.repo.ListCategories(ctx)
	if err != nil {
		e.logger.Error("error listing categories", "chat_id", chatID, "err", err)
		e.sendNotice(ctx, chatID, errorView())
		return fmt.Errorf("list categories: %w", err)
	}

	e.sendNotice(ctx, chatID, categoriesView(categories))
	return nil
}

// CategoryChosen starts a quiz in the category, replacing any running one.
func (e *Engine) CategoryChosen(ctx context.Context, p Participant, categoryID int64) error {
	questions, err := e.repo.SampleQuestions(ctx, categoryID, e.settings.MaxQuestions)
	if err != nil {
		e.logger.Error("error sampling questions", "user_id", p.UserID, "category_id", categoryID, "err", err)
		e.sendNotice(ctx, p.ChatID, errorView())
		return fmt.Errorf("sample questions of category %d: %w", categoryID, err)
	}
	if len(questions) == 0 {
		e.sendNotice(ctx, p.ChatID, emptyCategoryView())
		return ErrEmptyPool
	}

	ids := make([]int64, 0, len(questions))
	seen := make(map[int64]bool, len(questions))
	for _, question := range questions {
		if seen[question.ID] || len(ids) == e.settings.MaxQuestions {
			continue
		}
		seen[question.ID] = true
		ids = append(ids, question.ID)
	}

	s := newSession(p, categoryID, ids)
	if previous := e.sessions.Put(s); previous != nil {
		e.abandon(ctx, previous)
	}
	e.logger.Info("quiz started",
		"user_id", p.UserID, "session_id", s.ID, "category_id", categoryID, "questions", len(ids))

	if e.settings.StartDelay > 0 {
		handle, err := e.channel.Send(s.ctx, p.ChatID, startingView(len(ids), e.settings.QuestionTimeLimit))
		if err != nil {
			e.logger.Warn("error sending start notice", "user_id", p.UserID, "err", err)
		} else {
			waited := sleepCtx(s.ctx, e.settings.StartDelay)
			e.deleteAdvisory(ctx, s, handle)
			if !waited {
				return nil
			}
		}
	}

	return e.advance(s)
}

// AnswerChosen resolves the current question with the user's answer
// unless the countdown already did.
func (e *Engine) AnswerChosen(ctx context.Context, userID, questionID, answerID int64) error {
	s := e.sessions.Get(userID)
	if s == nil {
		return ErrStaleAction
	}

	s.mu.Lock()
	if s.closed || s.state != StateAnsweringQuestion || s.question.ID != questionID {
		s.mu.Unlock()
		return ErrStaleAction
	}
	selected, ok := service.FindOption(s.options, answerID)
	if !ok {
		s.mu.Unlock()
		return ErrAnswerNotFound
	}
	if !s.accepting.CompareAndSwap(true, false) {
		s.mu.Unlock()
		return ErrStaleAction
	}
	timer := s.timer
	s.mu.Unlock()

	// no tick may render after this point
	if timer != nil {
		timer.Cancel()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStaleAction
	}
	s.timer = nil
	if selected.IsCorrect {
		s.correct++
	}
	s.index++
	s.state = StateRevealing
	s.continueReady = false
	e.checkInvariants(s)
	view := answerRevealView(s.question, s.options, selected, s.index, len(s.questionIDs))
	s.reveal = view
	handle := s.handle
	s.mu.Unlock()

	e.logger.Debug("question answered",
		"user_id", userID, "session_id", s.ID, "question_id", questionID, "correct", selected.IsCorrect)

	e.editAdvisory(s, handle, view)
	go e.dwell(s)
	return nil
}

// expire is the countdown's expiry callback for a question.
func (e *Engine) expire(s *Session, questionID int64) {
	s.mu.Lock()
	if s.closed || s.question.ID != questionID || !s.accepting.CompareAndSwap(true, false) {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = nil
	s.index++
	s.state = StateRevealing
	s.continueReady = false
	e.checkInvariants(s)
	view := timeoutRevealView(s.question, s.options, s.index, len(s.questionIDs))
	s.reveal = view
	handle := s.handle
	s.mu.Unlock()

	e.logger.Debug("question timed out", "user_id", s.Participant.UserID, "session_id", s.ID, "question_id", questionID)

	e.editAdvisory(s, handle, view)
	e.dwell(s)
}

// dwell keeps the reveal on screen, then finishes the quiz or offers to
// continue. Continuing always waits for the user.
func (e *Engine) dwell(s *Session) {
	if !sleepCtx(s.ctx, e.settings.AnswerDisplayTime) {
		return
	}

	s.mu.Lock()
	if s.closed || s.state != StateRevealing {
		s.mu.Unlock()
		return
	}
	if s.index >= len(s.questionIDs) {
		s.mu.Unlock()
		if err := e.finalize(s); err != nil && !errors.Is(err, ErrStaleAction) {
			e.logger.Error("error finishing quiz", "session_id", s.ID, "err", err)
		}
		return
	}
	s.continueReady = true
	view := s.reveal
	handle := s.handle
	s.mu.Unlock()

	view.Buttons = continueButtons()
	e.editAdvisory(s, handle, view)
}

// ContinueRequested shows the next question after a reveal.
func (e *Engine) ContinueRequested(ctx context.Context, userID int64) error {
	s := e.sessions.Get(userID)
	if s == nil {
		return ErrStaleAction
	}

	s.mu.Lock()
	if s.closed || s.state != StateRevealing || !s.continueReady {
		s.mu.Unlock()
		return ErrStaleAction
	}
	s.continueReady = false
	s.state = StateAnsweringQuestion
	s.question = service.Question{}
	s.options = nil
	handle := s.handle
	s.mu.Unlock()

	e.deleteAdvisory(ctx, s, handle)
	return e.advance(s)
}

// QuizAbandoned drops the user's session, if any. Calling it without a
// running quiz is a no-op.
func (e *Engine) QuizAbandoned(ctx context.Context, userID int64) error {
	if s := e.sessions.Get(userID); s != nil {
		e.abandon(ctx, s)
	}
	return nil
}

// Shutdown abandons every running session.
func (e *Engine) Shutdown(ctx context.Context) {
	for _, s := range e.sessions.All() {
		e.abandon(ctx, s)
	}
	e.scheduler.Shutdown()
}

func (e *Engine) abandon(ctx context.Context, s *Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = StateFinished
	s.accepting.Store(false)
	timer := s.timer
	s.timer = nil
	messages := s.messages
	s.messages = nil
	s.mu.Unlock()

	s.cancel()
	if timer != nil {
		timer.Cancel()
	}
	e.sessions.Remove(s)

	for _, handle := range messages {
		if err := e.channel.Delete(ctx, handle); err != nil {
			e.logger.Debug("error deleting quiz message", "session_id", s.ID, "err", err)
		}
	}

	e.logger.Info("quiz abandoned", "user_id", s.Participant.UserID, "session_id", s.ID)
}

// advance shows the question at the current index, skipping questions
// that vanished or could not be rendered, and finishes the quiz when none
// are left.
func (e *Engine) advance(s *Session) error {
	failures := 0
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrStaleAction
		}
		e.checkInvariants(s)
		if s.index >= len(s.questionIDs) {
			s.mu.Unlock()
			return e.finalize(s)
		}
		index := s.index
		total := len(s.questionIDs)
		questionID := s.questionIDs[index]
		s.mu.Unlock()

		question, options, err := e.loadQuestion(s.ctx, questionID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				e.logger.Info("skipping missing question", "session_id", s.ID, "question_id", questionID)
			} else {
				e.logger.Warn("error loading question", "session_id", s.ID, "question_id", questionID, "err", err)
			}
			e.skip(s, index)
			continue
		}

		view := questionView(question, options, index+1, total, e.settings.QuestionTimeLimit)
		handle, err := e.channel.Send(s.ctx, s.Participant.ChatID, view)
		if err != nil {
			failures++
			e.logger.Warn("error sending question",
				"session_id", s.ID, "question_id", questionID, "failures", failures, "err", err)
			if failures >= e.settings.MaxRenderFailures {
				e.fail(s)
				return fmt.Errorf("%w: %v", ErrRenderFailed, err)
			}
			e.skip(s, index)
			continue
		}

		s.mu.Lock()
		if s.closed || s.index != index {
			s.mu.Unlock()
			e.deleteAdvisory(context.Background(), s, handle)
			return ErrStaleAction
		}
		s.track(handle)
		s.question = question
		s.options = options
		s.handle = handle
		s.state = StateAnsweringQuestion
		s.continueReady = false
		s.accepting.Store(true)
		s.timer = e.scheduler.Schedule(
			question.ID,
			e.settings.QuestionTimeLimit,
			e.settings.TickInterval,
			e.countdownTick(s, handle, question, options, index+1, total),
			func() { e.expire(s, question.ID) },
		)
		s.mu.Unlock()
		return nil
	}
}

func (e *Engine) loadQuestion(ctx context.Context, questionID int64) (service.Question, []service.AnswerOption, error) {
	question, err := e.repo.LoadQuestion(ctx, questionID)
	if err != nil {
		return service.Question{}, nil, err
	}
	options, err := e.repo.LoadAnswerOptions(ctx, questionID)
	if err != nil {
		return service.Question{}, nil, err
	}
	if len(options) == 0 {
		return service.Question{}, nil, fmt.Errorf("answers of question %d: %w", questionID, service.ErrNotFound)
	}
	return question, service.PresentOptions(options, service.MaxOptions), nil
}

func (e *Engine) countdownTick(
	s *Session,
	handle Handle,
	question service.Question,
	options []service.AnswerOption,
	number, total int,
) TickFunc {
	renderFailed := false
	return func(remaining time.Duration) bool {
		if !s.accepting.Load() {
			return false
		}
		if renderFailed {
			return true
		}
		view := questionView(question, options, number, total, remaining)
		if err := e.channel.Edit(s.ctx, handle, view); err != nil {
			// keep counting down, the expiry still has to happen
			renderFailed = true
			e.logger.Warn("error updating time left", "session_id", s.ID, "question_id", question.ID, "err", err)
		}
		return true
	}
}

// skip moves past the question at index, unless someone else already did.
func (e *Engine) skip(s *Session, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == index {
		s.index++
	}
}

// fail ends the attempt after repeated render failures.
func (e *Engine) fail(s *Session) {
	ctx := context.WithoutCancel(s.ctx)
	e.abandon(ctx, s)
	e.sendNotice(ctx, s.Participant.ChatID, errorView())
}

func (e *Engine) checkInvariants(s *Session) {
	total := len(s.questionIDs)
	var violation string

	switch {
	case s.index < 0:
		violation = "negative current index"
		s.index = 0
	case s.index > total:
		violation = "current index past the last question"
		s.index = total
	}
	switch {
	case s.correct < 0:
		violation = "negative correct count"
		s.correct = 0
	case s.correct > s.index:
		violation = "correct count above current index"
		s.correct = s.index
	}

	if violation == "" {
		return
	}
	if e.settings.StrictInvariants {
		panic(fmt.Sprintf("quiz session %s: %s", s.ID, violation))
	}
	e.logger.Error("session invariant violated, clamped", "session_id", s.ID, "violation", violation)
}

func (e *Engine) sendNotice(ctx context.Context, chatID int64, view View) {
	if _, err := e.channel.Send(ctx, chatID, view); err != nil {
		e.logger.Warn("error sending notice", "chat_id", chatID, "err", err)
	}
}

func (e *Engine) editAdvisory(s *Session, handle Handle, view View) {
	if err := e.channel.Edit(s.ctx, handle, view); err != nil {
		e.logger.Warn("error editing quiz message", "session_id", s.ID, "err", err)
	}
}

func (e *Engine) deleteAdvisory(ctx context.Context, s *Session, handle Handle) {
	s.mu.Lock()
	s.untrack(handle)
	s.mu.Unlock()

	if err := e.channel.Delete(ctx, handle); err != nil {
		e.logger.Debug("error deleting quiz message", "session_id", s.ID, "err", err)
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
