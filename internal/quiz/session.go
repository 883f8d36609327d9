package quiz

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/PoluyanbIch/SafetyQuizBot/internal/service"
)

// State is the phase of a session.
type State int

const (
	StateChoosingCategory State = iota
	StateAnsweringQuestion
	StateRevealing
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateChoosingCategory:
		return "choosing_category"
	case StateAnsweringQuestion:
		return "answering_question"
	case StateRevealing:
		return "revealing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Participant identifies who takes the quiz and where it is shown.
type Participant struct {
	UserID   int64
	ChatID   int64
	Username string
}

// Session is one user's quiz attempt.
type Session struct {
	ID          uuid.UUID
	Participant Participant
	CategoryID  int64

	ctx    context.Context
	cancel context.CancelFunc

	// accepting is true while the current question can still be resolved.
	// Answer and timeout both claim it with a compare-and-swap under mu.
	accepting atomic.Bool

	mu            sync.Mutex
	questionIDs   []int64
	index         int
	correct       int
	state         State
	continueReady bool
	question      service.Question
	options       []service.AnswerOption
	timer         *Countdown
	handle        Handle
	reveal        View
	messages      []Handle
	closed        bool
}

func newSession(p Participant, categoryID int64, questionIDs []int64) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:          uuid.New(),
		Participant: p,
		CategoryID:  categoryID,
		ctx:         ctx,
		cancel:      cancel,
		questionIDs: questionIDs,
		state:       StateChoosingCategory,
	}
}

// track remembers a delivered message for cleanup. Callers hold mu.
func (s *Session) track(h Handle) {
	s.messages = append(s.messages, h)
}

// untrack forgets a message. Callers hold mu.
func (s *Session) untrack(h Handle) {
	for i, m := range s.messages {
		if m == h {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID                uuid.UUID
	QuestionIDs       []int64
	CurrentIndex      int
	CorrectCount      int
	State             State
	Accepting         bool
	TimerActive       bool
	ContinueReady     bool
	CurrentQuestionID int64
	Messages          int
}

// Snapshot copies the session state under its lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, len(s.questionIDs))
	copy(ids, s.questionIDs)

	return Snapshot{
		ID:                s.ID,
		QuestionIDs:       ids,
		CurrentIndex:      s.index,
		CorrectCount:      s.correct,
		State:             s.state,
		Accepting:         s.accepting.Load(),
		TimerActive:       s.timer != nil,
		ContinueReady:     s.continueReady,
		CurrentQuestionID: s.question.ID,
		Messages:          len(s.messages),
	}
}

// Sessions holds the active session of every user.
type Sessions struct {
	mu     sync.Mutex
	byUser map[int64]*Session
}

// NewSessions returns an empty registry.
func NewSessions() *Sessions {
	return &Sessions{byUser: make(map[int64]*Session)}
}

// Get returns the user's session or nil.
func (ss *Sessions) Get(userID int64) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.byUser[userID]
}

// Put stores the session and returns the one it replaced, if any.
func (ss *Sessions) Put(s *Session) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	previous := ss.byUser[s.Participant.UserID]
	ss.byUser[s.Participant.UserID] = s
	return previous
}

// Remove deletes the session only if it is still the user's current one.
func (ss *Sessions) Remove(s *Session) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.byUser[s.Participant.UserID] != s {
		return false
	}
	delete(ss.byUser, s.Participant.UserID)
	return true
}

func (ss *Sessions) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.byUser)
}

func (ss *Sessions) All() []*Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	all := make([]*Session, 0, len(ss.byUser))
	for _, s := range ss.byUser {
		all = append(all, s)
	}
	return all
}
