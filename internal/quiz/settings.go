package quiz

import "time"

// Settings tunes quiz length and timing.
type Settings struct {
	MaxQuestions      int
	QuestionTimeLimit time.Duration
	TickInterval      time.Duration
	AnswerDisplayTime time.Duration
	StartDelay        time.Duration
	// MaxRenderFailures is how many questions in a row may fail to render
	// before the attempt is given up.
	MaxRenderFailures int
	// StrictInvariants panics on a broken session invariant instead of
	// clamping it. Meant for development.
	StrictInvariants bool
}

// DefaultSettings returns the timing used in production.
func DefaultSettings() Settings {
	return Settings{
		MaxQuestions:      10,
		QuestionTimeLimit: 60 * time.Second,
		TickInterval:      5 * time.Second,
		AnswerDisplayTime: 3 * time.Second,
		StartDelay:        4 * time.Second,
		MaxRenderFailures: 3,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.MaxQuestions <= 0 {
		s.MaxQuestions = def.MaxQuestions
	}
	if s.QuestionTimeLimit <= 0 {
		s.QuestionTimeLimit = def.QuestionTimeLimit
	}
	if s.TickInterval <= 0 {
		s.TickInterval = def.TickInterval
	}
	if s.AnswerDisplayTime < 0 {
		s.AnswerDisplayTime = 0
	}
	if s.StartDelay < 0 {
		s.StartDelay = 0
	}
	if s.MaxRenderFailures <= 0 {
		s.MaxRenderFailures = def.MaxRenderFailures
	}
	return s
}
