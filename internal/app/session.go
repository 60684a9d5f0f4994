package app

import (
	"context"
	"math"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/securestore"
)

// Session is the per-attempt state machine. It owns its prepared quiz
// snapshot (read-only after load) and writes the mutable state through the
// secure store after every mutation. One live instance per session key is
// assumed; concurrent tabs are last-writer-wins.
type Session struct {
	key   string
	mode  Mode
	quiz  domain.Quiz
	store *securestore.Store
	now   func() time.Time

	mu            sync.Mutex
	state         domain.SessionState
	frozen        bool
	frozenElapsed int64
}

// Key returns the opaque session key.
func (s *Session) Key() string { return s.key }

// Mode returns the behavioral mode the engine was loaded with.
func (s *Session) Mode() Mode { return s.mode }

// Quiz returns the prepared quiz snapshot owned by this session.
func (s *Session) Quiz() domain.Quiz { return s.quiz }

// QuestionCount returns the number of questions in the prepared quiz.
func (s *Session) QuestionCount() int { return len(s.quiz.Questions) }

// State returns a copy of the current session state for display.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// CurrentIndex returns the current question pointer.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentIndex
}

// RecordAnswer records the selected option for the current question. In
// practice mode the first answer per question is final and later calls are
// no-ops; in exam mode the slot is overwritten every time. The updated state
// is persisted before returning.
func (s *Session) RecordAnswer(ctx context.Context, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.CurrentIndex >= len(s.state.Answers) {
		return nil
	}
	slot := &s.state.Answers[s.state.CurrentIndex]
	if s.mode == ModePractice && slot.Answered() {
		return nil
	}
	prev := slot.SelectedID
	slot.SelectedID = optionID
	if err := s.persistLocked(ctx); err != nil {
		slot.SelectedID = prev
		return err
	}
	return nil
}

// GoTo moves the current question pointer. Out-of-range targets are silently
// ignored; navigation is free in both modes and never requires the current
// question to be answered.
func (s *Session) GoTo(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.quiz.Questions) {
		return nil
	}
	prev := s.state.CurrentIndex
	s.state.CurrentIndex = index
	if err := s.persistLocked(ctx); err != nil {
		s.state.CurrentIndex = prev
		return err
	}
	return nil
}

// ElapsedSeconds derives the attempt duration from the start timestamp. After
// a successful exam submission the value is frozen.
func (s *Session) ElapsedSeconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

func (s *Session) elapsedLocked() int64 {
	if s.frozen {
		return s.frozenElapsed
	}
	return (s.now().UnixMilli() - s.state.StartTime) / 1000
}

// Restart discards all answers, returns to the first question, and restarts
// the clock. Available in both modes.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = domain.NewSessionState(len(s.quiz.Questions), s.now().UnixMilli())
	s.frozen = false
	if err := s.persistLocked(ctx); err != nil {
		s.state = prev
		return err
	}
	return nil
}

// RetryWrongOnly keeps every correct answer, blanks the rest, and returns to
// the first question. The start timestamp is preserved, so unlike Restart the
// clock keeps running from the original start. Practice mode only.
func (s *Session) RetryWrongOnly(ctx context.Context) error {
	if s.mode != ModePractice {
		return domain.ErrPracticeOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.Clone()
	for i := range s.state.Answers {
		if s.state.Answers[i].SelectedID != s.quiz.Questions[i].CorrectID {
			s.state.Answers[i].SelectedID = domain.Unanswered
		}
	}
	s.state.CurrentIndex = 0
	if err := s.persistLocked(ctx); err != nil {
		s.state = prev
		return err
	}
	return nil
}

// Submit validates completeness, scores the answer sheet, and freezes the
// clock. Any unanswered slot rejects the submission with
// domain.ErrIncompleteAnswers and leaves the state untouched. Submitting
// again over an unchanged sheet yields an identical summary. Exam mode only;
// the summary is never written back to storage.
func (s *Session) Submit(_ context.Context) (domain.ScoreSummary, error) {
	if s.mode != ModeExam {
		return domain.ScoreSummary{}, domain.ErrExamOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.AllAnswered() {
		return domain.ScoreSummary{}, domain.ErrIncompleteAnswers
	}

	correct := 0
	for i, question := range s.quiz.Questions {
		if s.state.Answers[i].SelectedID == question.CorrectID {
			correct++
		}
	}
	total := len(s.quiz.Questions)
	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(correct) / float64(total) * 100))
	}

	if !s.frozen {
		s.frozenElapsed = s.elapsedLocked()
		s.frozen = true
	}
	return domain.ScoreSummary{
		Correct:        correct,
		Total:          total,
		Percent:        percent,
		ElapsedSeconds: s.frozenElapsed,
	}, nil
}

// Submitted reports whether a successful submission has frozen the clock.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

func (s *Session) persistLocked(ctx context.Context) error {
	return s.store.Save(ctx, stateSlot(s.key), s.state)
}
