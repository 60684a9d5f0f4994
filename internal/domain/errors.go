package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no prepared quiz exists under a session key.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrIncompleteAnswers rejects an exam submission while any question is unanswered.
	ErrIncompleteAnswers = errors.New("not all questions answered")
	// ErrPracticeOnly is returned when a practice-only operation is invoked in exam mode.
	ErrPracticeOnly = errors.New("operation only available in practice mode")
	// ErrExamOnly is returned when submission is attempted outside exam mode.
	ErrExamOnly = errors.New("submission only available in exam mode")
	// ErrInvalidQuiz indicates a quiz payload that violates the structural invariants.
	ErrInvalidQuiz = errors.New("invalid quiz definition")
)
