package app

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/securestore"
)

// Mode selects the behavioral rules of a session engine.
type Mode string

const (
	// ModePractice gives immediate feedback; the first answer per question is final.
	ModePractice Mode = "practice"
	// ModeExam defers feedback; answers stay revisable until a gated submission.
	ModeExam Mode = "exam"
)

// PrepareOptions are the shuffle flags supplied by the caller at
// session-preparation time. The two permutations are independent.
type PrepareOptions struct {
	ShuffleQuestions bool
	ShuffleOptions   bool
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// SessionService prepares quiz sessions and rehydrates session engines from
// encrypted storage.
type SessionService struct {
	store   *securestore.Store
	quizzes QuizRepository
	now     func() time.Time

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

// NewSessionService builds a service with the wall clock and a time-seeded RNG.
func NewSessionService(store *securestore.Store, quizzes QuizRepository) *SessionService {
	return NewSessionServiceWithClock(store, quizzes, time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSessionServiceWithClock allows deterministic timestamps and permutations in tests.
func NewSessionServiceWithClock(store *securestore.Store, quizzes QuizRepository, now func() time.Time, rnd *rand.Rand) *SessionService {
	return &SessionService{store: store, quizzes: quizzes, now: now, rnd: rnd}
}

// SessionKey derives the storage key for a quiz deterministically from its
// identifier and title. Collisions across quizzes sharing both are out of scope.
func SessionKey(quiz domain.Quiz) string {
	title := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '-'
		}
		return r
	}, quiz.Title)
	return "quiz-" + quiz.ID + "-" + title
}

func quizSlot(sessionKey string) string  { return sessionKey + "-quiz" }
func stateSlot(sessionKey string) string { return sessionKey + "-state" }

// Prepare snapshots the quiz into an immutable prepared copy, applying the
// requested shuffles once, writes the snapshot and a fresh all-unanswered
// state to storage, and returns the session key. Any pre-existing session
// under the same key is discarded first.
func (s *SessionService) Prepare(ctx context.Context, quiz domain.Quiz, opts PrepareOptions) (string, error) {
	key := SessionKey(quiz)
	if err := s.store.Clear(ctx, quizSlot(key), stateSlot(key)); err != nil {
		return "", err
	}

	prepared := quiz.Clone()
	if opts.ShuffleQuestions {
		s.shuffle(len(prepared.Questions), func(i, j int) {
			prepared.Questions[i], prepared.Questions[j] = prepared.Questions[j], prepared.Questions[i]
		})
	}
	if opts.ShuffleOptions {
		for qi := range prepared.Questions {
			options := prepared.Questions[qi].Options
			s.shuffle(len(options), func(i, j int) {
				options[i], options[j] = options[j], options[i]
			})
		}
	}

	if err := s.store.Save(ctx, quizSlot(key), prepared); err != nil {
		return "", err
	}
	state := domain.NewSessionState(len(prepared.Questions), s.now().UnixMilli())
	if err := s.store.Save(ctx, stateSlot(key), state); err != nil {
		return "", err
	}
	return key, nil
}

// PrepareByID loads the quiz through the repository and prepares a session for it.
func (s *SessionService) PrepareByID(ctx context.Context, quizID string, opts PrepareOptions) (string, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	return s.Prepare(ctx, quiz, opts)
}

// LoadSession rehydrates a session engine from storage. A missing or
// unreadable prepared-quiz slot is terminal and reported as
// domain.ErrSessionNotFound. A missing state slot is synthesized fresh, and a
// loaded state without a start time has it backfilled, both persisted.
func (s *SessionService) LoadSession(ctx context.Context, sessionKey string, mode Mode) (*Session, error) {
	var quiz domain.Quiz
	found, err := s.store.Load(ctx, quizSlot(sessionKey), &quiz)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrSessionNotFound
	}

	var state domain.SessionState
	found, err = s.store.Load(ctx, stateSlot(sessionKey), &state)
	if err != nil {
		return nil, err
	}
	dirty := false
	if !found || len(state.Answers) != len(quiz.Questions) {
		state = domain.NewSessionState(len(quiz.Questions), s.now().UnixMilli())
		dirty = true
	}
	if state.StartTime == 0 {
		state.StartTime = s.now().UnixMilli()
		dirty = true
	}
	if dirty {
		if err := s.store.Save(ctx, stateSlot(sessionKey), state); err != nil {
			return nil, err
		}
	}

	return &Session{
		key:   sessionKey,
		mode:  mode,
		quiz:  quiz,
		state: state,
		store: s.store,
		now:   s.now,
	}, nil
}

// LiveElapsed re-reads the persisted start timestamp and derives the elapsed
// seconds from it. The periodic display tick goes through here so it stays
// correct after reloads; it never mutates the session.
func (s *SessionService) LiveElapsed(ctx context.Context, sessionKey string) (int64, error) {
	var state domain.SessionState
	found, err := s.store.Load(ctx, stateSlot(sessionKey), &state)
	if err != nil {
		return 0, err
	}
	if !found || state.StartTime == 0 {
		return 0, domain.ErrSessionNotFound
	}
	return (s.now().UnixMilli() - state.StartTime) / 1000, nil
}

func (s *SessionService) shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(n, swap)
}
