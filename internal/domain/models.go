package domain

// Unanswered is the sentinel stored in an answer slot before the user picks an option.
const Unanswered = ""

// Option represents a possible answer for a question. IDs are unique within
// their question, not globally.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Options   []Option `json:"options"`
	CorrectID string   `json:"correct_id"`
}

// Quiz is an ordered collection of questions. It is read-only input to the
// session core; prepared snapshots are always deep clones.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Clone returns a deep copy of the quiz. The session builder snapshots through
// this so the caller's quiz is never mutated by shuffling.
func (q Quiz) Clone() Quiz {
	out := Quiz{ID: q.ID, Title: q.Title}
	if q.Questions == nil {
		return out
	}
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = question.Clone()
	}
	return out
}

// Clone returns a deep copy of the question and its options.
func (q Question) Clone() Question {
	out := Question{ID: q.ID, Text: q.Text, CorrectID: q.CorrectID}
	if q.Options != nil {
		out.Options = make([]Option, len(q.Options))
		copy(out.Options, q.Options)
	}
	return out
}

// Answer is one slot of the answer sheet: the selected option ID, or Unanswered.
type Answer struct {
	SelectedID string `json:"selectedId"`
}

// Answered reports whether an option has been recorded in this slot.
func (a Answer) Answered() bool {
	return a.SelectedID != Unanswered
}

// SessionState is the mutable per-attempt record: one answer slot per question
// position of the prepared quiz, the current question pointer, and the attempt
// start time in Unix milliseconds. Elapsed time is derived from StartTime
// rather than counted, so it stays correct across reloads.
type SessionState struct {
	Answers      []Answer `json:"answers"`
	CurrentIndex int      `json:"currentIndex"`
	StartTime    int64    `json:"startTime"`
}

// NewSessionState returns an all-unanswered state starting at question zero.
func NewSessionState(questionCount int, startTime int64) SessionState {
	return SessionState{
		Answers:      make([]Answer, questionCount),
		CurrentIndex: 0,
		StartTime:    startTime,
	}
}

// AllAnswered reports whether every slot holds a selection.
func (s SessionState) AllAnswered() bool {
	for _, a := range s.Answers {
		if !a.Answered() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the state.
func (s SessionState) Clone() SessionState {
	out := s
	if s.Answers != nil {
		out.Answers = make([]Answer, len(s.Answers))
		copy(out.Answers, s.Answers)
	}
	return out
}

// ScoreSummary is the terminal artifact of an accepted exam submission. It is
// derived from the answer sheet and never written back to session storage.
type ScoreSummary struct {
	Correct        int   `json:"correct"`
	Total          int   `json:"total"`
	Percent        int   `json:"percent"`
	ElapsedSeconds int64 `json:"elapsedTime"`
}
