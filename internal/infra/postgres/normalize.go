package postgres

import (
	"encoding/json"
	"fmt"

	"quiz-session-service/internal/domain"
)

// External quiz payloads are not uniform: ids arrive as numbers or strings,
// options as bare strings or objects, and the correct answer under
// correct_id, correctId, or correctIndex. NormalizeQuiz maps any accepted
// shape into the canonical domain.Quiz and validates the structural
// invariants, so the session core only ever sees canonical input.
func NormalizeQuiz(raw []byte) (domain.Quiz, error) {
	var loose looseQuiz
	if err := json.Unmarshal(raw, &loose); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuiz, err)
	}
	if loose.ID == "" {
		return domain.Quiz{}, fmt.Errorf("%w: missing quiz id", domain.ErrInvalidQuiz)
	}

	quiz := domain.Quiz{
		ID:        string(loose.ID),
		Title:     loose.Title,
		Questions: make([]domain.Question, len(loose.Questions)),
	}
	for qi, lq := range loose.Questions {
		question, err := lq.normalize()
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("question %d: %w", qi, err)
		}
		quiz.Questions[qi] = question
	}
	return quiz, nil
}

type looseQuiz struct {
	ID        flexID          `json:"id"`
	Title     string          `json:"title"`
	Questions []looseQuestion `json:"questions"`
}

type looseQuestion struct {
	ID           flexID        `json:"id"`
	Text         string        `json:"text"`
	Options      []looseOption `json:"options"`
	CorrectID    *flexID       `json:"correct_id"`
	CorrectIDAlt *flexID       `json:"correctId"`
	CorrectIndex *int          `json:"correctIndex"`
}

func (q looseQuestion) normalize() (domain.Question, error) {
	if len(q.Options) == 0 {
		return domain.Question{}, fmt.Errorf("%w: question has no options", domain.ErrInvalidQuiz)
	}

	options := make([]domain.Option, len(q.Options))
	for oi, lo := range q.Options {
		id := string(lo.ID)
		if id == "" {
			// Bare-string options carry no id; positions become ids.
			id = fmt.Sprintf("%d", oi)
		}
		options[oi] = domain.Option{ID: id, Text: lo.Text}
	}

	correct, err := q.resolveCorrect(options)
	if err != nil {
		return domain.Question{}, err
	}
	return domain.Question{
		ID:        string(q.ID),
		Text:      q.Text,
		Options:   options,
		CorrectID: correct,
	}, nil
}

func (q looseQuestion) resolveCorrect(options []domain.Option) (string, error) {
	var correct string
	switch {
	case q.CorrectID != nil:
		correct = string(*q.CorrectID)
	case q.CorrectIDAlt != nil:
		correct = string(*q.CorrectIDAlt)
	case q.CorrectIndex != nil:
		if *q.CorrectIndex < 0 || *q.CorrectIndex >= len(options) {
			return "", fmt.Errorf("%w: correctIndex out of range", domain.ErrInvalidQuiz)
		}
		return options[*q.CorrectIndex].ID, nil
	default:
		return "", fmt.Errorf("%w: no correct answer designated", domain.ErrInvalidQuiz)
	}

	for _, opt := range options {
		if opt.ID == correct {
			return correct, nil
		}
	}
	return "", fmt.Errorf("%w: correct id %q matches no option", domain.ErrInvalidQuiz, correct)
}

// flexID accepts both JSON strings and numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	return fmt.Errorf("id is neither string nor number: %s", data)
}

// looseOption accepts either a bare string or an {id, text} object.
type looseOption struct {
	ID   flexID `json:"id"`
	Text string `json:"text"`
}

func (o *looseOption) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Text = s
		return nil
	}
	type alias looseOption
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*o = looseOption(obj)
	return nil
}
