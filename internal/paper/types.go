package paper

import (
	"encoding/json"
	"strings"
)

// QuestionType is the canonical kind of an exam question.
type QuestionType string

const (
	TypeChoice      QuestionType = "choice"
	TypeFill        QuestionType = "fill"
	TypeSolve       QuestionType = "solve"
	TypeProof       QuestionType = "proof"
	TypeShortAnswer QuestionType = "short_answer"
)

// QuestionTypes lists every recognized question type in display order.
var QuestionTypes = []QuestionType{TypeChoice, TypeFill, TypeSolve, TypeProof, TypeShortAnswer}

// ParseQuestionType maps a raw type string to a QuestionType.
// Matching ignores case and surrounding whitespace.
func ParseQuestionType(s string) (QuestionType, bool) {
	t := QuestionType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range QuestionTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Difficulty is the declared difficulty of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps a raw difficulty string, falling back to medium for
// anything unrecognized.
func ParseDifficulty(s string) Difficulty {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d
	default:
		return DifficultyMedium
	}
}

// Point is a pixel coordinate on the scanned page.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Polygon is an ordered outline of points. Display only.
type Polygon []Point

// Question is a single normalized exam question.
type Question struct {
	// Index is the caller-assigned question number and the only key used to
	// join a question with its answer. Positive, not necessarily contiguous.
	Index int `json:"index"`

	Type       QuestionType `json:"type"`
	PromptText string       `json:"prompt_text"`

	// Options is populated only for choice questions. May be empty.
	Options []string `json:"options,omitempty"`

	// KnowledgePoints holds distinct knowledge tags in first-seen order.
	KnowledgePoints []string `json:"knowledge_points"`

	Difficulty Difficulty `json:"difficulty"`

	// BoundingRegions locate the question on the page for highlighting.
	// They never take part in grading.
	BoundingRegions []Polygon `json:"bounding_regions,omitempty"`

	// CorrectAnswer is nil when no answer key is available.
	CorrectAnswer *string `json:"correct_answer,omitempty"`

	SectionTitle      string `json:"section_title,omitempty"`
	HasFigure         bool   `json:"has_figure,omitempty"`
	FigureDescription string `json:"figure_description,omitempty"`
}

// HasCorrectAnswer reports whether an answer key is present.
func (q *Question) HasCorrectAnswer() bool {
	return q.CorrectAnswer != nil && strings.TrimSpace(*q.CorrectAnswer) != ""
}

// CorrectAnswerText returns the answer key or "" when absent.
func (q *Question) CorrectAnswerText() string {
	if q.CorrectAnswer == nil {
		return ""
	}
	return *q.CorrectAnswer
}

// Answer is the learner's submission for one question.
//
// A nil RawText and an empty (or blank) RawText both mean "unanswered".
type Answer struct {
	QuestionIndex int
	RawText       *string
}

// NewAnswer builds an Answer from a plain string.
func NewAnswer(index int, text string) Answer {
	return Answer{QuestionIndex: index, RawText: &text}
}

// Text returns the raw answer text, or "" when none was submitted.
func (a *Answer) Text() string {
	if a == nil || a.RawText == nil {
		return ""
	}
	return *a.RawText
}

// Answered reports whether the answer carries any non-blank text.
func (a *Answer) Answered() bool {
	return strings.TrimSpace(a.Text()) != ""
}

type answerJSON struct {
	QuestionIndex int     `json:"question_index"`
	UserAnswer    *string `json:"user_answer,omitempty"`
	RawText       *string `json:"raw_text,omitempty"`
}

// MarshalJSON encodes the answer using the user_answer field name.
func (a Answer) MarshalJSON() ([]byte, error) {
	return json.Marshal(answerJSON{QuestionIndex: a.QuestionIndex, UserAnswer: a.RawText})
}

// UnmarshalJSON accepts either user_answer or raw_text for the answer text.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw answerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.QuestionIndex = raw.QuestionIndex
	a.RawText = raw.UserAnswer
	if a.RawText == nil {
		a.RawText = raw.RawText
	}
	return nil
}
