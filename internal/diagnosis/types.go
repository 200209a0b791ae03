package diagnosis

import (
	"strings"

	"github.com/abhisek/examdiag/internal/paper"
)

// ErrorKind classifies the outcome of one question.
type ErrorKind string

const (
	ErrorNone       ErrorKind = "none"
	ErrorUnanswered ErrorKind = "unanswered"
	ErrorConcept    ErrorKind = "concept_error"
	ErrorCareless   ErrorKind = "careless_error"
	ErrorUnknown    ErrorKind = "unknown"
)

// ParseErrorKind maps an untrusted error kind string. Blank input means
// none; anything unrecognized is unknown.
func ParseErrorKind(s string) ErrorKind {
	switch k := ErrorKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return ErrorNone
	case ErrorNone, ErrorUnanswered, ErrorConcept, ErrorCareless, ErrorUnknown:
		return k
	default:
		return ErrorUnknown
	}
}

// PracticeItem recommends drilling a knowledge point.
type PracticeItem struct {
	KnowledgePoint string           `json:"knowledge_point"`
	Difficulty     paper.Difficulty `json:"difficulty"`
	Count          int              `json:"count"`
}

// Verdict is the resolved outcome for a single question. It is built once
// and not modified afterwards.
type Verdict struct {
	Correct               bool           `json:"correct"`
	ResolvedCorrectAnswer string         `json:"resolved_correct_answer"`
	UserAnswer            string         `json:"user_answer"`
	ErrorKind             ErrorKind      `json:"error_kind"`
	MasteryScore          int            `json:"mastery_score"`
	GuidanceText          string         `json:"guidance_text"`
	SuggestedPractice     []PracticeItem `json:"suggested_practice"`
}

// Judgement is what an Oracle returns. Every field is untrusted until the
// Resolver has normalized it into a Verdict.
type Judgement struct {
	Correct           bool           `json:"correct"`
	CorrectAnswer     string         `json:"correct_answer"`
	ErrorKind         string         `json:"error_kind"`
	MasteryScore      int            `json:"mastery_score"`
	GuidanceText      string         `json:"guidance_text"`
	SuggestedPractice []PracticeItem `json:"suggested_practice"`
}
