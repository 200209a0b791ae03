package diagnosis

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abhisek/examdiag/internal/paper"
)

// Rule decides a verdict without consulting the oracle. Apply returns
// (nil, false) when the rule does not apply.
type Rule interface {
	Name() string
	Apply(q *paper.Question, a *paper.Answer) (*Verdict, bool)
}

// DefaultRules returns the deterministic rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		UnansweredRule{},
		ChoiceKeyRule{},
	}
}

// RunRules executes rules in order and returns the first verdict along
// with the deciding rule's name.
func RunRules(rules []Rule, q *paper.Question, a *paper.Answer) (*Verdict, string) {
	for _, r := range rules {
		if v, ok := r.Apply(q, a); ok {
			return v, r.Name()
		}
	}
	return nil, ""
}

// UnansweredRule handles missing and blank answers.
type UnansweredRule struct{}

func (UnansweredRule) Name() string { return "unanswered" }

func (UnansweredRule) Apply(q *paper.Question, a *paper.Answer) (*Verdict, bool) {
	if a.Answered() {
		return nil, false
	}
	return &Verdict{
		Correct:               false,
		ResolvedCorrectAnswer: q.CorrectAnswerText(),
		UserAnswer:            a.Text(),
		ErrorKind:             ErrorUnanswered,
		MasteryScore:          0,
		GuidanceText:          "This question was left unanswered. Attempt every question, even partially, so your understanding can be assessed.",
		SuggestedPractice:     practiceFor(q, 2),
	}, true
}

// ChoiceKeyRule grades choice questions that carry an answer key by
// comparing option letters.
type ChoiceKeyRule struct{}

func (ChoiceKeyRule) Name() string { return "choice-key" }

func (ChoiceKeyRule) Apply(q *paper.Question, a *paper.Answer) (*Verdict, bool) {
	if q.Type != paper.TypeChoice || !q.HasCorrectAnswer() {
		return nil, false
	}

	key := q.CorrectAnswerText()
	user := a.Text()
	want, _ := optionLetter(key)
	got, ok := optionLetter(user)

	if ok && got == want {
		return &Verdict{
			Correct:               true,
			ResolvedCorrectAnswer: key,
			UserAnswer:            user,
			ErrorKind:             ErrorNone,
			MasteryScore:          100,
			GuidanceText:          "Correct.",
			SuggestedPractice:     []PracticeItem{},
		}, true
	}

	return &Verdict{
		Correct:               false,
		ResolvedCorrectAnswer: key,
		UserAnswer:            user,
		ErrorKind:             ErrorConcept,
		MasteryScore:          0,
		GuidanceText: fmt.Sprintf("Selected %q but the correct option is %q. Review why each distractor fails before retrying.",
			string(got), string(want)),
		SuggestedPractice: practiceFor(q, 2),
	}, true
}

// optionLetter returns the first non-space rune, upper-cased.
func optionLetter(s string) (rune, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.ToUpper(r), true
}

func practiceFor(q *paper.Question, count int) []PracticeItem {
	items := make([]PracticeItem, 0, len(q.KnowledgePoints))
	for _, kp := range q.KnowledgePoints {
		items = append(items, PracticeItem{KnowledgePoint: kp, Difficulty: q.Difficulty, Count: count})
	}
	return items
}
