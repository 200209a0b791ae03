package diagnosis

import (
	"context"
	"errors"
	"strings"

	"github.com/abhisek/examdiag/internal/logger"
	"github.com/abhisek/examdiag/internal/paper"
)

// DegradedGuidance is the guidance attached to a verdict the oracle could
// not produce.
const DegradedGuidance = "Diagnosis is temporarily unavailable for this question; please retry later."

// Resolver turns a question and its answer into a Verdict. Deterministic
// rules run first; everything else goes to the oracle.
type Resolver struct {
	rules  []Rule
	oracle Oracle
	log    *logger.Logger
}

// NewResolver creates a resolver with the default rule chain.
func NewResolver(oracle Oracle, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{rules: DefaultRules(), oracle: oracle, log: log}
}

// Resolve judges one question. a may be nil when nothing was submitted.
// Oracle failures come back as *OracleUnavailableError; callers decide
// whether to substitute Degraded.
func (r *Resolver) Resolve(ctx context.Context, q *paper.Question, a *paper.Answer) (*Verdict, error) {
	if v, rule := RunRules(r.rules, q, a); v != nil {
		r.log.Debug("resolved by rule", "question_index", q.Index, "rule", rule)
		return v, nil
	}

	if r.oracle == nil {
		return nil, &OracleUnavailableError{Index: q.Index, Err: errors.New("no oracle configured")}
	}

	j, err := r.judge(ctx, q, a.Text())
	if err != nil {
		return nil, &OracleUnavailableError{Index: q.Index, Err: err}
	}
	if j == nil {
		return nil, &OracleUnavailableError{Index: q.Index, Err: errors.New("empty judgement")}
	}

	return adopt(q, a, j), nil
}

type judged struct {
	j   *Judgement
	err error
}

// judge bounds the oracle call by ctx even when the oracle ignores it.
func (r *Resolver) judge(ctx context.Context, q *paper.Question, answer string) (*Judgement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan judged, 1)
	go func() {
		j, err := r.oracle.Judge(ctx, q, answer)
		done <- judged{j: j, err: err}
	}()
	select {
	case res := <-done:
		return res.j, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// adopt copies an oracle judgement into a verdict, normalizing the fields
// the oracle cannot be trusted with.
func adopt(q *paper.Question, a *paper.Answer, j *Judgement) *Verdict {
	kind := ParseErrorKind(j.ErrorKind)
	// A wrong non-blank answer is neither none nor unanswered; either label would miscount it in the report.
	switch {
	case j.Correct:
		kind = ErrorNone
	case kind == ErrorNone, kind == ErrorUnanswered:
		kind = ErrorUnknown
	}

	resolved := strings.TrimSpace(j.CorrectAnswer)
	if resolved == "" {
		resolved = q.CorrectAnswerText()
	}

	practice := make([]PracticeItem, 0, len(j.SuggestedPractice))
	for _, p := range j.SuggestedPractice {
		kp := strings.TrimSpace(p.KnowledgePoint)
		if kp == "" {
			continue
		}
		practice = append(practice, PracticeItem{
			KnowledgePoint: kp,
			Difficulty:     paper.ParseDifficulty(string(p.Difficulty)),
			Count:          min(max(p.Count, 1), 5),
		})
	}

	return &Verdict{
		Correct:               j.Correct,
		ResolvedCorrectAnswer: resolved,
		UserAnswer:            a.Text(),
		ErrorKind:             kind,
		MasteryScore:          min(max(j.MasteryScore, 0), 100),
		GuidanceText:          strings.TrimSpace(j.GuidanceText),
		SuggestedPractice:     practice,
	}
}

// Degraded is the verdict used when the oracle failed for q.
func Degraded(q *paper.Question, a *paper.Answer) *Verdict {
	return &Verdict{
		Correct:               false,
		ResolvedCorrectAnswer: q.CorrectAnswerText(),
		UserAnswer:            a.Text(),
		ErrorKind:             ErrorUnknown,
		MasteryScore:          0,
		GuidanceText:          DegradedGuidance,
		SuggestedPractice:     []PracticeItem{},
	}
}
