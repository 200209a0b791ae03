package diagnosis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/examdiag/internal/paper"
)

func solveQuestion(index int) *paper.Question {
	return &paper.Question{
		Index:           index,
		Type:            paper.TypeSolve,
		PromptText:      "Solve 2x + 3 = 9.",
		KnowledgePoints: []string{"linear equations"},
		Difficulty:      paper.DifficultyMedium,
	}
}

func TestResolve_UnansweredSkipsOracle(t *testing.T) {
	called := false
	r := NewResolver(OracleFunc(func(context.Context, *paper.Question, string) (*Judgement, error) {
		called = true
		return nil, nil
	}), nil)

	empty := paper.NewAnswer(1, "")
	fromEmpty, err := r.Resolve(context.Background(), solveQuestion(1), &empty)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	fromAbsent, err := r.Resolve(context.Background(), solveQuestion(1), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if called {
		t.Error("oracle must not be called for unanswered questions")
	}
	if fromEmpty.ErrorKind != ErrorUnanswered || fromAbsent.ErrorKind != ErrorUnanswered {
		t.Errorf("error kinds = %q/%q, want unanswered", fromEmpty.ErrorKind, fromAbsent.ErrorKind)
	}
	if fromEmpty.GuidanceText != fromAbsent.GuidanceText || fromEmpty.MasteryScore != fromAbsent.MasteryScore {
		t.Error("empty and absent answers should give identical verdicts")
	}
}

func TestResolve_ChoiceWithKeySkipsOracle(t *testing.T) {
	r := NewResolver(nil, nil)
	a := paper.NewAnswer(1, "c")
	v, err := r.Resolve(context.Background(), choiceQuestion(1, "C"), &a)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !v.Correct {
		t.Error("expected correct verdict from the answer key")
	}
}

func TestResolve_AdoptsOracleJudgement(t *testing.T) {
	var gotAnswer string
	r := NewResolver(OracleFunc(func(_ context.Context, q *paper.Question, answer string) (*Judgement, error) {
		gotAnswer = answer
		return &Judgement{
			Correct:       false,
			CorrectAnswer: "x = 3",
			ErrorKind:     "careless_error",
			MasteryScore:  65,
			GuidanceText:  "  Check the subtraction step.  ",
			SuggestedPractice: []PracticeItem{
				{KnowledgePoint: "linear equations", Difficulty: "hard", Count: 3},
			},
		}, nil
	}), nil)

	a := paper.NewAnswer(4, "x = 6")
	v, err := r.Resolve(context.Background(), solveQuestion(4), &a)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if gotAnswer != "x = 6" {
		t.Errorf("oracle saw %q", gotAnswer)
	}
	if v.ErrorKind != ErrorCareless || v.MasteryScore != 65 || v.ResolvedCorrectAnswer != "x = 3" {
		t.Errorf("verdict = %+v", v)
	}
	if v.GuidanceText != "Check the subtraction step." {
		t.Errorf("guidance = %q", v.GuidanceText)
	}
	if len(v.SuggestedPractice) != 1 || v.SuggestedPractice[0].Difficulty != paper.DifficultyHard {
		t.Errorf("practice = %+v", v.SuggestedPractice)
	}
}

func TestResolve_NormalizesUntrustedJudgement(t *testing.T) {
	tests := []struct {
		name        string
		j           Judgement
		wantKind    ErrorKind
		wantMastery int
	}{
		{"mastery above range", Judgement{Correct: true, MasteryScore: 140}, ErrorNone, 100},
		{"mastery below range", Judgement{ErrorKind: "concept_error", MasteryScore: -20}, ErrorConcept, 0},
		{"unrecognized kind", Judgement{ErrorKind: "sloppy", MasteryScore: 30}, ErrorUnknown, 30},
		{"correct overrides kind", Judgement{Correct: true, ErrorKind: "concept_error", MasteryScore: 90}, ErrorNone, 90},
		{"wrong but none", Judgement{Correct: false, ErrorKind: "none", MasteryScore: 40}, ErrorUnknown, 40},
		{"wrong but unanswered", Judgement{Correct: false, ErrorKind: "unanswered"}, ErrorUnknown, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := tt.j
			r := NewResolver(OracleFunc(func(context.Context, *paper.Question, string) (*Judgement, error) {
				return &j, nil
			}), nil)
			a := paper.NewAnswer(1, "answer")
			v, err := r.Resolve(context.Background(), solveQuestion(1), &a)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if v.ErrorKind != tt.wantKind {
				t.Errorf("error_kind = %q, want %q", v.ErrorKind, tt.wantKind)
			}
			if v.MasteryScore != tt.wantMastery {
				t.Errorf("mastery = %d, want %d", v.MasteryScore, tt.wantMastery)
			}
		})
	}
}

func TestResolve_PracticeItemsSanitized(t *testing.T) {
	r := NewResolver(OracleFunc(func(context.Context, *paper.Question, string) (*Judgement, error) {
		return &Judgement{SuggestedPractice: []PracticeItem{
			{KnowledgePoint: "", Count: 2},
			{KnowledgePoint: "fractions", Difficulty: "extreme", Count: 0},
			{KnowledgePoint: "ratios", Difficulty: "easy", Count: 40},
		}}, nil
	}), nil)
	a := paper.NewAnswer(1, "3/4")
	v, err := r.Resolve(context.Background(), solveQuestion(1), &a)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(v.SuggestedPractice) != 2 {
		t.Fatalf("practice = %+v, want blank knowledge point dropped", v.SuggestedPractice)
	}
	if p := v.SuggestedPractice[0]; p.Difficulty != paper.DifficultyMedium || p.Count != 1 {
		t.Errorf("first item = %+v", p)
	}
	if p := v.SuggestedPractice[1]; p.Count != 5 {
		t.Errorf("second item count = %d, want 5", p.Count)
	}
}

func TestResolve_FallsBackToKeyWhenOracleOmitsAnswer(t *testing.T) {
	q := solveQuestion(2)
	q.CorrectAnswer = strPtr("x = 3")
	r := NewResolver(OracleFunc(func(context.Context, *paper.Question, string) (*Judgement, error) {
		return &Judgement{Correct: true, MasteryScore: 90}, nil
	}), nil)
	a := paper.NewAnswer(2, "3")
	v, err := r.Resolve(context.Background(), q, &a)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v.ResolvedCorrectAnswer != "x = 3" {
		t.Errorf("resolved = %q, want the key", v.ResolvedCorrectAnswer)
	}
}

func TestResolve_OracleFailure(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(OracleFunc(func(context.Context, *paper.Question, string) (*Judgement, error) {
		return nil, boom
	}), nil)

	a := paper.NewAnswer(7, "x = 1")
	_, err := r.Resolve(context.Background(), solveQuestion(7), &a)

	var unavail *OracleUnavailableError
	if !errors.As(err, &unavail) {
		t.Fatalf("err = %v, want OracleUnavailableError", err)
	}
	if unavail.Index != 7 {
		t.Errorf("index = %d, want 7", unavail.Index)
	}
	if !errors.Is(err, boom) {
		t.Error("cause should be unwrappable")
	}
}

func TestResolve_DeadlineBoundsSlowOracle(t *testing.T) {
	r := NewResolver(OracleFunc(func(context.Context, *paper.Question, string) (*Judgement, error) {
		time.Sleep(300 * time.Millisecond)
		return &Judgement{Correct: true}, nil
	}), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	a := paper.NewAnswer(3, "x = 3")

	start := time.Now()
	_, err := r.Resolve(ctx, solveQuestion(3), &a)
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("resolve took %v, want it bounded by the deadline", elapsed)
	}
	var unavail *OracleUnavailableError
	if !errors.As(err, &unavail) || unavail.Index != 3 {
		t.Fatalf("err = %v, want OracleUnavailableError for question 3", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestResolve_CancelledContextSkipsOracle(t *testing.T) {
	called := false
	r := NewResolver(OracleFunc(func(context.Context, *paper.Question, string) (*Judgement, error) {
		called = true
		return &Judgement{Correct: true}, nil
	}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := paper.NewAnswer(1, "x = 3")
	_, err := r.Resolve(ctx, solveQuestion(1), &a)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Error("oracle must not be called once the context is done")
	}

	// Rules still resolve without the oracle.
	if v, err := r.Resolve(ctx, solveQuestion(1), nil); err != nil || v.ErrorKind != ErrorUnanswered {
		t.Errorf("unanswered under cancelled ctx = %+v, %v", v, err)
	}
}

func TestResolve_NilJudgementAndNoOracle(t *testing.T) {
	a := paper.NewAnswer(1, "x")
	var unavail *OracleUnavailableError

	nilJudge := NewResolver(OracleFunc(func(context.Context, *paper.Question, string) (*Judgement, error) {
		return nil, nil
	}), nil)
	if _, err := nilJudge.Resolve(context.Background(), solveQuestion(1), &a); !errors.As(err, &unavail) {
		t.Errorf("nil judgement: err = %v", err)
	}

	noOracle := NewResolver(nil, nil)
	if _, err := noOracle.Resolve(context.Background(), solveQuestion(1), &a); !errors.As(err, &unavail) {
		t.Errorf("no oracle: err = %v", err)
	}
}

func TestDegraded(t *testing.T) {
	q := choiceQuestion(5, "B")
	a := paper.NewAnswer(5, "A")
	v := Degraded(q, &a)

	if v.Correct || v.ErrorKind != ErrorUnknown || v.MasteryScore != 0 {
		t.Errorf("verdict = %+v", v)
	}
	if v.GuidanceText != DegradedGuidance {
		t.Errorf("guidance = %q", v.GuidanceText)
	}
	if v.UserAnswer != "A" || v.ResolvedCorrectAnswer != "B" {
		t.Errorf("echo fields = %q/%q", v.UserAnswer, v.ResolvedCorrectAnswer)
	}
	if v.SuggestedPractice == nil || len(v.SuggestedPractice) != 0 {
		t.Error("degraded verdict carries an empty practice list")
	}
}
