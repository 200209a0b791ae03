package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examdiag/internal/diagnosis"
	"github.com/abhisek/examdiag/internal/llm"
	"github.com/abhisek/examdiag/internal/logger"
	"github.com/abhisek/examdiag/internal/paper"
)

func key(s string) *string { return &s }

func freeText(index int, kps ...string) paper.Question {
	return paper.Question{Index: index, Type: paper.TypeSolve, PromptText: fmt.Sprintf("question %d", index), KnowledgePoints: kps, Difficulty: paper.DifficultyMedium}
}

func newService(oracle diagnosis.Oracle, cfg Config) *Service {
	return NewService(diagnosis.NewResolver(oracle, logger.Nop()), cfg, logger.Nop())
}

func failIfCalled(t *testing.T) diagnosis.Oracle {
	return diagnosis.OracleFunc(func(context.Context, *paper.Question, string) (*diagnosis.Judgement, error) {
		t.Error("oracle should not be called")
		return nil, errors.New("unexpected call")
	})
}

func TestDiagnose_TwoChoiceQuestionsOneUnanswered(t *testing.T) {
	questions := []paper.Question{
		{Index: 1, Type: paper.TypeChoice, CorrectAnswer: key("A")},
		{Index: 2, Type: paper.TypeChoice, CorrectAnswer: key("B")},
	}
	answers := []paper.Answer{paper.NewAnswer(1, "A")}

	res, err := newService(failIfCalled(t), DefaultConfig()).Diagnose(context.Background(), questions, answers)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.TotalQuestions)
	assert.Equal(t, 1, res.Summary.CorrectCount)
	assert.Equal(t, 1, res.Summary.UnansweredCount)
	assert.Equal(t, 50.0, res.Summary.Accuracy)
	assert.Equal(t, diagnosis.ErrorUnanswered, res.Results[1].DiagnoseResult.ErrorKind)
	assert.NotEmpty(t, res.BatchID)
}

func TestDiagnose_OracleFailureDegradesOneQuestion(t *testing.T) {
	oracle := diagnosis.OracleFunc(func(_ context.Context, q *paper.Question, _ string) (*diagnosis.Judgement, error) {
		if q.Index == 3 {
			return nil, errors.New("oracle exploded")
		}
		return &diagnosis.Judgement{Correct: true, MasteryScore: 80}, nil
	})

	var questions []paper.Question
	var answers []paper.Answer
	for i := 1; i <= 5; i++ {
		questions = append(questions, freeText(i, "algebra"))
		answers = append(answers, paper.NewAnswer(i, "x = 1"))
	}

	res, err := newService(oracle, DefaultConfig()).Diagnose(context.Background(), questions, answers)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Summary.TotalQuestions)
	require.Len(t, res.Results, 5)
	bad := res.Results[2].DiagnoseResult
	assert.Equal(t, diagnosis.ErrorUnknown, bad.ErrorKind)
	assert.Equal(t, diagnosis.DegradedGuidance, bad.GuidanceText)
	assert.Equal(t, 0, bad.MasteryScore)
	assert.Equal(t, 4, res.Summary.CorrectCount)
	assert.Equal(t, 1, res.Summary.WrongCount)
}

func TestDiagnose_TimeoutDegradesPendingQuestions(t *testing.T) {
	oracle := diagnosis.OracleFunc(func(ctx context.Context, q *paper.Question, _ string) (*diagnosis.Judgement, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	questions := []paper.Question{
		freeText(1),
		{Index: 2, Type: paper.TypeChoice, CorrectAnswer: key("C")},
	}
	answers := []paper.Answer{paper.NewAnswer(1, "x"), paper.NewAnswer(2, "C")}

	start := time.Now()
	res, err := newService(oracle, Config{Concurrency: 2, Timeout: 20 * time.Millisecond}).
		Diagnose(context.Background(), questions, answers)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Equal(t, diagnosis.ErrorUnknown, res.Results[0].DiagnoseResult.ErrorKind)
	assert.True(t, res.Results[1].DiagnoseResult.Correct, "rule-based verdicts are unaffected")
}

func TestDiagnose_TimeoutBoundsOracleIgnoringContext(t *testing.T) {
	var calls atomic.Int32
	oracle := diagnosis.OracleFunc(func(context.Context, *paper.Question, string) (*diagnosis.Judgement, error) {
		calls.Add(1)
		time.Sleep(300 * time.Millisecond)
		return &diagnosis.Judgement{Correct: true}, nil
	})
	questions := []paper.Question{freeText(1), freeText(2)}
	answers := []paper.Answer{paper.NewAnswer(1, "x"), paper.NewAnswer(2, "y")}

	start := time.Now()
	res, err := newService(oracle, Config{Concurrency: 1, Timeout: 20 * time.Millisecond}).
		Diagnose(context.Background(), questions, answers)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	for _, r := range res.Results {
		assert.Equal(t, diagnosis.ErrorUnknown, r.DiagnoseResult.ErrorKind)
		assert.False(t, r.DiagnoseResult.Correct)
	}
	assert.LessOrEqual(t, calls.Load(), int32(1), "queued questions must not reach the oracle after the deadline")
}

func TestDiagnose_RejectsDuplicateIndex(t *testing.T) {
	questions := []paper.Question{freeText(4), freeText(7), freeText(4)}

	_, err := newService(failIfCalled(t), DefaultConfig()).Diagnose(context.Background(), questions, nil)

	var dup *DuplicateQuestionIndexError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 4, dup.Index)
	assert.Contains(t, err.Error(), "4")
	assert.True(t, IsInvalidInput(err))
}

func TestDiagnose_RejectsMalformedQuestions(t *testing.T) {
	tests := []struct {
		name  string
		q     paper.Question
		field string
	}{
		{"zero index", paper.Question{Index: 0, Type: paper.TypeFill}, "index"},
		{"negative index", paper.Question{Index: -3, Type: paper.TypeFill}, "index"},
		{"unknown type", paper.Question{Index: 2, Type: "essay"}, "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(failIfCalled(t), DefaultConfig()).
				Diagnose(context.Background(), []paper.Question{freeText(1), tt.q}, nil)
			var mal *paper.MalformedQuestionError
			require.ErrorAs(t, err, &mal)
			assert.Equal(t, tt.field, mal.Field)
			assert.True(t, IsInvalidInput(err))
		})
	}
}

func TestDiagnose_ResultsFollowQuestionOrder(t *testing.T) {
	oracle := diagnosis.OracleFunc(func(_ context.Context, q *paper.Question, answer string) (*diagnosis.Judgement, error) {
		// Earlier questions finish last.
		time.Sleep(time.Duration(10-q.Index) * time.Millisecond)
		return &diagnosis.Judgement{Correct: answer == "ok", MasteryScore: q.Index}, nil
	})

	questions := []paper.Question{freeText(9), freeText(2), freeText(5), freeText(1)}
	answers := []paper.Answer{
		paper.NewAnswer(1, "ok"), paper.NewAnswer(5, "ok"), paper.NewAnswer(2, "no"), paper.NewAnswer(9, "ok"),
	}

	res, err := newService(oracle, Config{Concurrency: 4}).Diagnose(context.Background(), questions, answers)
	require.NoError(t, err)

	var got []int
	for _, r := range res.Results {
		got = append(got, r.QuestionIndex)
		assert.Equal(t, r.QuestionIndex, r.DiagnoseResult.MasteryScore, "verdict attached to the wrong question")
	}
	assert.Equal(t, []int{9, 2, 5, 1}, got)
}

func TestDiagnose_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	oracle := diagnosis.OracleFunc(func(context.Context, *paper.Question, string) (*diagnosis.Judgement, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return &diagnosis.Judgement{Correct: true, MasteryScore: 100}, nil
	})

	var questions []paper.Question
	var answers []paper.Answer
	for i := 1; i <= 12; i++ {
		questions = append(questions, freeText(i))
		answers = append(answers, paper.NewAnswer(i, "x"))
	}

	_, err := newService(oracle, Config{Concurrency: 3}).Diagnose(context.Background(), questions, answers)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestDiagnose_AnswerMatching(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]string{}
	oracle := diagnosis.OracleFunc(func(_ context.Context, q *paper.Question, answer string) (*diagnosis.Judgement, error) {
		mu.Lock()
		seen[q.Index] = answer
		mu.Unlock()
		return &diagnosis.Judgement{Correct: true}, nil
	})

	questions := []paper.Question{freeText(1), freeText(2)}
	answers := []paper.Answer{
		paper.NewAnswer(1, "first"),
		paper.NewAnswer(99, "orphan"),
		paper.NewAnswer(1, "second"),
		paper.NewAnswer(2, "only"),
	}

	_, err := newService(oracle, DefaultConfig()).Diagnose(context.Background(), questions, answers)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "second", 2: "only"}, seen)
}

func TestDiagnose_EmptyAndNilAnswersMatch(t *testing.T) {
	questions := []paper.Question{freeText(1), freeText(2), freeText(3)}
	answers := []paper.Answer{paper.NewAnswer(1, ""), {QuestionIndex: 2}}

	res, err := newService(failIfCalled(t), DefaultConfig()).Diagnose(context.Background(), questions, answers)
	require.NoError(t, err)
	for _, r := range res.Results {
		assert.Equal(t, diagnosis.ErrorUnanswered, r.DiagnoseResult.ErrorKind)
	}
	assert.Equal(t, res.Results[0].DiagnoseResult, res.Results[2].DiagnoseResult)
	assert.Contains(t, res.Summary.OverallSuggestion, "unanswered")
	assert.Equal(t, 0.0, res.Summary.AverageMastery)
}

func TestDiagnose_TagsOracleCallsWithBatchID(t *testing.T) {
	var got atomic.Value
	oracle := diagnosis.OracleFunc(func(ctx context.Context, _ *paper.Question, _ string) (*diagnosis.Judgement, error) {
		got.Store(llm.BatchIDFrom(ctx))
		return &diagnosis.Judgement{Correct: true}, nil
	})

	res, err := newService(oracle, DefaultConfig()).
		Diagnose(context.Background(), []paper.Question{freeText(1)}, []paper.Answer{paper.NewAnswer(1, "x")})
	require.NoError(t, err)
	assert.Equal(t, res.BatchID, got.Load())
}

func TestDiagnose_DoesNotMutateInput(t *testing.T) {
	questions := []paper.Question{freeText(1)}
	res, err := newService(failIfCalled(t), DefaultConfig()).Diagnose(context.Background(), questions, nil)
	require.NoError(t, err)
	res.Results[0].Question.PromptText = "changed"
	assert.Equal(t, "question 1", questions[0].PromptText)
}

func TestDiagnose_WithLLMOracle(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.Respond = func(req llm.Request) llm.MockResponse {
		if strings.Contains(req.Messages[0].Content, "Question 2 ") {
			return llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("503")}}
		}
		return llm.MockResponse{Content: json.RawMessage(`{
			"correct": false,
			"correct_answer": "12",
			"error_kind": "careless_error",
			"mastery_score": 70,
			"guidance_text": "Recheck the multiplication.",
			"suggested_practice": []
		}`)}
	}
	oracle := diagnosis.NewLLMOracle(mock, diagnosis.DefaultOracleConfig())

	questions := []paper.Question{freeText(1, "multiplication"), freeText(2, "multiplication")}
	answers := []paper.Answer{paper.NewAnswer(1, "14"), paper.NewAnswer(2, "13")}

	res, err := newService(oracle, DefaultConfig()).Diagnose(context.Background(), questions, answers)
	require.NoError(t, err)

	assert.Equal(t, diagnosis.ErrorCareless, res.Results[0].DiagnoseResult.ErrorKind)
	assert.Equal(t, "12", res.Results[0].DiagnoseResult.ResolvedCorrectAnswer)
	assert.Equal(t, diagnosis.ErrorUnknown, res.Results[1].DiagnoseResult.ErrorKind)
	require.Len(t, res.Summary.WeakKnowledgePoints, 1)
	assert.Equal(t, 2, res.Summary.WeakKnowledgePoints[0].ErrorCount)
	assert.Equal(t, 2, mock.CallCount())
}

func TestDiagnoseOne(t *testing.T) {
	svc := newService(diagnosis.OracleFunc(func(context.Context, *paper.Question, string) (*diagnosis.Judgement, error) {
		return nil, errors.New("rate limited")
	}), Config{Concurrency: 1, Timeout: time.Second})

	choice := paper.Question{Index: 1, Type: "Choice", CorrectAnswer: key("B")}
	a := paper.NewAnswer(99, "b")
	v, err := svc.DiagnoseOne(context.Background(), choice, &a)
	require.NoError(t, err)
	assert.True(t, v.Correct)
	assert.Equal(t, 99, a.QuestionIndex, "caller's answer is not mutated")

	v, err = svc.DiagnoseOne(context.Background(), freeText(2, "ratios"), nil)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.ErrorUnanswered, v.ErrorKind)

	solved := paper.NewAnswer(3, "x = 4")
	v, err = svc.DiagnoseOne(context.Background(), freeText(3), &solved)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.ErrorUnknown, v.ErrorKind)
	assert.Equal(t, diagnosis.DegradedGuidance, v.GuidanceText)

	_, err = svc.DiagnoseOne(context.Background(), paper.Question{Index: 4, Type: "essay"}, nil)
	assert.True(t, IsInvalidInput(err))
}
