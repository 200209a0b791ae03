package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/abhisek/examdiag/internal/diagnosis"
	"github.com/abhisek/examdiag/internal/paper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q(index int, t paper.QuestionType, kps ...string) *paper.Question {
	return &paper.Question{Index: index, Type: t, KnowledgePoints: kps, Difficulty: paper.DifficultyMedium}
}

func correct(mastery int) *diagnosis.Verdict {
	return &diagnosis.Verdict{Correct: true, ErrorKind: diagnosis.ErrorNone, MasteryScore: mastery}
}

func wrong(mastery int) *diagnosis.Verdict {
	return &diagnosis.Verdict{ErrorKind: diagnosis.ErrorConcept, MasteryScore: mastery}
}

func unanswered() *diagnosis.Verdict {
	return &diagnosis.Verdict{ErrorKind: diagnosis.ErrorUnanswered}
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(nil)
	assert.Equal(t, 0, r.TotalQuestions)
	assert.Equal(t, 0.0, r.Accuracy)
	assert.Equal(t, 0.0, r.AverageMastery)
	assert.Empty(t, r.StatsByType)
	assert.NotNil(t, r.WeakKnowledgePoints)
	assert.NotEmpty(t, r.OverallSuggestion)
}

func TestAggregate_PartitionAndBounds(t *testing.T) {
	verdicts := []*diagnosis.Verdict{correct(90), wrong(20), unanswered(), correct(70), wrong(0), unanswered(), correct(100)}
	var items []Item
	for i, v := range verdicts {
		items = append(items, Item{Question: q(i+1, paper.TypeFill, "kp"), Verdict: v})
	}

	r := Aggregate(items)
	assert.Equal(t, r.TotalQuestions, r.CorrectCount+r.WrongCount+r.UnansweredCount)
	assert.Equal(t, 3, r.CorrectCount)
	assert.Equal(t, 2, r.WrongCount)
	assert.Equal(t, 2, r.UnansweredCount)
	assert.Equal(t, 5, r.AnsweredQuestions)
	assert.GreaterOrEqual(t, r.Accuracy, 0.0)
	assert.LessOrEqual(t, r.Accuracy, 100.0)
	assert.InDelta(t, 42.86, r.Accuracy, 0.01)
	// Unanswered questions pull the mean down.
	assert.InDelta(t, 40.0, r.AverageMastery, 0.001)
}

func TestAggregate_Idempotent(t *testing.T) {
	items := []Item{
		{q(1, paper.TypeChoice, "a", "b"), correct(100)},
		{q(2, paper.TypeSolve, "b"), wrong(30)},
		{q(3, paper.TypeProof, "c"), unanswered()},
	}
	assert.Equal(t, Aggregate(items), Aggregate(items))
}

func TestAggregate_TwoChoiceScenario(t *testing.T) {
	items := []Item{
		{q(1, paper.TypeChoice), correct(100)},
		{q(2, paper.TypeChoice), unanswered()},
	}
	r := Aggregate(items)
	assert.Equal(t, 2, r.TotalQuestions)
	assert.Equal(t, 1, r.CorrectCount)
	assert.Equal(t, 1, r.UnansweredCount)
	assert.Equal(t, 50.0, r.Accuracy)

	choice := r.StatsByType[paper.TypeChoice]
	assert.Equal(t, TypeStats{Total: 2, Correct: 1, Unanswered: 1, Accuracy: 50}, choice)
}

func TestAggregate_AllUnanswered(t *testing.T) {
	items := []Item{
		{q(1, paper.TypeFill, "x"), unanswered()},
		{q(2, paper.TypeSolve, "y"), unanswered()},
	}
	r := Aggregate(items)
	assert.Equal(t, 0.0, r.AverageMastery)
	assert.Empty(t, r.WeakKnowledgePoints, "unanswered questions do not make a point weak")
	assert.True(t, strings.HasPrefix(r.OverallSuggestion, "2 questions were left unanswered"))
}

func TestAggregate_StatsByType(t *testing.T) {
	items := []Item{
		{q(1, paper.TypeChoice), correct(100)},
		{q(2, paper.TypeChoice), wrong(0)},
		{q(3, paper.TypeSolve), wrong(40)},
		{q(4, paper.TypeSolve), correct(80)},
		{q(5, paper.TypeSolve), correct(90)},
		{q(6, paper.TypeProof), unanswered()},
	}
	r := Aggregate(items)
	require.Len(t, r.StatsByType, 3)
	assert.Equal(t, TypeStats{Total: 2, Correct: 1, Wrong: 1, Accuracy: 50}, r.StatsByType[paper.TypeChoice])
	assert.Equal(t, TypeStats{Total: 3, Correct: 2, Wrong: 1, Accuracy: 66.67}, r.StatsByType[paper.TypeSolve])
	assert.Equal(t, TypeStats{Total: 1, Unanswered: 1, Accuracy: 0}, r.StatsByType[paper.TypeProof])
}

func TestWeakPoints_Stat(t *testing.T) {
	items := []Item{
		{q(1, paper.TypeFill, "K"), wrong(10)},
		{q(2, paper.TypeFill, "K"), wrong(20)},
		{q(3, paper.TypeFill, "K"), correct(90)},
	}
	r := Aggregate(items)
	require.Len(t, r.WeakKnowledgePoints, 1)
	k := r.WeakKnowledgePoints[0]
	assert.Equal(t, "K", k.Knowledge)
	assert.Equal(t, 2, k.ErrorCount)
	assert.Equal(t, 3, k.TotalCount)
	assert.InDelta(t, 33.3, k.Accuracy, 0.1)
	assert.Equal(t, 4, k.RecommendedPracticeCount)
}

func TestWeakPoints_ExcludesUnansweredFromTotals(t *testing.T) {
	items := []Item{
		{q(1, paper.TypeFill, "K"), wrong(10)},
		{q(2, paper.TypeFill, "K"), unanswered()},
		{q(3, paper.TypeFill, "K"), correct(90)},
	}
	r := Aggregate(items)
	require.Len(t, r.WeakKnowledgePoints, 1)
	assert.Equal(t, 2, r.WeakKnowledgePoints[0].TotalCount)
	assert.Equal(t, 50.0, r.WeakKnowledgePoints[0].Accuracy)
}

func TestWeakPoints_SkipsPointsNeverMissed(t *testing.T) {
	items := []Item{
		{q(1, paper.TypeFill, "solid", "perfect"), correct(100)},
		{q(2, paper.TypeFill, "shaky", "solid"), wrong(40)},
		{q(3, paper.TypeFill, "solid"), correct(100)},
	}
	r := Aggregate(items)
	names := knowledgeNames(r.WeakKnowledgePoints)
	assert.Equal(t, []string{"shaky", "solid"}, names)
}

func TestWeakPoints_OrderingAndTruncation(t *testing.T) {
	var items []Item
	idx := 0
	add := func(kp string, wrongN, correctN int) {
		for range wrongN {
			idx++
			items = append(items, Item{q(idx, paper.TypeSolve, kp), wrong(0)})
		}
		for range correctN {
			idx++
			items = append(items, Item{q(idx, paper.TypeSolve, kp), correct(100)})
		}
	}
	add("half-a", 1, 1)   // 50%, 1 error
	add("zero-1", 1, 0)   // 0%, 1 error
	add("half-b", 2, 2)   // 50%, 2 errors
	add("zero-3", 3, 0)   // 0%, 3 errors
	add("two-3rds", 1, 2) // 66.7%
	add("zero-1b", 1, 0)  // 0%, 1 error, appears after zero-1
	add("ninety", 1, 9)   // 10%

	r := Aggregate(items)
	assert.Equal(t, []string{"zero-3", "zero-1", "zero-1b", "half-b", "half-a"}, knowledgeNames(r.WeakKnowledgePoints))
}

func TestWeakPoints_PracticeCountBounds(t *testing.T) {
	for errs, want := range map[int]int{1: 2, 2: 4, 3: 5, 7: 5} {
		t.Run(fmt.Sprintf("%d errors", errs), func(t *testing.T) {
			var items []Item
			for i := range errs {
				items = append(items, Item{q(i+1, paper.TypeFill, "K"), wrong(0)})
			}
			r := Aggregate(items)
			require.Len(t, r.WeakKnowledgePoints, 1)
			assert.Equal(t, want, r.WeakKnowledgePoints[0].RecommendedPracticeCount)
		})
	}
}

func TestBatchReport_JSONShape(t *testing.T) {
	r := Aggregate([]Item{{q(1, paper.TypeChoice, "K"), wrong(10)}})
	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, key := range []string{
		"total_questions", "answered_questions", "correct_count", "wrong_count", "unanswered_count",
		"accuracy", "average_mastery", "stats_by_type", "weak_knowledge_points", "overall_suggestion",
	} {
		assert.Contains(t, m, key)
	}
	assert.Contains(t, m["stats_by_type"], "choice")
	weak := m["weak_knowledge_points"].([]any)[0].(map[string]any)
	for _, key := range []string{"knowledge", "error_count", "total_count", "accuracy", "recommended_practice_count"} {
		assert.Contains(t, weak, key)
	}
}

func knowledgeNames(w []WeakKnowledgePoint) []string {
	out := make([]string, len(w))
	for i, p := range w {
		out[i] = p.Knowledge
	}
	return out
}
