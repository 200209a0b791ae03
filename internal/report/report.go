// Package report aggregates per-question verdicts into a batch summary.
//
// Everything here is a pure function of its input: the same items always
// produce the same BatchReport.
package report

import (
	"math"
	"sort"

	"github.com/abhisek/examdiag/internal/diagnosis"
	"github.com/abhisek/examdiag/internal/paper"
)

const (
	maxWeakPoints      = 5
	minPracticeCount   = 2
	maxPracticeCount   = 5
	suggestedWeakNames = 3
)

// Item pairs a question with its resolved verdict.
type Item struct {
	Question *paper.Question
	Verdict  *diagnosis.Verdict
}

// TypeStats counts outcomes for one question type.
type TypeStats struct {
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Wrong      int     `json:"wrong"`
	Unanswered int     `json:"unanswered"`
	Accuracy   float64 `json:"accuracy"`
}

// WeakKnowledgePoint is a knowledge tag that was answered wrong at least
// once.
type WeakKnowledgePoint struct {
	Knowledge                string  `json:"knowledge"`
	ErrorCount               int     `json:"error_count"`
	TotalCount               int     `json:"total_count"`
	Accuracy                 float64 `json:"accuracy"`
	RecommendedPracticeCount int     `json:"recommended_practice_count"`
}

// BatchReport summarizes one batch. It is derived entirely from the items
// it was built from.
type BatchReport struct {
	TotalQuestions      int                              `json:"total_questions"`
	AnsweredQuestions   int                              `json:"answered_questions"`
	CorrectCount        int                              `json:"correct_count"`
	WrongCount          int                              `json:"wrong_count"`
	UnansweredCount     int                              `json:"unanswered_count"`
	Accuracy            float64                          `json:"accuracy"`
	AverageMastery      float64                          `json:"average_mastery"`
	StatsByType         map[paper.QuestionType]TypeStats `json:"stats_by_type"`
	WeakKnowledgePoints []WeakKnowledgePoint             `json:"weak_knowledge_points"`
	OverallSuggestion   string                           `json:"overall_suggestion"`
}

type outcome int

const (
	outcomeCorrect outcome = iota
	outcomeWrong
	outcomeUnanswered
)

func classify(v *diagnosis.Verdict) outcome {
	switch {
	case v.ErrorKind == diagnosis.ErrorUnanswered:
		return outcomeUnanswered
	case v.Correct:
		return outcomeCorrect
	default:
		return outcomeWrong
	}
}

// Aggregate builds the report for items, which must be in question order.
func Aggregate(items []Item) *BatchReport {
	r := &BatchReport{
		TotalQuestions:      len(items),
		StatsByType:         make(map[paper.QuestionType]TypeStats),
		WeakKnowledgePoints: []WeakKnowledgePoint{},
	}

	var masterySum int
	for _, it := range items {
		o := classify(it.Verdict)
		ts := r.StatsByType[it.Question.Type]
		ts.Total++
		switch o {
		case outcomeCorrect:
			r.CorrectCount++
			ts.Correct++
		case outcomeWrong:
			r.WrongCount++
			ts.Wrong++
		case outcomeUnanswered:
			r.UnansweredCount++
			ts.Unanswered++
		}
		r.StatsByType[it.Question.Type] = ts
		masterySum += it.Verdict.MasteryScore
	}

	r.AnsweredQuestions = r.TotalQuestions - r.UnansweredCount
	r.Accuracy = percent(r.CorrectCount, r.TotalQuestions)
	if r.TotalQuestions > 0 {
		r.AverageMastery = round2(float64(masterySum) / float64(r.TotalQuestions))
	}
	for t, ts := range r.StatsByType {
		ts.Accuracy = percent(ts.Correct, ts.Total)
		r.StatsByType[t] = ts
	}

	r.WeakKnowledgePoints = weakPoints(items)
	r.OverallSuggestion = Suggest(r)
	return r
}

type kpTally struct {
	name   string
	first  int
	errors int
	total  int
}

// weakPoints ranks knowledge points that appear on at least one wrong
// answer. Unanswered questions are not counted either way.
func weakPoints(items []Item) []WeakKnowledgePoint {
	tallies := make(map[string]*kpTally)
	var order []*kpTally

	for _, it := range items {
		o := classify(it.Verdict)
		if o == outcomeUnanswered {
			continue
		}
		for _, kp := range it.Question.KnowledgePoints {
			t, ok := tallies[kp]
			if !ok {
				t = &kpTally{name: kp, first: len(order)}
				tallies[kp] = t
				order = append(order, t)
			}
			t.total++
			if o == outcomeWrong {
				t.errors++
			}
		}
	}

	weak := make([]kpTally, 0, len(order))
	for _, t := range order {
		if t.errors > 0 && t.total > 0 {
			weak = append(weak, *t)
		}
	}

	sort.SliceStable(weak, func(i, j int) bool {
		ai := accuracyOf(weak[i])
		aj := accuracyOf(weak[j])
		if ai != aj {
			return ai < aj
		}
		if weak[i].errors != weak[j].errors {
			return weak[i].errors > weak[j].errors
		}
		return weak[i].first < weak[j].first
	})

	if len(weak) > maxWeakPoints {
		weak = weak[:maxWeakPoints]
	}

	out := make([]WeakKnowledgePoint, len(weak))
	for i, t := range weak {
		out[i] = WeakKnowledgePoint{
			Knowledge:                t.name,
			ErrorCount:               t.errors,
			TotalCount:               t.total,
			Accuracy:                 percent(t.total-t.errors, t.total),
			RecommendedPracticeCount: min(maxPracticeCount, max(minPracticeCount, t.errors*2)),
		}
	}
	return out
}

// accuracyOf compares on the exact ratio so rounding never reorders ties.
func accuracyOf(t kpTally) float64 {
	return float64(t.total-t.errors) / float64(t.total)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(100 * float64(n) / float64(total))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
