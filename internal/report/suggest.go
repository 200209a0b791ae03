package report

import (
	"fmt"
	"strings"
)

// Accuracy bands for the overall suggestion.
const (
	bandExcellent = 90
	bandGood      = 75
	bandFair      = 60
)

// Suggest writes the overall suggestion for r. Clauses always appear in
// the same order: unanswered nudge, accuracy band, weak points.
func Suggest(r *BatchReport) string {
	var parts []string

	if r.UnansweredCount > 0 {
		noun := "questions were"
		if r.UnansweredCount == 1 {
			noun = "question was"
		}
		parts = append(parts, fmt.Sprintf(
			"%d %s left unanswered; attempt every question so the diagnosis reflects what you actually know.",
			r.UnansweredCount, noun))
	}

	switch {
	case r.Accuracy >= bandExcellent:
		parts = append(parts, "Excellent work: accuracy is outstanding, so try more challenging problems next.")
	case r.Accuracy >= bandGood:
		parts = append(parts, "Good work: accuracy is solid, with some room to improve by reviewing the mistakes.")
	case r.Accuracy >= bandFair:
		parts = append(parts, "Fair result: strengthen the fundamentals and redo the questions you got wrong.")
	default:
		parts = append(parts, "Needs improvement: review the underlying concepts systematically and practise the basics.")
	}

	if len(r.WeakKnowledgePoints) > 0 {
		n := min(len(r.WeakKnowledgePoints), suggestedWeakNames)
		names := make([]string, n)
		for i := range n {
			names[i] = r.WeakKnowledgePoints[i].Knowledge
		}
		parts = append(parts, fmt.Sprintf("Focus your practice on: %s.", strings.Join(names, ", ")))
	}

	return strings.Join(parts, " ")
}
