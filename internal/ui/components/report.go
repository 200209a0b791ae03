package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examdiag/internal/batch"
	"github.com/abhisek/examdiag/internal/diagnosis"
	"github.com/abhisek/examdiag/internal/paper"
	"github.com/abhisek/examdiag/internal/ui/theme"
)

// Report renders a batch result for the terminal.
func Report(res *batch.Result, width int) string {
	width = max(width, 40)
	s := res.Summary

	var b strings.Builder
	b.WriteString(theme.Title.Render("Exam diagnosis"))
	b.WriteString("  " + theme.Hint.Render(res.BatchID) + "\n\n")

	counts := fmt.Sprintf("%d questions  %s  %s  %s",
		s.TotalQuestions,
		theme.Correct.Render(fmt.Sprintf("%d correct", s.CorrectCount)),
		theme.Incorrect.Render(fmt.Sprintf("%d wrong", s.WrongCount)),
		theme.Unanswered.Render(fmt.Sprintf("%d unanswered", s.UnansweredCount)),
	)
	inner := width - 8
	summary := lipgloss.JoinVertical(lipgloss.Left,
		counts,
		Bar{Label: "Accuracy", Percent: s.Accuracy, Width: inner}.View(),
		Bar{Label: "Mastery ", Percent: s.AverageMastery, Width: inner}.View(),
	)
	b.WriteString(theme.Card.Width(width).Render(summary) + "\n\n")

	b.WriteString(theme.Heading.Render("By type") + "\n")
	for _, t := range paper.QuestionTypes {
		st, ok := s.StatsByType[t]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %-13s %d/%d correct, %d unanswered  %s\n",
			t, st.Correct, st.Total, st.Unanswered, theme.Hint.Render(fmt.Sprintf("%.1f%%", st.Accuracy)))
	}

	if len(s.WeakKnowledgePoints) > 0 {
		b.WriteString("\n" + theme.Heading.Render("Weak knowledge points") + "\n")
		for i, w := range s.WeakKnowledgePoints {
			fmt.Fprintf(&b, "  %d. %s  %s\n", i+1, theme.Body.Render(w.Knowledge),
				theme.Hint.Render(fmt.Sprintf("%d of %d wrong, %.1f%%, practise %d",
					w.ErrorCount, w.TotalCount, w.Accuracy, w.RecommendedPracticeCount)))
		}
	}

	b.WriteString("\n" + theme.Heading.Render("Questions") + "\n")
	for _, r := range res.Results {
		v := r.DiagnoseResult
		fmt.Fprintf(&b, "  #%-3d %-13s %s\n", r.QuestionIndex, r.Question.Type, verdictLabel(v))
		if v.GuidanceText != "" {
			fmt.Fprintf(&b, "       %s\n", theme.Hint.Render(v.GuidanceText))
		}
	}

	b.WriteString("\n" + lipgloss.NewStyle().Width(width).Render(theme.Body.Render(s.OverallSuggestion)) + "\n")
	return b.String()
}

func verdictLabel(v *diagnosis.Verdict) string {
	switch {
	case v.ErrorKind == diagnosis.ErrorUnanswered:
		return theme.Unanswered.Render("- unanswered")
	case v.Correct:
		return theme.Correct.Render("✓ correct")
	case v.ErrorKind == diagnosis.ErrorUnknown:
		return theme.Degraded.Render("? " + string(v.ErrorKind))
	default:
		return theme.Incorrect.Render("✗ " + string(v.ErrorKind))
	}
}
