package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examdiag/internal/ui/theme"
)

// Bar renders a labelled horizontal percentage bar.
type Bar struct {
	Label string

	// Percent is in [0, 100]; values outside are clamped.
	Percent float64

	// Width is the total rendered width including label and figure.
	Width int
}

// View renders the bar.
func (b Bar) View() string {
	var out string
	if b.Label != "" {
		out = theme.Body.Render(b.Label) + "  "
	}

	const figureWidth = 8 // "  100.0%"
	barWidth := max(b.Width-lipgloss.Width(out)-figureWidth, 4)

	pct := min(max(b.Percent, 0), 100)
	filled := min(int(float64(barWidth)*pct/100), barWidth)

	out += theme.BarFilled.Render(strings.Repeat(" ", filled))
	out += theme.BarEmpty.Render(strings.Repeat(" ", barWidth-filled))
	out += theme.Hint.Render(fmt.Sprintf("  %5.1f%%", pct))
	return out
}
