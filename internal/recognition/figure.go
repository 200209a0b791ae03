package recognition

import (
	"fmt"
	"strings"

	"github.com/abhisek/examdiag/internal/paper"
)

// A figure belongs to a question when its centre falls inside the
// question's bounding box stretched downward and to the right.
const (
	figureExtendDown  = 0.5
	figureExtendRight = 0.3
)

var figureTypeNames = map[string]string{
	"subject_pattern": "illustration",
	"subject_bracket": "bracket or symbol",
	"table":           "table",
}

func figuresFor(regions []paper.Polygon, figures []Figure) []Figure {
	if len(figures) == 0 {
		return nil
	}
	left, top, right, bottom, ok := bounds(regions)
	if !ok {
		return nil
	}
	maxX := right + (right-left)*figureExtendRight
	maxY := bottom + (bottom-top)*figureExtendDown

	var out []Figure
	for _, f := range figures {
		cx := f.X + f.W/2
		cy := f.Y + f.H/2
		if cx >= left && cx <= maxX && cy >= top && cy <= maxY {
			out = append(out, f)
		}
	}
	return out
}

func bounds(regions []paper.Polygon) (left, top, right, bottom float64, ok bool) {
	for _, poly := range regions {
		for _, pt := range poly {
			x, y := float64(pt.X), float64(pt.Y)
			if !ok {
				left, right, top, bottom = x, x, y, y
				ok = true
				continue
			}
			left = min(left, x)
			right = max(right, x)
			top = min(top, y)
			bottom = max(bottom, y)
		}
	}
	return left, top, right, bottom, ok
}

func describeFigures(figures []Figure) string {
	if len(figures) == 0 {
		return ""
	}
	lines := make([]string, 0, len(figures))
	for i, f := range figures {
		name, ok := figureTypeNames[f.Type]
		if !ok {
			name = f.Type
		}
		if name == "" {
			name = "unknown"
		}
		lines = append(lines, fmt.Sprintf("Figure %d: %s (at x=%g, y=%g, size %gx%g)", i+1, name, f.X, f.Y, f.W, f.H))
	}
	return strings.Join(lines, "\n")
}
