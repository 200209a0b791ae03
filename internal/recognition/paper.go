// Package recognition adapts structured paper-recognition output into raw
// question records for the normalizer.
package recognition

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/examdiag/internal/paper"
)

// Vendor subject type codes.
const (
	subjectChoice     = 0
	subjectFill       = 1
	subjectSubjective = 2
)

// Vendor element type codes.
const (
	elementStem   = 0
	elementOption = 1
)

// Paper is one recognized page.
type Paper struct {
	PageID    int      `json:"page_id"`
	PageTitle string   `json:"page_title"`
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`
	Parts     []Part   `json:"part_info"`
	Figures   []Figure `json:"figure"`
}

// Part is a section of the paper, e.g. "I. Multiple choice".
type Part struct {
	Title    string    `json:"part_title"`
	Subjects []Subject `json:"subject_list"`
}

// Subject is a single recognized question.
type Subject struct {
	Index    int       `json:"index"`
	Type     *int      `json:"type"`
	Text     string    `json:"text"`
	PosList  []Outline `json:"pos_list"`
	Elements []Element `json:"element_list"`
}

// Element is a piece of a subject: its stem, an option or an answer area.
type Element struct {
	Type    int       `json:"type"`
	Text    string    `json:"text"`
	PosList []Outline `json:"pos_list"`
}

// Outline is a polygon in page coordinates. The vendor may send fractional
// values.
type Outline []struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Figure is a picture or table located on the page.
type Figure struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// ParsePaper decodes a recognition payload. A payload without any parts is
// rejected.
func ParsePaper(data []byte) (*Paper, error) {
	var p Paper
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode recognition payload: %w", err)
	}
	if len(p.Parts) == 0 {
		return nil, fmt.Errorf("recognition payload has no part_info")
	}
	return &p, nil
}

// Parsed is the adapter's view of one question before normalization.
type Parsed struct {
	Index             int
	Type              paper.QuestionType
	Stem              string
	Options           []string
	Regions           []paper.Polygon
	SectionTitle      string
	Figures           []Figure
	FigureDescription string
}

// Questions walks every part in page order and returns the parsed
// questions with split options merged back. Subjects without a usable
// index are numbered by their position on the page.
func (p *Paper) Questions() []Parsed {
	var out []Parsed
	pos := 0
	for _, part := range p.Parts {
		for _, s := range part.Subjects {
			pos++
			q := parseSubject(s, p.Figures)
			if q.Index <= 0 {
				q.Index = pos
			}
			q.SectionTitle = strings.TrimSpace(part.Title)
			out = append(out, q)
		}
	}
	return MergeSplitOptions(out)
}

// Records renders Questions as normalizer input.
func (p *Paper) Records() []paper.Record {
	qs := p.Questions()
	recs := make([]paper.Record, 0, len(qs))
	for _, q := range qs {
		rec := paper.Record{
			"index":         q.Index,
			"type":          string(q.Type),
			"prompt_text":   q.Stem,
			"section_title": q.SectionTitle,
			"has_figure":    len(q.Figures) > 0,
		}
		if len(q.Options) > 0 {
			opts := make([]any, len(q.Options))
			for i, o := range q.Options {
				opts[i] = o
			}
			rec["options"] = opts
		}
		if len(q.Regions) > 0 {
			rec["bounding_regions"] = regionsValue(q.Regions)
		}
		if q.FigureDescription != "" {
			rec["figure_description"] = q.FigureDescription
		}
		recs = append(recs, rec)
	}
	return recs
}

func parseSubject(s Subject, figures []Figure) Parsed {
	code := subjectSubjective
	if s.Type != nil {
		code = *s.Type
	}

	var stem string
	var options []string
	for _, el := range s.Elements {
		switch {
		case el.Type == elementStem:
			stem = el.Text
		case el.Type == elementOption && code == subjectChoice:
			options = append(options, strings.TrimSpace(el.Text))
		}
	}
	if strings.TrimSpace(stem) == "" {
		stem = s.Text
	}
	stem = strings.TrimSpace(stem)

	regions := make([]paper.Polygon, 0, len(s.PosList))
	for _, o := range s.PosList {
		if poly := o.polygon(); len(poly) > 0 {
			regions = append(regions, poly)
		}
	}

	q := Parsed{
		Index:   s.Index,
		Type:    classify(code, stem),
		Stem:    stem,
		Options: options,
		Regions: regions,
	}
	q.Figures = figuresFor(regions, figures)
	q.FigureDescription = describeFigures(q.Figures)
	return q
}

var (
	proofKeywords = []string{"证明", "求证", "试证", "prove", "show that"}
	solveKeywords = []string{"计算", "求", "解", "calculate", "compute", "solve", "find", "evaluate"}
)

// classify maps a vendor type code to a question type. Subjective
// questions are refined by keywords in the stem.
func classify(code int, stem string) paper.QuestionType {
	switch code {
	case subjectChoice:
		return paper.TypeChoice
	case subjectFill:
		return paper.TypeFill
	}
	lower := strings.ToLower(stem)
	switch {
	case containsAny(lower, proofKeywords):
		return paper.TypeProof
	case containsAny(lower, solveKeywords):
		return paper.TypeSolve
	default:
		return paper.TypeShortAnswer
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func (o Outline) polygon() paper.Polygon {
	poly := make(paper.Polygon, 0, len(o))
	for _, pt := range o {
		poly = append(poly, paper.Point{X: int(math.Round(pt.X)), Y: int(math.Round(pt.Y))})
	}
	return poly
}

func regionsValue(regions []paper.Polygon) []any {
	out := make([]any, 0, len(regions))
	for _, poly := range regions {
		pts := make([]any, 0, len(poly))
		for _, pt := range poly {
			pts = append(pts, map[string]any{"x": pt.X, "y": pt.Y})
		}
		out = append(out, pts)
	}
	return out
}
