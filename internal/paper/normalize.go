package paper

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is a raw question record as produced by a recognition provider.
// Field types are not trusted.
type Record map[string]any

// Normalize converts a raw record into a canonical Question.
//
// Only a missing or invalid index and a missing or unrecognized type are
// errors. Unknown fields are ignored; knowledge_points defaults to empty and
// difficulty to medium.
func Normalize(rec Record) (*Question, error) {
	idx, err := recordIndex(rec)
	if err != nil {
		return nil, err
	}

	rawType, ok := rec["type"]
	if !ok || rawType == nil {
		return nil, &MalformedQuestionError{Index: idx, Field: "type", Reason: "missing"}
	}
	typeStr, ok := rawType.(string)
	if !ok {
		return nil, &MalformedQuestionError{Index: idx, Field: "type", Reason: fmt.Sprintf("expected string, got %T", rawType)}
	}
	qt, ok := ParseQuestionType(typeStr)
	if !ok {
		return nil, &MalformedQuestionError{Index: idx, Field: "type", Reason: fmt.Sprintf("unrecognized kind %q", typeStr)}
	}

	q := &Question{
		Index:           idx,
		Type:            qt,
		PromptText:      firstString(rec, "prompt_text", "question", "text"),
		KnowledgePoints: stringSet(rec["knowledge_points"]),
		Difficulty:      ParseDifficulty(firstString(rec, "difficulty")),
		BoundingRegions: polygons(firstPresent(rec, "bounding_regions", "position", "pos_list")),
		SectionTitle:    firstString(rec, "section_title"),
	}

	if qt == TypeChoice {
		q.Options = trimmedStrings(rec["options"])
	}
	if ans, ok := scalarString(rec["correct_answer"]); ok && strings.TrimSpace(ans) != "" {
		q.CorrectAnswer = &ans
	}
	if v, ok := rec["has_figure"].(bool); ok {
		q.HasFigure = v
	}
	q.FigureDescription = firstString(rec, "figure_description")

	return q, nil
}

// NormalizeAll normalizes records in order, stopping at the first malformed
// one. Errors carry the 1-based position of the offending record.
func NormalizeAll(recs []Record) ([]Question, error) {
	out := make([]Question, 0, len(recs))
	for i, rec := range recs {
		q, err := Normalize(rec)
		if err != nil {
			var mq *MalformedQuestionError
			if errors.As(err, &mq) {
				mq.Position = i + 1
			}
			return nil, err
		}
		out = append(out, *q)
	}
	return out, nil
}

func recordIndex(rec Record) (int, error) {
	raw, ok := rec["index"]
	if !ok || raw == nil {
		return 0, &MalformedQuestionError{Field: "index", Reason: "missing"}
	}
	var n float64
	switch v := raw.(type) {
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case float64:
		n = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, &MalformedQuestionError{Field: "index", Reason: fmt.Sprintf("not a number: %q", v)}
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, &MalformedQuestionError{Field: "index", Reason: fmt.Sprintf("not a number: %q", v)}
		}
		n = f
	default:
		return 0, &MalformedQuestionError{Field: "index", Reason: fmt.Sprintf("unsupported type %T", raw)}
	}
	if n != math.Trunc(n) || n < 1 || n > math.MaxInt32 {
		return 0, &MalformedQuestionError{Field: "index", Reason: fmt.Sprintf("must be a positive integer, got %v", n)}
	}
	return int(n), nil
}

func firstPresent(rec Record, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(rec Record, keys ...string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// scalarString renders strings and numbers as text. Everything else is
// rejected.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

func trimmedStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			items = make([]any, len(ss))
			for i, s := range ss {
				items[i] = s
			}
		} else {
			return nil
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := scalarString(it); ok {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func stringSet(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = []string{t}
	default:
		raw = trimmedStrings(v)
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// polygons accepts [[{x,y},...],...] or [[[x,y],...],...]. Points that do
// not parse are skipped.
func polygons(v any) []Polygon {
	groups, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Polygon
	for _, g := range groups {
		pts, ok := g.([]any)
		if !ok {
			continue
		}
		var poly Polygon
		for _, p := range pts {
			if pt, ok := point(p); ok {
				poly = append(poly, pt)
			}
		}
		if len(poly) > 0 {
			out = append(out, poly)
		}
	}
	return out
}

func point(v any) (Point, bool) {
	switch t := v.(type) {
	case map[string]any:
		x, okX := number(t["x"])
		y, okY := number(t["y"])
		return Point{X: x, Y: y}, okX && okY
	case []any:
		if len(t) != 2 {
			return Point{}, false
		}
		x, okX := number(t[0])
		y, okY := number(t[1])
		return Point{X: x, Y: y}, okX && okY
	}
	return Point{}, false
}

func number(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(math.Round(t)), true
	case int:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return int(math.Round(f)), err == nil
	}
	return 0, false
}
