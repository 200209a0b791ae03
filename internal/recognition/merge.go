package recognition

import (
	"regexp"
	"strings"

	"github.com/abhisek/examdiag/internal/paper"
)

var (
	optionStart  = regexp.MustCompile(`^(?:\$\$)?[A-D]\s*[.,、．]`)
	optionMarker = regexp.MustCompile(`(?:\$\$)?[A-D]\s*[.、．]`)
)

// IsOptionsOnly reports whether text is just a run of choice options,
// e.g. "A. 1 B. 2 C. 3 D. 4", with no stem.
func IsOptionsOnly(text string) bool {
	text = strings.TrimSpace(text)
	if !optionStart.MatchString(text) {
		return false
	}
	return len(optionMarker.FindAllStringIndex(text, -1)) >= 2
}

// SplitOptions cuts an options-only text at each option marker. Each
// option keeps its marker.
func SplitOptions(text string) []string {
	text = strings.TrimSpace(text)
	locs := optionMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if opt := strings.TrimSpace(text[loc[0]:end]); opt != "" {
			out = append(out, opt)
		}
	}
	return out
}

// MergeSplitOptions folds a subject whose stem is only options into the
// choice question right before it when that question has no options of
// its own. Recognition sometimes cuts one question in two this way.
func MergeSplitOptions(qs []Parsed) []Parsed {
	out := make([]Parsed, 0, len(qs))
	for _, q := range qs {
		if n := len(out); n > 0 && IsOptionsOnly(q.Stem) {
			prev := &out[n-1]
			if prev.Type == paper.TypeChoice && len(prev.Options) == 0 {
				if opts := SplitOptions(q.Stem); len(opts) > 0 {
					prev.Options = opts
					prev.Regions = append(prev.Regions, q.Regions...)
					continue
				}
			}
		}
		out = append(out, q)
	}
	return out
}
