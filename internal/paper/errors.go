package paper

import "fmt"

// MalformedQuestionError reports a recognition record that cannot be turned
// into a Question. Index is 0 when the record had no usable index; Position
// is the 1-based place of the record in its batch when known.
type MalformedQuestionError struct {
	Index    int
	Position int
	Field    string
	Reason   string
}

func (e *MalformedQuestionError) Error() string {
	switch {
	case e.Index > 0:
		return fmt.Sprintf("malformed question %d: %s: %s", e.Index, e.Field, e.Reason)
	case e.Position > 0:
		return fmt.Sprintf("malformed question at position %d: %s: %s", e.Position, e.Field, e.Reason)
	default:
		return fmt.Sprintf("malformed question: %s: %s", e.Field, e.Reason)
	}
}
