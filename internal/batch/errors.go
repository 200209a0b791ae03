package batch

import (
	"errors"
	"fmt"

	"github.com/abhisek/examdiag/internal/paper"
)

// DuplicateQuestionIndexError reports two questions sharing an index.
type DuplicateQuestionIndexError struct {
	Index int
}

func (e *DuplicateQuestionIndexError) Error() string {
	return fmt.Sprintf("duplicate question index %d", e.Index)
}

// IsInvalidInput reports whether err rejects the batch because of its
// input shape, as opposed to an internal failure.
func IsInvalidInput(err error) bool {
	var dup *DuplicateQuestionIndexError
	var mal *paper.MalformedQuestionError
	return errors.As(err, &dup) || errors.As(err, &mal)
}
