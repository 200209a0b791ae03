package diagnosis

import (
	"context"

	"github.com/abhisek/examdiag/internal/paper"
)

// Oracle judges a free-text answer. Implementations may be slow, may fail
// and may return nonsense; the Resolver treats them accordingly.
type Oracle interface {
	Judge(ctx context.Context, q *paper.Question, answer string) (*Judgement, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context, q *paper.Question, answer string) (*Judgement, error)

func (f OracleFunc) Judge(ctx context.Context, q *paper.Question, answer string) (*Judgement, error) {
	return f(ctx, q, answer)
}
