// Package batch diagnoses a whole exam paper at once.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/examdiag/internal/diagnosis"
	"github.com/abhisek/examdiag/internal/llm"
	"github.com/abhisek/examdiag/internal/logger"
	"github.com/abhisek/examdiag/internal/paper"
	"github.com/abhisek/examdiag/internal/report"
)

// Config bounds a batch run.
type Config struct {
	// Concurrency caps in-flight resolutions. Values below 1 mean 1.
	Concurrency int `yaml:"concurrency"`

	// Timeout bounds the whole batch. Questions still waiting on the oracle
	// when it fires are degraded. Zero disables the limit.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the batch defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		Timeout:     2 * time.Minute,
	}
}

// Resolver is the per-question judge the service fans out to.
type Resolver interface {
	Resolve(ctx context.Context, q *paper.Question, a *paper.Answer) (*diagnosis.Verdict, error)
}

// QuestionResult is the drill-down entry for one question.
type QuestionResult struct {
	QuestionIndex  int                `json:"question_index"`
	Question       *paper.Question    `json:"question"`
	DiagnoseResult *diagnosis.Verdict `json:"diagnose_result"`
}

// Result is the full outcome of a batch: per-question verdicts in question
// order plus the aggregate summary.
type Result struct {
	BatchID string              `json:"batch_id"`
	Results []QuestionResult    `json:"results"`
	Summary *report.BatchReport `json:"summary"`
}

// Service runs batch diagnoses. It holds no per-batch state and is safe
// for concurrent use.
type Service struct {
	resolver Resolver
	cfg      Config
	log      *logger.Logger
}

// NewService creates a batch service.
func NewService(resolver Resolver, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{resolver: resolver, cfg: cfg, log: log}
}

// Diagnose resolves every question against its answer and aggregates the
// outcome. Input errors reject the batch before any oracle call; oracle
// failures only degrade the affected question.
func (s *Service) Diagnose(ctx context.Context, questions []paper.Question, answers []paper.Answer) (*Result, error) {
	if err := validate(questions); err != nil {
		return nil, err
	}

	qs := make([]paper.Question, len(questions))
	copy(qs, questions)

	byIndex := make(map[int]int, len(qs))
	for i := range qs {
		qs[i].Type, _ = paper.ParseQuestionType(string(qs[i].Type))
		byIndex[qs[i].Index] = i
	}

	// Later answers for the same index replace earlier ones.
	matched := make(map[int]*paper.Answer, len(answers))
	for i := range answers {
		a := answers[i]
		if _, ok := byIndex[a.QuestionIndex]; !ok {
			s.log.Debug("ignoring answer for unknown question", "question_index", a.QuestionIndex)
			continue
		}
		matched[a.QuestionIndex] = &a
	}

	batchID := uuid.NewString()
	log := s.log.With("batch_id", batchID)
	start := time.Now()
	log.Info("batch diagnosis started", "questions", len(qs), "answers", len(answers))

	ctx = llm.WithBatchID(ctx, batchID)
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	verdicts := make([]*diagnosis.Verdict, len(qs))
	var degraded atomic.Int32

	var g errgroup.Group
	g.SetLimit(max(s.cfg.Concurrency, 1))
	for i := range qs {
		g.Go(func() error {
			q := &qs[i]
			a := matched[q.Index]

			v, err := s.resolver.Resolve(ctx, q, a)
			if err != nil {
				degraded.Add(1)
				log.Warn("question degraded", "question_index", q.Index, "error", err,
					"timeout", errors.Is(err, context.DeadlineExceeded))
				v = diagnosis.Degraded(q, a)
			}
			verdicts[i] = v
			return nil
		})
	}
	_ = g.Wait()

	items := make([]report.Item, len(qs))
	results := make([]QuestionResult, len(qs))
	for i := range qs {
		items[i] = report.Item{Question: &qs[i], Verdict: verdicts[i]}
		results[i] = QuestionResult{QuestionIndex: qs[i].Index, Question: &qs[i], DiagnoseResult: verdicts[i]}
	}
	summary := report.Aggregate(items)

	log.Info("batch diagnosis finished",
		"elapsed_ms", time.Since(start).Milliseconds(),
		"degraded", degraded.Load(),
		"accuracy", summary.Accuracy,
	)

	return &Result{BatchID: batchID, Results: results, Summary: summary}, nil
}

// DiagnoseOne judges a single question under the same timeout and
// degradation rules as a batch. a may be nil.
func (s *Service) DiagnoseOne(ctx context.Context, q paper.Question, a *paper.Answer) (*diagnosis.Verdict, error) {
	if err := validate([]paper.Question{q}); err != nil {
		return nil, err
	}
	q.Type, _ = paper.ParseQuestionType(string(q.Type))
	if a != nil {
		bound := *a
		bound.QuestionIndex = q.Index
		a = &bound
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	v, err := s.resolver.Resolve(ctx, &q, a)
	if err != nil {
		s.log.Warn("question degraded", "question_index", q.Index, "error", err,
			"timeout", errors.Is(err, context.DeadlineExceeded))
		return diagnosis.Degraded(&q, a), nil
	}
	return v, nil
}

// validate checks the typed questions before any work starts.
func validate(questions []paper.Question) error {
	seen := make(map[int]struct{}, len(questions))
	for pos, q := range questions {
		if q.Index <= 0 {
			return &paper.MalformedQuestionError{Position: pos + 1, Field: "index", Reason: "must be a positive integer"}
		}
		if _, ok := paper.ParseQuestionType(string(q.Type)); !ok {
			return &paper.MalformedQuestionError{Index: q.Index, Field: "type", Reason: fmt.Sprintf("unrecognized question type %q", q.Type)}
		}
		if _, dup := seen[q.Index]; dup {
			return &DuplicateQuestionIndexError{Index: q.Index}
		}
		seen[q.Index] = struct{}{}
	}
	return nil
}
