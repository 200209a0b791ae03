package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	batchKey   contextKey = "llm_batch"
)

// WithPurpose labels calls made with ctx, e.g. "answer-judgement".
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithBatchID tags calls with the batch they were made for.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchKey, id)
}

// BatchIDFrom returns the batch tag, or "" when none was set.
func BatchIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(batchKey).(string)
	return v
}
