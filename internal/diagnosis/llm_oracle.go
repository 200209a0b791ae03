package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/abhisek/examdiag/internal/llm"
	"github.com/abhisek/examdiag/internal/paper"
)

// PurposeJudge labels oracle calls in the call log.
const PurposeJudge = "answer-judgement"

// OracleConfig holds generation settings for the LLM oracle.
type OracleConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	// Timeout bounds one Judge call including provider retries. It comes
	// from llm.timeout rather than the oracle section.
	Timeout time.Duration `yaml:"-"`
}

// DefaultOracleConfig returns sensible defaults.
func DefaultOracleConfig() OracleConfig {
	return OracleConfig{
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

// LLMOracle judges answers with a language model.
type LLMOracle struct {
	provider llm.Provider
	cfg      OracleConfig
}

// NewLLMOracle creates an oracle backed by provider.
func NewLLMOracle(provider llm.Provider, cfg OracleConfig) *LLMOracle {
	return &LLMOracle{provider: provider, cfg: cfg}
}

func (o *LLMOracle) Judge(ctx context.Context, q *paper.Question, answer string) (*Judgement, error) {
	ctx = llm.WithPurpose(ctx, PurposeJudge)
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	userMsg, err := buildJudgeMessage(q, answer)
	if err != nil {
		return nil, fmt.Errorf("build judge prompt: %w", err)
	}

	resp, err := o.provider.Generate(ctx, llm.Request{
		System:      judgeSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      JudgeSchema,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM judgement failed: %w", err)
	}

	var j Judgement
	if err := json.Unmarshal(resp.Content, &j); err != nil {
		return nil, fmt.Errorf("parse judgement: %w", err)
	}
	return &j, nil
}

const judgeSystemPrompt = `You are an experienced mathematics teacher grading one question from a student's exam paper.

Instructions:
- Decide whether the student's answer is correct. Accept equivalent forms (e.g. 0.5 and 1/2, or the same expression rearranged).
- If no reference answer is given, solve the question yourself first and report your answer as correct_answer.
- error_kind is "none" when correct, "concept_error" when the mistake shows a misunderstanding, "careless_error" for an arithmetic or copying slip, and "unknown" if you cannot tell.
- mastery_score estimates, from 0 to 100, how well the student commands the knowledge this question tests.
- guidance_text is two or three sentences addressed to the student: what went wrong and what to do next.
- suggested_practice lists knowledge points worth drilling, with a difficulty and a question count between 1 and 5. Use an empty list when the answer is correct.`

var judgeUserTemplate = template.Must(template.New("judge").Parse(`Question {{.Q.Index}} ({{.Q.Type}}, {{.Q.Difficulty}})
{{.Q.PromptText}}
{{- if .Q.Options}}

Options:
{{range .Q.Options}}- {{.}}
{{end}}
{{- end}}
{{- if .Q.HasFigure}}

Figure: {{.Q.FigureDescription}}
{{- end}}
{{- if .Q.KnowledgePoints}}

Knowledge points: {{range $i, $kp := .Q.KnowledgePoints}}{{if $i}}, {{end}}{{$kp}}{{end}}
{{- end}}

Reference answer: {{if .Key}}{{.Key}}{{else}}(not provided){{end}}
Student's answer: {{.Answer}}
`))

func buildJudgeMessage(q *paper.Question, answer string) (string, error) {
	var buf bytes.Buffer
	err := judgeUserTemplate.Execute(&buf, struct {
		Q      *paper.Question
		Key    string
		Answer string
	}{Q: q, Key: q.CorrectAnswerText(), Answer: answer})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
