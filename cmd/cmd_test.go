package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examdiag/internal/batch"
	"github.com/abhisek/examdiag/internal/store"
)

const choiceRequest = `{
	"questions": [
		{"index": 1, "type": "choice", "options": ["A. 2", "B. 3"], "correct_answer": "A", "knowledge_points": ["addition"]},
		{"index": 2, "type": "choice", "options": ["A. 5", "B. 6"], "correct_answer": "B", "knowledge_points": ["addition"]}
	],
	"answers": [{"question_index": 1, "user_answer": "A"}]
}`

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EXAMDIAG_CONFIG", "")
	t.Setenv("EXAMDIAG_STORE_DSN", "")
	t.Setenv("EXAMDIAG_LLM_PROVIDER", "mock")
}

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "examdiag")
}

func TestDiagnose_JSON(t *testing.T) {
	setupEnv(t)
	path := writeTemp(t, "request.json", choiceRequest)

	out, err := run(t, "diagnose", path, "--json=true", "--config=", "--dsn=")
	require.NoError(t, err)

	var res batch.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Summary.TotalQuestions)
	assert.Equal(t, 1, res.Summary.UnansweredCount)
	assert.Equal(t, 50.0, res.Summary.Accuracy)
}

func TestDiagnose_Report(t *testing.T) {
	setupEnv(t)
	path := writeTemp(t, "request.json", choiceRequest)

	out, err := run(t, "diagnose", path, "--json=false", "--config=", "--dsn=")
	require.NoError(t, err)
	assert.Contains(t, out, "Exam diagnosis")
	assert.Contains(t, out, "unanswered")
}

func TestDiagnose_RejectsDuplicateIndex(t *testing.T) {
	setupEnv(t)
	path := writeTemp(t, "request.json", `{"questions": [{"index": 1, "type": "fill"}, {"index": 1, "type": "fill"}]}`)

	_, err := run(t, "diagnose", path, "--json=true", "--config=", "--dsn=")
	assert.ErrorContains(t, err, "duplicate question index 1")
}

func TestNormalize(t *testing.T) {
	setupEnv(t)
	path := writeTemp(t, "records.json", `{"questions": [{"index": 2, "type": "proof", "question": " Show it. "}]}`)

	out, err := run(t, "normalize", path, "--recognition=false", "--config=", "--dsn=")
	require.NoError(t, err)
	assert.Contains(t, out, `"prompt_text": "Show it."`)
	assert.Contains(t, out, `"difficulty": "medium"`)
}

func TestNormalize_Recognition(t *testing.T) {
	setupEnv(t)
	path := writeTemp(t, "page.json", `{"page_title": "Quiz", "part_info": [{"part_title": "Fill", "subject_list": [{"index": 1, "type": 1, "text": "2 + 2 = ____"}]}]}`)

	out, err := run(t, "normalize", path, "--recognition=true", "--config=", "--dsn=")
	require.NoError(t, err)
	assert.Contains(t, out, `"page_title": "Quiz"`)
	assert.Contains(t, out, `"type": "fill"`)
}

func TestCalls(t *testing.T) {
	setupEnv(t)
	dsn := filepath.Join(t.TempDir(), "calls.db")

	st, err := store.Open(context.Background(), store.DriverSQLite, dsn)
	require.NoError(t, err)
	repo := st.EventRepo()
	require.NoError(t, repo.AppendOracleCall(context.Background(), store.OracleCallEventData{
		BatchID: "b-1", Purpose: "answer-judgement", Provider: "openai", Model: "gpt-4.1-mini",
		InputTokens: 120, OutputTokens: 40, LatencyMs: 850, Success: true,
		RequestBody: `{"q":1}`, ResponseBody: `{"correct":true}`,
	}))
	require.NoError(t, repo.AppendOracleCall(context.Background(), store.OracleCallEventData{
		BatchID: "b-1", Purpose: "answer-judgement", Provider: "openai", Model: "gpt-4.1-mini",
		LatencyMs: 30000, ErrorMessage: "timeout",
	}))
	require.NoError(t, st.Close())

	out, err := run(t, "calls", "list", "--config=", "--dsn="+dsn, "--limit=20", "--purpose=", "--batch=")
	require.NoError(t, err)
	assert.Contains(t, out, "answer-judgement")
	assert.Contains(t, out, "gpt-4.1-mini")
	assert.Contains(t, out, "✗")

	out, err = run(t, "calls", "view", "1", "--config=", "--dsn="+dsn)
	require.NoError(t, err)
	assert.Contains(t, out, `{"correct":true}`)
	assert.Contains(t, out, "Batch:     b-1")

	_, err = run(t, "calls", "view", "99", "--config=", "--dsn="+dsn)
	assert.ErrorContains(t, err, "not found")

	out, err = run(t, "calls", "stats", "--config=", "--dsn="+dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "160")

	_, err = run(t, "calls", "list", "--config=", "--dsn=")
	assert.ErrorContains(t, err, "no call log configured")
}
