package diagnosis

import "github.com/abhisek/examdiag/internal/llm"

// JudgeSchema is the JSON schema the oracle's answer must satisfy.
var JudgeSchema = &llm.Schema{
	Name:        "answer-judgement",
	Description: "Judgement of a learner's answer to one exam question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct": map[string]any{
				"type":        "boolean",
				"description": "Whether the learner's answer is correct",
			},
			"correct_answer": map[string]any{
				"type":        "string",
				"description": "The reference answer, solved if no key was given",
			},
			"error_kind": map[string]any{
				"type":        "string",
				"enum":        []any{"none", "concept_error", "careless_error", "unknown"},
				"description": "none when correct; concept_error for a misunderstanding; careless_error for a slip",
			},
			"mastery_score": map[string]any{
				"type":        "integer",
				"description": "Estimated mastery of the tested knowledge, 0-100",
			},
			"guidance_text": map[string]any{
				"type":        "string",
				"description": "Two or three sentences of analysis and next steps addressed to the learner",
			},
			"suggested_practice": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"knowledge_point": map[string]any{"type": "string"},
						"difficulty":      map[string]any{"type": "string", "enum": []any{"easy", "medium", "hard"}},
						"count":           map[string]any{"type": "integer"},
					},
					"required":             []any{"knowledge_point", "difficulty", "count"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"correct", "correct_answer", "error_kind", "mastery_score", "guidance_text", "suggested_practice"},
		"additionalProperties": false,
	},
}
