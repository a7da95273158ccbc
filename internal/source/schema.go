package source

import "github.com/abhisek/prepquiz/internal/llm"

// BatchSchema defines the JSON schema for a batch of generated MCQs.
var BatchSchema = &llm.Schema{
	Name:        "mcq-batch",
	Description: "A batch of multiple-choice aptitude questions with answers and explanations",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":  "array",
				"items": QuestionSchema.Definition,
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

// QuestionSchema defines one MCQ in the backend's wire shape.
var QuestionSchema = &llm.Schema{
	Name:        "mcq",
	Description: "A single multiple-choice aptitude question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question prompt shown to the learner, in plain text",
			},
			"options": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Exactly 4 answer options",
			},
			"answer": map[string]any{
				"type":        "string",
				"description": "The correct answer, copied exactly from one of the options",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "A short worked solution",
			},
		},
		"required":             []any{"question", "options", "answer", "explanation"},
		"additionalProperties": false,
	},
}
