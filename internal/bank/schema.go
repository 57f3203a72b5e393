package bank

// documentSchema is the JSON schema for question bank files.
var documentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"format_version": map[string]any{
			"type":        "string",
			"description": "Semantic version of the bank file format, e.g. v1.0.0",
		},
		"topics": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":      map[string]any{"type": "string", "minLength": 1},
					"name":    map[string]any{"type": "string"},
					"subject": map[string]any{"type": "string"},
				},
				"required": []any{"id", "name"},
			},
		},
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":           map[string]any{"type": "string", "minLength": 1},
					"topic_id":     map[string]any{"type": "string", "minLength": 1},
					"difficulty":   map[string]any{"type": "number"},
					"prompt":       map[string]any{"type": "string", "minLength": 1},
					"options":      map[string]any{"type": "array", "minItems": 2, "items": map[string]any{"type": "string"}},
					"answer_index": map[string]any{"type": "integer", "minimum": 0},
					"explanation":  map[string]any{"type": "string"},
					"citation":     map[string]any{"type": "string"},
				},
				"required": []any{"id", "topic_id", "difficulty", "prompt", "options", "answer_index"},
			},
		},
	},
	"required":             []any{"format_version", "topics", "items"},
	"additionalProperties": false,
}
