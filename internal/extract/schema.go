package extract

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// intentSchema is applied after key normalization and orphan removal. Null
// and placeholder values ("?") fail the number types.
const intentSchema = `{
	"type": "object",
	"required": ["theme", "active_stems", "target_gains", "fade_durations"],
	"properties": {
		"theme": {"enum": ["explore", "stealth", "combat", "bosscombat"]},
		"active_stems": {
			"type": "array",
			"minItems": 1,
			"uniqueItems": true,
			"items": {"type": "string", "minLength": 1}
		},
		"target_gains": {
			"type": "object",
			"additionalProperties": {"type": "number", "minimum": 0, "maximum": 1}
		},
		"fade_durations": {
			"type": "object",
			"additionalProperties": {"type": "number", "exclusiveMinimum": 0}
		},
		"timestamp": {"type": ["string", "null"]}
	}
}`

const schemaURL = "musical-intent.json"

func compileSchema() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(intentSchema), &doc); err != nil {
		return nil, fmt.Errorf("decode intent schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add intent schema: %w", err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile intent schema: %w", err)
	}
	return sch, nil
}
