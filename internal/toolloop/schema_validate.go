package toolloop

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaCache compiles and memoizes each tool's JSON Schema so dispatchOne
// doesn't recompile it on every call.
type schemaCache struct {
	mu     sync.Mutex
	byTool map[string]*jsonschema.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{byTool: make(map[string]*jsonschema.Schema)}
}

func (c *schemaCache) compile(toolName string, raw json.RawMessage) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.byTool[toolName]; ok {
		return s, nil
	}
	compiler := jsonschema.NewCompiler()
	resource := toolName + ".json"
	if err := compiler.AddResource(resource, strings.NewReader(string(raw))); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	c.byTool[toolName] = schema
	return schema, nil
}

// validateArgs checks call.Input against the tool's declared schema before
// dispatch. A malformed JSON payload or a schema violation is reported back
// to the model as a tool error instead of reaching Execute.
func (c *schemaCache) validateArgs(toolName string, schemaJSON json.RawMessage, args json.RawMessage) error {
	if len(schemaJSON) == 0 {
		return nil
	}
	schema, err := c.compile(toolName, schemaJSON)
	if err != nil {
		// A tool shipping an invalid schema is a programming error, not a
		// reason to block every call to it.
		return nil
	}
	var v any
	if len(args) == 0 {
		v = map[string]any{}
	} else if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("arguments do not match schema: %w", err)
	}
	return nil
}
