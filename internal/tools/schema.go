package tools

import "github.com/google/jsonschema-go/jsonschema"

// Schema construction helpers shared by the tool packages. Tool argument
// schemas are written by hand rather than inferred, so the agent-facing
// contract stays explicit and reviewable.

// ObjectSchema returns an object schema with the given properties and
// required property names.
func ObjectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// StringProp returns a string property schema with a description.
func StringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

// IntProp returns an integer property schema with a description.
func IntProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

// NumberProp returns a number property schema with a description.
func NumberProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: description}
}
