package schema

import (
	"encoding/json"
	"fmt"
)

type fieldJSON struct {
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Default  any    `json:"default,omitempty"`
	Doc      string `json:"doc,omitempty"`
}

// MarshalJSON serializes the field with its type name.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.Type == nil {
		return nil, fmt.Errorf("schema: field type is nil")
	}
	return json.Marshal(fieldJSON{
		Type:     f.Type.Name(),
		Required: f.Required,
		Default:  f.Default,
		Doc:      f.Doc,
	})
}
