package schema

import (
	"strings"
	"testing"
)

var testSchema = []byte(`{
  "type": "object",
  "required": ["name"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "age": {"type": "integer", "minimum": 0}
  }
}`)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     map[string]any
		wantErr string
	}{
		{name: "valid", doc: map[string]any{"name": "x", "age": 3}},
		{name: "missing required", doc: map[string]any{"age": 3}, wantErr: "name is required"},
		{name: "unknown key", doc: map[string]any{"name": "x", "extra": true}, wantErr: "Additional property extra"},
		{name: "negative", doc: map[string]any{"name": "x", "age": -1}, wantErr: "age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("test", testSchema, tt.doc)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
