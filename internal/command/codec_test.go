package command

import (
	"strings"
	"testing"
)

func TestSyntacticJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "object", raw: `{"type":"ping"}`, want: true},
		{name: "array", raw: `[1,2,3]`, want: true},
		{name: "leading whitespace", raw: "  \t {\"type\":\"x\"}", want: true},
		{name: "plain text", raw: "not json at all", want: false},
		{name: "bare string", raw: `"hello"`, want: false},
		{name: "bare number", raw: "42", want: false},
		{name: "empty", raw: "", want: false},
		{name: "truncated object", raw: `{"type":"man`, want: false},
		{name: "concatenated objects", raw: `{"a":1}{"b":2}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SyntacticJSON(tt.raw); got != tt.want {
				t.Errorf("SyntacticJSON(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest(`{"type":"manage_editor","params":{"action":"play"}}`)
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}
	if req.Type != "manage_editor" {
		t.Errorf("Type = %q", req.Type)
	}
	if req.Params.String("action") != "play" {
		t.Errorf("Params = %v", req.Params)
	}
}

func TestDecodeRequestDefaultsParams(t *testing.T) {
	for _, raw := range []string{`{"type":"x"}`, `{"type":"x","params":null}`} {
		req, err := DecodeRequest(raw)
		if err != nil {
			t.Fatalf("DecodeRequest(%q) failed: %v", raw, err)
		}
		if req.Params == nil {
			t.Errorf("DecodeRequest(%q) left params nil", raw)
		}
		if len(req.Params) != 0 {
			t.Errorf("DecodeRequest(%q) params = %v, want empty", raw, req.Params)
		}
	}
}

func TestDecodeRequestRejectsWrongShapes(t *testing.T) {
	for _, raw := range []string{`[1,2,3]`, `{"type":42}`, `{"type":"x","params":[]}`} {
		if _, err := DecodeRequest(raw); err == nil {
			t.Errorf("DecodeRequest(%q) succeeded, want error", raw)
		} else if !strings.Contains(err.Error(), "decode command envelope") {
			t.Errorf("DecodeRequest(%q) error = %v, want wrapped decode error", raw, err)
		}
	}
}
