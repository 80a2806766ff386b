package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SyntacticJSON reports whether raw is a single, syntactically valid JSON
// object or array. Scalars and concatenated values are rejected; envelope
// decoding happens separately.
func SyntacticJSON(raw string) bool {
	t := strings.TrimSpace(raw)
	if t == "" {
		return false
	}
	if t[0] != '{' && t[0] != '[' {
		return false
	}
	return json.Valid([]byte(t))
}

// DecodeRequest parses raw text into the inbound envelope. A missing or null
// params field decodes to an empty map so handlers never see nil.
func DecodeRequest(raw string) (Request, error) {
	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return Request{}, fmt.Errorf("decode command envelope: %w", err)
	}
	if req.Params == nil {
		req.Params = Params{}
	}
	return req, nil
}

// Encode renders the envelope as its wire JSON string.
func Encode(resp Response) (string, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("encode response envelope: %w", err)
	}
	return string(b), nil
}
