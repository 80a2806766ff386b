package command

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResponseConstructors(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{
			name: "pong is byte exact",
			resp: Pong(),
			want: `{"status":"success","result":{"message":"pong"}}`,
		},
		{
			name: "success with payload",
			resp: Success(map[string]any{"playing": false}),
			want: `{"status":"success","result":{"playing":false}}`,
		},
		{
			name: "failure carries only message",
			resp: Failure("Empty command"),
			want: `{"status":"error","error":"Empty command"}`,
		},
		{
			name: "failure for command names it",
			resp: FailureFor("manage_asset", "boom"),
			want: `{"status":"error","error":"boom","command":"manage_asset"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.resp)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResponseExactlyOneOfResultError(t *testing.T) {
	out, err := Encode(Failure("nope"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Contains(out, `"result"`) {
		t.Errorf("error envelope must not carry a result: %s", out)
	}

	out, err = Encode(Success("ok"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Contains(out, `"error"`) {
		t.Errorf("success envelope must not carry an error: %s", out)
	}
}

func TestIsPing(t *testing.T) {
	for _, s := range []string{"ping", "PING", "Ping", "pInG"} {
		if !IsPing(s) {
			t.Errorf("IsPing(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "ping ", "pong", "pingping"} {
		if IsPing(s) {
			t.Errorf("IsPing(%q) = true, want false", s)
		}
	}
}

func TestTruncateEcho(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short passes through", in: "not json at all", want: "not json at all"},
		{name: "exactly at limit", in: strings.Repeat("a", 50), want: strings.Repeat("a", 50)},
		{name: "over limit gains ellipsis", in: strings.Repeat("a", 51), want: strings.Repeat("a", 50) + "..."},
		{
			name: "multibyte input never splits a rune",
			in:   strings.Repeat("é", 60),
			want: strings.Repeat("é", 50) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateEcho(tt.in); got != tt.want {
				t.Errorf("TruncateEcho = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParamsAccessors(t *testing.T) {
	raw := `{"action":"get_state","count":25,"wait":true,"filters":["error","warning"],"options":{"depth":2}}`
	var p Params
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}

	if got := p.String("action"); got != "get_state" {
		t.Errorf("String(action) = %q", got)
	}
	if got := p.String("missing"); got != "" {
		t.Errorf("String(missing) = %q, want empty", got)
	}
	if got := p.StringOr("missing", "play"); got != "play" {
		t.Errorf("StringOr = %q, want play", got)
	}
	if !p.Bool("wait") {
		t.Error("Bool(wait) = false, want true")
	}
	if got := p.IntOr("count", 0); got != 25 {
		t.Errorf("IntOr(count) = %d, want 25 (JSON numbers are float64)", got)
	}
	if got := p.IntOr("missing", 7); got != 7 {
		t.Errorf("IntOr fallback = %d, want 7", got)
	}
	if got := p.Map("options"); got == nil || got.IntOr("depth", 0) != 2 {
		t.Errorf("Map(options) = %v", got)
	}
	if got := p.List("filters"); len(got) != 2 {
		t.Errorf("List(filters) = %v, want 2 entries", got)
	}
}
