package registry

import "testing"

func TestDeriveName(t *testing.T) {
	tests := []struct {
		unit string
		want string
	}{
		{unit: "ManageAsset", want: "manage_asset"},
		{unit: "ManageEditor", want: "manage_editor"},
		{unit: "ExecuteMenuItem", want: "execute_menu_item"},
		{unit: "ReadConsole", want: "read_console"},
		{unit: "HTTPProbe", want: "http_probe"},
		{unit: "Probe2Point0", want: "probe2_point0"},
		{unit: "already_snake", want: "already_snake"},
		{unit: "lowercase", want: "lowercase"},
		{unit: "Manage Asset", want: "manage_asset"},
		{unit: "manage-asset", want: "manage_asset"},
		{unit: "", want: ""},
		{unit: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			if got := DeriveName(tt.unit); got != tt.want {
				t.Errorf("DeriveName(%q) = %q, want %q", tt.unit, got, tt.want)
			}
		})
	}
}
