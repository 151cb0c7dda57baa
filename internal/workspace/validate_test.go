package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"default", "main", false},
		{"digits", "phone2", false},
		{"hyphen and underscore", "alt_account-1", false},
		{"max length", strings.Repeat("a", 64), false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"dot", "a.b", true},
		{"path traversal", "../main", true},
		{"too long", strings.Repeat("a", 65), true},
		{"space", "my account", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestResolvePrecedence(t *testing.T) {
	base := t.TempDir()
	t.Setenv(HomeEnv, base)
	t.Setenv(NameEnv, "")

	if got := Resolve(""); got != DefaultName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultName)
	}

	if err := os.WriteFile(filepath.Join(base, "config.toml"), []byte("default_workspace = \"work\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "work" {
		t.Errorf("Resolve() with config = %q, want work", got)
	}

	t.Setenv(NameEnv, "env")
	if got := Resolve(""); got != "env" {
		t.Errorf("Resolve() with env = %q, want env", got)
	}

	if got := Resolve("flag"); got != "flag" {
		t.Errorf("Resolve(flag) = %q, want flag", got)
	}
}
