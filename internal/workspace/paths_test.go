package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirHonorsHomeEnv(t *testing.T) {
	base := t.TempDir()
	t.Setenv(HomeEnv, base)

	got := Dir("main")
	want := filepath.Join(base, "workspaces", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestDirDefaultsToHome(t *testing.T) {
	t.Setenv(HomeEnv, "")
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".twinby", "workspaces", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestFilePaths(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	tests := []struct {
		name   string
		got    string
		suffix string
	}{
		{"lock", LockPath("test"), filepath.Join("workspaces", "test", "LOCK")},
		{"db", DBPath("test"), filepath.Join("workspaces", "test", "twinby.db")},
		{"log", LogPath("test"), filepath.Join("workspaces", "test", "logs", "twinby.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasSuffix(tt.got, tt.suffix) {
				t.Errorf("%s path = %q, want suffix %q", tt.name, tt.got, tt.suffix)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	if err := EnsureDir("test"); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	for _, dir := range []string{Dir("test"), LogDir("test")} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("%s not created: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
		if perm := info.Mode().Perm(); perm != 0700 {
			t.Errorf("%s permission = %o, want 0700", dir, perm)
		}
	}
}
