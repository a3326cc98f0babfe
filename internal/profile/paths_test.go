package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirDefaultsToHome(t *testing.T) {
	t.Setenv("SIGMA_HOME", "")
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".sigma", "profiles", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestPathsUnderSigmaHome(t *testing.T) {
	base := t.TempDir()
	t.Setenv("SIGMA_HOME", base)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"socket", SocketPath("test"), filepath.Join("profiles", "test", "daemon.sock")},
		{"lock", LockPath("test"), filepath.Join("profiles", "test", "LOCK")},
		{"db", DBPath("test"), filepath.Join("profiles", "test", "sigma.db")},
		{"log", LogPath("test"), filepath.Join("profiles", "test", "logs", "sigmad.log")},
		{"config", ConfigPath(), "config.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.got, base) {
				t.Errorf("%s = %q, want under %q", tt.name, tt.got, base)
			}
			if !strings.HasSuffix(tt.got, tt.want) {
				t.Errorf("%s = %q, want suffix %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestEnsureDirAndList(t *testing.T) {
	t.Setenv("SIGMA_HOME", t.TempDir())

	names, err := List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("List() on empty home = %v, want none", names)
	}

	for _, n := range []string{"main", "work"} {
		if err := EnsureDir(n); err != nil {
			t.Fatal(err)
		}
	}
	info, err := os.Stat(LogDir("main"))
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if info.Mode().Perm() != 0700 {
		t.Errorf("log dir perm = %o, want 0700", info.Mode().Perm())
	}

	names, err = List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "main" || names[1] != "work" {
		t.Errorf("List() = %v, want [main work]", names)
	}
}
