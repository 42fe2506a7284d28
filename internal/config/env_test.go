package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	contents := "# comment\nPHEMEX_TEST_KEY=abc\nPHEMEX_TEST_QUOTED=\"with spaces\"\nPHEMEX_TEST_EXISTING=fromfile\nbroken line\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	t.Setenv("PHEMEX_TEST_EXISTING", "fromenv")
	defer func() {
		os.Unsetenv("PHEMEX_TEST_KEY")
		os.Unsetenv("PHEMEX_TEST_QUOTED")
	}()

	if err := LoadEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("PHEMEX_TEST_KEY"); got != "abc" {
		t.Fatalf("plain value: got %q", got)
	}
	if got := os.Getenv("PHEMEX_TEST_QUOTED"); got != "with spaces" {
		t.Fatalf("quoted value: got %q", got)
	}
	if got := os.Getenv("PHEMEX_TEST_EXISTING"); got != "fromenv" {
		t.Fatalf("existing variable must win, got %q", got)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing file must be ignored, got %v", err)
	}
}
