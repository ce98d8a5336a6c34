package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8083")
	if p, err := Port("TEST_PORT", "1"); err != nil || p != "8083" {
		t.Fatalf("expected 8083, got %q err=%v", p, err)
	}
	t.Setenv("TEST_PORT", "99999")
	if _, err := Port("TEST_PORT", "1"); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "  ")
	if _, err := RequiredString("TEST_REQUIRED"); err == nil {
		t.Fatal("expected error for blank value")
	}
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "-3")
	t.Setenv("TEST_BOOL", "yes")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_LIST", "a, b,,c")

	if got := Int("TEST_INT", 1); got != 42 {
		t.Fatalf("Int = %d, want 42", got)
	}
	if got := Int("TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback = %d, want 7", got)
	}
	if !Bool("TEST_BOOL", false) {
		t.Fatal("Bool should parse yes")
	}
	if Bool("TEST_UNSET_BOOL", false) {
		t.Fatal("Bool should fall back to false")
	}
	if got := Duration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("Duration = %s, want 90s", got)
	}
	if got := List("TEST_LIST", ""); len(got) != 3 || got[2] != "c" {
		t.Fatalf("List = %v", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SLOTBOOK_DOTENV_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("SLOTBOOK_DOTENV_VALUE") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := String("SLOTBOOK_DOTENV_VALUE", ""); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}
