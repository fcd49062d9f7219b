package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckMarker(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "harspectre")

	if !checkMarker(dir) {
		t.Fatal("expected first call to report first run")
	}
	if _, err := os.Stat(filepath.Join(dir, markerFileName)); err != nil {
		t.Fatalf("expected marker file to be created: %v", err)
	}
	if checkMarker(dir) {
		t.Fatal("expected second call to report not first run")
	}
}

func TestCheckMarkerUnwritableParent(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(parent, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if checkMarker(filepath.Join(parent, "harspectre")) {
		t.Fatal("expected false when the config directory cannot be created")
	}
}

func TestIsFirstRunUsesUserConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("HOME", home)

	dir, err := GetAppConfigDir()
	if err != nil {
		t.Skipf("no user config dir on this platform: %v", err)
	}
	if filepath.Base(dir) != appName {
		t.Fatalf("expected config dir to end in %q, got %q", appName, dir)
	}

	if !IsFirstRun() {
		t.Fatal("expected first run in a fresh config dir")
	}
	if IsFirstRun() {
		t.Fatal("expected marker to persist")
	}
}

func TestFirstRunHint(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	hint := FirstRunHint()
	if !strings.Contains(hint, "harspectre analyze") {
		t.Fatalf("expected usage hint, got %q", hint)
	}
	if !strings.Contains(hint, "GEMINI_API_KEY or GOOGLE_API_KEY") {
		t.Fatalf("expected API key hint, got %q", hint)
	}

	t.Setenv("GEMINI_API_KEY", "k")
	if strings.Contains(FirstRunHint(), "GEMINI_API_KEY") {
		t.Fatal("expected no API key hint when a key is configured")
	}
}
