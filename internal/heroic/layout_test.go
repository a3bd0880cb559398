package heroic

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestIsNumeric(t *testing.T) {
	cases := map[string]bool{
		"12345":         true,
		"0":             true,
		"":              false,
		"123a":          false,
		" 123":          false,
		"Hollow Knight": false,
		"-1":            false,
		"١٢٣":           true, // Arabic-Indic digits are decimal digits too
	}
	for in, want := range cases {
		if got := IsNumeric(in); got != want {
			t.Errorf("IsNumeric(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConfigPath_NativeForDigits(t *testing.T) {
	l := Layout{Home: "/home/deck"}
	got, ok := l.ConfigPath("12345")
	if !ok {
		t.Fatal("expected ok")
	}
	want := filepath.Join("/home/deck", ".config", "Heroic", "GameConfig", "12345.json")
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestConfigPath_FlatpakForNames(t *testing.T) {
	l := Layout{Home: "/home/deck"}
	for _, name := range []string{"Hollow Knight", "abc123", "", "12 34"} {
		got, ok := l.ConfigPath(name)
		if !ok {
			t.Fatalf("%q: expected ok", name)
		}
		want := filepath.Join("/home/deck", ".var", "app", "com.heroicgameslauncher.hgl",
			"config", "heroic", "GamesConfig", name+".json")
		if got != want {
			t.Errorf("%q: path = %q, want %q", name, got, want)
		}
	}
}

func TestConfigPath_RejectsSeparators(t *testing.T) {
	l := Layout{Home: "/home/deck"}
	for _, name := range []string{"../../etc/passwd", "a/b", `a\b`, "nul\x00byte"} {
		if _, ok := l.ConfigPath(name); ok {
			t.Errorf("%q: expected not ok", name)
		}
	}
	if _, ok := l.ConfigPath("Half..Life"); !ok {
		t.Error("dots without separators should be allowed")
	}
}

func TestLibraryPath(t *testing.T) {
	l := Layout{Home: "/home/deck"}
	want := filepath.Join("/home/deck", ".var", "app", "com.heroicgameslauncher.hgl",
		"config", "heroic", "sideload_apps", "library.json")
	if got := l.LibraryPath(); got != want {
		t.Errorf("LibraryPath = %q, want %q", got, want)
	}
}

func TestConfigPath_LongNames(t *testing.T) {
	l := Layout{Home: "/home/deck"}
	if _, ok := l.ConfigPath(strings.Repeat("a", 250)); !ok {
		t.Error("250-byte name should fit in one file name")
	}
	// 90 runes, 270 bytes.
	if _, ok := l.ConfigPath(strings.Repeat("ゲ", 90)); ok {
		t.Error("name over 255 bytes with .json should not be ok")
	}
}
