// Package heroic resolves per-game configuration and library entries from the
// Heroic Games Launcher's on-disk JSON files.
package heroic

import (
	"path/filepath"
	"strings"
	"unicode"
)

const flatpakID = "com.heroicgameslauncher.hgl"

// maxNameBytes is the longest file name most Linux filesystems accept.
const maxNameBytes = 255

// Layout knows where Heroic keeps its files under a home directory. A native
// package keeps numeric game configs under ~/.config/Heroic, the Flatpak build
// keeps everything under ~/.var/app/<id>.
type Layout struct {
	Home string
}

// IsNumeric reports whether s is non-empty and made only of decimal digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (l Layout) flatpakRoot() string {
	return filepath.Join(l.Home, ".var", "app", flatpakID, "config", "heroic")
}

// ConfigDir returns the directory holding the config for appname.
func (l Layout) ConfigDir(appname string) string {
	if IsNumeric(appname) {
		return filepath.Join(l.Home, ".config", "Heroic", "GameConfig")
	}
	return filepath.Join(l.flatpakRoot(), "GamesConfig")
}

// ConfigPath returns the config file path for appname. ok is false when the
// name would resolve outside ConfigDir or cannot be a single file name.
func (l Layout) ConfigPath(appname string) (path string, ok bool) {
	dir := l.ConfigDir(appname)
	name := appname + ".json"
	if len(name) > maxNameBytes {
		return filepath.Join(dir, name), false
	}
	if strings.ContainsAny(appname, "/\\\x00") || filepath.Base(name) != name {
		return filepath.Join(dir, name), false
	}
	return filepath.Join(dir, name), true
}

// LibraryPath returns the sideloaded apps library file. Only the Flatpak
// layout has one.
func (l Layout) LibraryPath() string {
	return filepath.Join(l.flatpakRoot(), "sideload_apps", "library.json")
}
