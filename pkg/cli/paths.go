package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandUser replaces a leading "~" with the user's home directory.
// Paths without the prefix, and paths when the home directory cannot be
// determined, are returned unchanged.
func ExpandUser(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
