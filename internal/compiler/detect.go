package compiler

import (
	"fmt"
	"os"
	"path/filepath"
)

// Marker directories used for target auto-detection.
const (
	claudeMarker   = ".claude"
	openCodeMarker = ".opencode"
)

// DetectTarget inspects dir for executor marker directories. It returns
// the matching target name, "" when neither marker exists, and an error
// when both do (the caller must then pass an explicit target).
func DetectTarget(dir string) (string, error) {
	claude := isDir(filepath.Join(dir, claudeMarker))
	opencode := isDir(filepath.Join(dir, openCodeMarker))

	switch {
	case claude && opencode:
		return "", fmt.Errorf("ambiguous target: both %s and %s exist in %s; pass --target explicitly",
			claudeMarker, openCodeMarker, dir)
	case claude:
		return "claude-code", nil
	case opencode:
		return "opencode", nil
	default:
		return "", nil
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
