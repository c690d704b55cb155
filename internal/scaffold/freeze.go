package scaffold

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// FreezeScriptName is the file name the bundled freeze script is written as.
const FreezeScriptName = "pip_freeze.py"

// FreezeScript lists the packages installed in an environment. It is run
// like any user script, so `dockenv freeze` inherits the same sandboxing.
//
//go:embed scripts/pip_freeze.py
var FreezeScript []byte

// WriteFreezeScript writes FreezeScript into dir and returns its path.
func WriteFreezeScript(dir string) (string, error) {
	path := filepath.Join(dir, FreezeScriptName)
	if err := os.WriteFile(path, FreezeScript, 0o644); err != nil {
		return "", fmt.Errorf("failed to write freeze script: %w", err)
	}
	return path, nil
}
