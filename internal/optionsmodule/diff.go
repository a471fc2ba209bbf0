package optionsmodule

import (
	"fmt"
	"os"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// WriteIfChanged writes rendered to path only if its contents differ
// from what's already on disk (or the file doesn't exist yet). A
// human-readable diff of what changed is returned alongside the
// "wrote" flag so the build graph can log why a downstream device
// compilation step is about to be invalidated, instead of silently
// bumping the file's mtime on every build (spec §4.6: the module is a
// dependency of the device compilation step, so touching it
// unnecessarily would force needless rebuilds).
func WriteIfChanged(path, rendered string) (wrote bool, diff string, err error) {
	existing, readErr := os.ReadFile(path)
	if readErr == nil && string(existing) == rendered {
		return false, "", nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(existing), rendered, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diff = dmp.DiffPrettyText(diffs)

	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return false, diff, fmt.Errorf("optionsmodule: writing %s: %w", path, err)
	}
	return true, diff, nil
}
