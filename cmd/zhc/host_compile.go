package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// compileHostObject invokes the host compiler as a subprocess to
// produce an object file from sourcePath. zhc never parses or
// generates host source itself (SPEC_FULL.md §1: the host compiler is
// an external collaborator reached only through os/exec), so this is
// a thin wrapper that exists purely to give extractOverloads something
// to scan.
func compileHostObject(sourcePath, objectPath string) error {
	cmd := exec.CommandContext(context.Background(), *hostCCFlag, "-c", sourcePath, "-o", objectPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("compiling host source %s: %w", sourcePath, err)
	}
	return nil
}
