//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// ome runs the built CLI binary with the given arguments.
func ome(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", binName, args, err)
	}
	return nil
}

// Extract runs extraction over all raw manifests and facility records.
func Extract() error {
	mg.Deps(Build)
	return ome("extract")
}

// Ingest loads substitution rule files into the knowledge base.
func Ingest() error {
	mg.Deps(Build)
	return ome("knowledge", "store")
}
