package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPrefix is the artifact file name prefix.
const DefaultPrefix = "ballot_research_output"

// Artifact file suffixes.
const (
	OriginalSuffix = "_original.txt"
	ResolvedSuffix = "_resolved.txt"
)

// ArtifactPaths returns the file paths WriteArtifacts uses.
func ArtifactPaths(dir, prefix string) (originalPath, resolvedPath string) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return filepath.Join(dir, prefix+OriginalSuffix), filepath.Join(dir, prefix+ResolvedSuffix)
}

// WriteArtifacts writes the original and resolved texts to
// <dir>/<prefix>_original.txt and <dir>/<prefix>_resolved.txt, creating dir
// when missing. Existing files are overwritten.
func WriteArtifacts(dir, prefix, original, resolved string) (originalPath, resolvedPath string, err error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	originalPath, resolvedPath = ArtifactPaths(dir, prefix)

	if err := os.WriteFile(originalPath, []byte(original), 0600); err != nil {
		return "", "", fmt.Errorf("failed to write original output: %w", err)
	}
	if err := os.WriteFile(resolvedPath, []byte(resolved), 0600); err != nil {
		return "", "", fmt.Errorf("failed to write resolved output: %w", err)
	}

	return originalPath, resolvedPath, nil
}
