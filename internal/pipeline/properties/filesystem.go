// Package properties holds property-style filesystem assertions used by
// the pipeline's tests to check invariants that span many files at once,
// rather than a single function's return value.
package properties

import (
	"fmt"
	"os"
	"path/filepath"
)

// AssertOutputPathsUnique walks outputRoot and fails if any two produced
// files resolve to the same absolute path, per the invariant that every
// output path within a release is unique across all target formats.
func AssertOutputPathsUnique(outputRoot string) error {
	seen := make(map[string]bool)
	return filepath.Walk(outputRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("properties: abs path %s: %w", path, err)
		}
		if seen[abs] {
			return fmt.Errorf("properties: duplicate output path %s", abs)
		}
		seen[abs] = true
		return nil
	})
}

// maxStemLength mirrors the track_stem length ceiling the Path/Name
// Builder enforces before appending a target extension.
const maxStemLength = 70

// AssertTrackStemLength fails if any file name under root, minus its
// extension, exceeds maxStemLength characters.
func AssertTrackStemLength(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		stem := info.Name()
		if ext := filepath.Ext(stem); ext != "" {
			stem = stem[:len(stem)-len(ext)]
		}
		if len(stem) > maxStemLength {
			return fmt.Errorf("properties: stem %q (%d chars) exceeds %d-character limit", stem, len(stem), maxStemLength)
		}
		return nil
	})
}

// maxPathLength mirrors the verifier's Length issue threshold for a
// release's deepest produced path.
const maxPathLength = 180

// AssertMaxPathLength fails if any file path under root exceeds
// maxPathLength characters, matching the Source Verifier's long-path
// policy.
func AssertMaxPathLength(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if len(path) > maxPathLength {
			return fmt.Errorf("properties: path %q (%d chars) exceeds %d-character limit", path, len(path), maxPathLength)
		}
		return nil
	})
}
