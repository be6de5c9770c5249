// Package pipeline runs the per-sample geometry pipeline end to end:
// voxel synthesis, surface extraction, external solid conversion and
// airspace meshing, with filesystem handoff between stages and a
// provenance manifest per sample.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact filenames inside a sample directory. Stages communicate
// exclusively through these files.
const (
	GridFile      = "voxels.npy"
	PlacementFile = "placement.json"
	SurfaceFile   = "surface.stl"
	ReportFile    = "surface_report.json"
	SolidFile     = "solid.stl"
	MeshFile      = "airspace.msh"
	SnapshotFile  = "surface.png"
	ManifestFile  = "manifest.json"
)

// Layout resolves per-sample artifact paths under an output root.
// Concurrent workers write to disjoint sample directories, so the layout
// itself carries no state.
type Layout struct {
	Root string
}

// SampleDir returns the directory holding all artifacts of one sample.
func (l Layout) SampleDir(sampleID string) string {
	return filepath.Join(l.Root, sampleID)
}

// Path returns the location of the named artifact for a sample.
func (l Layout) Path(sampleID, artifact string) string {
	return filepath.Join(l.SampleDir(sampleID), artifact)
}

// EnsureSampleDir creates the sample directory if needed.
func (l Layout) EnsureSampleDir(sampleID string) (string, error) {
	dir := l.SampleDir(sampleID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create sample dir: %w", err)
	}
	return dir, nil
}
