package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leafpore/plugmesh/geom"
	"github.com/leafpore/plugmesh/tetmesh"
	"github.com/leafpore/plugmesh/trimesh"
	"github.com/leafpore/plugmesh/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		Layout: Layout{Root: t.TempDir()},
		Params: Params{
			BaseSeed:     123456,
			SampleDigits: 4,
			Voxel: voxel.Params{
				AxialResolution: 32,
				PlugAspect:      0.3,
				NumCells:        10,
				MinRadius:       0.05,
				MaxRadius:       0.1,
				MinSeparation:   0.01,
				MaxAttempts:     500,
			},
			Surface: trimesh.Options{
				SmoothingIterations: 5,
				DecimationTarget:    3000,
				ShrinkageTolerance:  0.2,
			},
			Resolution:  48,
			Carve:       geom.CarveOptions{BoundaryMargin: 0.2, CavityMargin: 0.1},
			ClassifyTol: 0.05,
			Field: tetmesh.FieldOptions{
				LcMin:       0.06,
				LcMax:       0.25,
				DistMin:     0.02,
				DistMax:     0.3,
				InletFactor: 2,
			},
		},
	}
}

func TestLayoutPaths(t *testing.T) {
	l := Layout{Root: "/data/out"}
	assert.Equal(t, filepath.Join("/data/out", "0042"), l.SampleDir("0042"))
	assert.Equal(t, filepath.Join("/data/out", "0042", GridFile), l.Path("0042", GridFile))
}

func TestManifestRoundTrip(t *testing.T) {
	m := NewManifest("synthesize", "0001")
	m.Inputs = []string{"a"}
	m.Outputs = []string{"b"}
	m.Meta["porosity"] = 0.25
	path := filepath.Join(t.TempDir(), ManifestFile)
	require.NoError(t, m.Save(path))

	got, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "synthesize", got.Command)
	assert.Equal(t, "0001", got.SampleID)
	assert.Equal(t, Version, got.Version)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, []string{"b"}, got.Outputs)
}

func TestReadSampleIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.txt")
	require.NoError(t, os.WriteFile(path,
		[]byte("# batch one\n0001 0002\n\n0003\n"), 0o644))
	ids, err := ReadSampleIDs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001", "0002", "0003"}, ids)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = ReadSampleIDs(empty)
	assert.Error(t, err)
}

func TestConverterRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.stl")
	output := filepath.Join(dir, "out.stl")
	require.NoError(t, os.WriteFile(input, []byte("payload"), 0o644))

	c := Converter{Command: "cp"}
	require.NoError(t, c.Run(context.Background(), input, output))
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	fail := Converter{Command: "false"}
	assert.ErrorIs(t, fail.Run(context.Background(), input, output), ErrConvert)

	var disabled Converter
	assert.ErrorIs(t, disabled.Run(context.Background(), input, output), ErrConvert)
}

func TestSynthesizeAndTriangulate(t *testing.T) {
	r := testRunner(t)
	placement, err := r.Synthesize("0001")
	require.NoError(t, err)
	assert.Greater(t, placement.CellsPlaced, 0)
	assert.Greater(t, placement.MeanPorosity, 0.0)

	report, err := r.Triangulate("0001")
	require.NoError(t, err)
	assert.Equal(t, trimesh.StatusSuccess, report.Status)

	for _, artifact := range []string{GridFile, PlacementFile, SurfaceFile, ReportFile, ManifestFile} {
		_, err := os.Stat(r.Layout.Path("0001", artifact))
		assert.NoError(t, err, artifact)
	}
	m, err := LoadManifest(r.Layout.Path("0001", ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, "triangulate", m.Command)
	assert.Equal(t, StatusSuccess, m.Status)
}

func TestSynthesizeRejectsBadSampleID(t *testing.T) {
	r := testRunner(t)
	_, err := r.Synthesize("1")
	assert.Error(t, err)
	_, err = r.Synthesize("00a1")
	assert.Error(t, err)
}

func TestConvertGatedOnSurfaceStatus(t *testing.T) {
	r := testRunner(t)
	r.Converter = Converter{Command: "cp"}
	_, err := r.Synthesize("0002")
	require.NoError(t, err)
	_, err = r.Triangulate("0002")
	require.NoError(t, err)

	// Forge a failed report; conversion must refuse to run.
	var report trimesh.Report
	require.NoError(t, loadJSON(r.Layout.Path("0002", ReportFile), &report))
	report.Status = trimesh.StatusFailure
	require.NoError(t, saveJSON(r.Layout.Path("0002", ReportFile), report))
	assert.ErrorIs(t, r.Convert(context.Background(), "0002"), ErrSurfaceRejected)
}

func TestMeshSurfaceFallbackGatedOnSurfaceStatus(t *testing.T) {
	r := testRunner(t)
	_, err := r.Synthesize("0003")
	require.NoError(t, err)
	_, err = r.Triangulate("0003")
	require.NoError(t, err)

	// No converted solid exists, so meshing would fall back to the raw
	// surface. Forge a failed report; the fallback must refuse it too.
	var report trimesh.Report
	require.NoError(t, loadJSON(r.Layout.Path("0003", ReportFile), &report))
	report.Status = trimesh.StatusFailure
	require.NoError(t, saveJSON(r.Layout.Path("0003", ReportFile), report))
	assert.ErrorIs(t, r.Mesh("0003"), ErrSurfaceRejected)
}

func TestRunSampleFullPipeline(t *testing.T) {
	r := testRunner(t)
	r.Converter = Converter{Command: "cp"}
	require.NoError(t, r.RunSample(context.Background(), "0007"))

	for _, artifact := range []string{GridFile, SurfaceFile, SolidFile, MeshFile} {
		_, err := os.Stat(r.Layout.Path("0007", artifact))
		assert.NoError(t, err, artifact)
	}
	data, err := os.ReadFile(r.Layout.Path("0007", MeshFile))
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, "$MeshFormat\n2.2 0 8\n"))
	assert.Contains(t, out, "\"airspace\"")
}

func TestRunBatchPartitionsAllSamples(t *testing.T) {
	r := testRunner(t)
	ids := []string{"0010", "0011", "0012", "0013", "0014"}
	results := r.RunBatch(context.Background(), ids, 2)
	require.Len(t, results, len(ids))
	for i, res := range results {
		assert.Equal(t, ids[i], res.SampleID)
		// Each sample owns a disjoint directory with its own artifacts.
		_, err := os.Stat(r.Layout.Path(res.SampleID, GridFile))
		assert.NoError(t, err)
	}
}
