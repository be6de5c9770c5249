package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/leafpore/plugmesh/geom"
	"github.com/leafpore/plugmesh/tetmesh"
	"github.com/leafpore/plugmesh/trimesh"
	"github.com/leafpore/plugmesh/viz"
	"github.com/leafpore/plugmesh/voxel"
)

// ErrSurfaceRejected reports a surface mesh that failed validation. The
// artifacts are still on disk for inspection but downstream stages are
// gated off.
var ErrSurfaceRejected = errors.New("pipeline: surface mesh failed validation")

// Params collects every numeric knob of the pipeline stages.
type Params struct {
	BaseSeed     int64                `json:"base_seed"`
	SampleDigits int                  `json:"sample_digits"`
	Voxel        voxel.Params         `json:"voxel"`
	Surface      trimesh.Options      `json:"surface"`
	Resolution   int                  `json:"resolution"`
	Carve        geom.CarveOptions    `json:"carve"`
	ClassifyTol  float64              `json:"classify_tol"`
	Field        tetmesh.FieldOptions `json:"field"`
}

// Runner executes pipeline stages for samples under one output root.
// Stages hand artifacts to each other through the sample directory.
type Runner struct {
	Layout    Layout
	Params    Params
	Converter Converter
	Logger    *log.Logger
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return r.Logger
}

// Synthesize builds the voxel grid for a sample and persists the grid
// and its placement record.
func (r *Runner) Synthesize(sampleID string) (voxel.Placement, error) {
	var placement voxel.Placement
	if err := voxel.ValidateSampleID(sampleID, r.Params.SampleDigits); err != nil {
		return placement, err
	}
	if _, err := r.Layout.EnsureSampleDir(sampleID); err != nil {
		return placement, err
	}
	seed, err := voxel.SampleSeed(r.Params.BaseSeed, sampleID)
	if err != nil {
		return placement, err
	}
	grid, placement, err := voxel.Synthesize(seed, r.Params.Voxel)
	if err != nil {
		return placement, fmt.Errorf("synthesize %s: %w", sampleID, err)
	}

	m := NewManifest("synthesize", sampleID)
	gridPath := r.Layout.Path(sampleID, GridFile)
	placementPath := r.Layout.Path(sampleID, PlacementFile)
	if err := grid.Save(gridPath); err != nil {
		return placement, err
	}
	if err := saveJSON(placementPath, placement); err != nil {
		return placement, err
	}
	m.Outputs = []string{gridPath, placementPath}
	m.Meta["placement"] = placement
	r.logger().Printf("pipeline: %s synthesized %d cells, porosity %.4f",
		sampleID, placement.CellsPlaced, placement.MeanPorosity)
	return placement, m.Save(r.Layout.Path(sampleID, ManifestFile))
}

// Triangulate extracts, gates and persists the surface mesh of a sample.
// A mesh failing the validation gate is still written; the report records
// the failure.
func (r *Runner) Triangulate(sampleID string) (trimesh.Report, error) {
	var report trimesh.Report
	gridPath := r.Layout.Path(sampleID, GridFile)
	grid, err := voxel.Load(gridPath)
	if err != nil {
		return report, fmt.Errorf("triangulate %s: %w", sampleID, err)
	}
	mesh, report := trimesh.Extract(grid, r.Params.Surface)

	m := NewManifest("triangulate", sampleID)
	m.Inputs = []string{gridPath}
	m.Status = report.Status
	surfacePath := r.Layout.Path(sampleID, SurfaceFile)
	reportPath := r.Layout.Path(sampleID, ReportFile)
	if err := mesh.SaveSTL(surfacePath); err != nil {
		return report, err
	}
	if err := saveJSON(reportPath, report); err != nil {
		return report, err
	}
	m.Outputs = []string{surfacePath, reportPath}
	m.Meta["report"] = report
	r.logger().Printf("pipeline: %s surface %s (%d vertices, %d faces)",
		sampleID, report.Status, report.NumVertices, report.NumTriangles)
	return report, m.Save(r.Layout.Path(sampleID, ManifestFile))
}

// Convert hands the surface mesh to the external solid converter. The
// stage refuses to run when the surface report is not marked success.
func (r *Runner) Convert(ctx context.Context, sampleID string) error {
	var report trimesh.Report
	reportPath := r.Layout.Path(sampleID, ReportFile)
	if err := loadJSON(reportPath, &report); err != nil {
		return fmt.Errorf("convert %s: %w", sampleID, err)
	}
	if report.Status != trimesh.StatusSuccess {
		return fmt.Errorf("convert %s: %w", sampleID, ErrSurfaceRejected)
	}
	surfacePath := r.Layout.Path(sampleID, SurfaceFile)
	solidPath := r.Layout.Path(sampleID, SolidFile)
	if err := r.Converter.Run(ctx, surfacePath, solidPath); err != nil {
		return fmt.Errorf("convert %s: %w", sampleID, err)
	}

	m := NewManifest("convert", sampleID)
	m.Inputs = []string{surfacePath}
	m.Outputs = []string{solidPath}
	m.Meta["converter"] = r.Converter.Command
	r.logger().Printf("pipeline: %s converted surface to solid", sampleID)
	return m.Save(r.Layout.Path(sampleID, ManifestFile))
}

// Mesh carves the airspace around the sample solid and writes the
// volumetric mesh. When no converted solid exists the surface mesh is
// used directly.
func (r *Runner) Mesh(sampleID string) error {
	solidPath := r.Layout.Path(sampleID, SolidFile)
	if _, err := os.Stat(solidPath); err != nil {
		// The surface fallback needs the same validation gate Convert
		// applies before consuming the surface mesh.
		var report trimesh.Report
		if err := loadJSON(r.Layout.Path(sampleID, ReportFile), &report); err != nil {
			return fmt.Errorf("mesh %s: %w", sampleID, err)
		}
		if report.Status != trimesh.StatusSuccess {
			return fmt.Errorf("mesh %s: %w", sampleID, ErrSurfaceRejected)
		}
		solidPath = r.Layout.Path(sampleID, SurfaceFile)
		r.logger().Printf("pipeline: %s has no converted solid, meshing against the surface mesh", sampleID)
	}

	s, err := geom.NewSession(r.Params.Resolution, r.Logger)
	if err != nil {
		return fmt.Errorf("mesh %s: %w", sampleID, err)
	}
	defer s.Close()

	ent, err := geom.ImportSolid(s, solidPath)
	if err != nil {
		return fmt.Errorf("mesh %s: %w", sampleID, err)
	}
	airspace, err := geom.BuildAirspace(s, ent, r.Params.Carve)
	if err != nil {
		return fmt.Errorf("mesh %s: %w", sampleID, err)
	}
	classification, err := geom.ClassifySurfaces(s, airspace, r.Params.ClassifyTol)
	if err != nil {
		return fmt.Errorf("mesh %s: %w", sampleID, err)
	}
	field, err := tetmesh.Configure(classification, r.Params.Field)
	if err != nil {
		return fmt.Errorf("mesh %s: %w", sampleID, err)
	}
	tm, err := tetmesh.Generate(s, airspace, classification, field)
	if err != nil {
		return fmt.Errorf("mesh %s: %w", sampleID, err)
	}
	meshPath := r.Layout.Path(sampleID, MeshFile)
	if err := tm.SaveMSH(meshPath); err != nil {
		return fmt.Errorf("mesh %s: %w", sampleID, err)
	}

	m := NewManifest("mesh", sampleID)
	m.Inputs = []string{solidPath}
	m.Outputs = []string{meshPath}
	m.Meta["num_nodes"] = tm.NumNodes()
	m.Meta["num_tets"] = tm.NumTets()
	m.Meta["normalize_iterations"] = airspace.Iterations
	m.Meta["normalize_residual"] = airspace.Residual
	m.Meta["normalize_converged"] = airspace.Converged
	r.logger().Printf("pipeline: %s meshed airspace (%d nodes, %d tetrahedra)",
		sampleID, tm.NumNodes(), tm.NumTets())
	return m.Save(r.Layout.Path(sampleID, ManifestFile))
}

// Visualize renders the sample surface mesh to a PNG snapshot.
func (r *Runner) Visualize(sampleID string, opts viz.Options) error {
	surfacePath := r.Layout.Path(sampleID, SurfaceFile)
	pngPath := r.Layout.Path(sampleID, SnapshotFile)
	if err := viz.RenderSTL(surfacePath, pngPath, opts); err != nil {
		return fmt.Errorf("visualize %s: %w", sampleID, err)
	}
	m := NewManifest("visualize", sampleID)
	m.Inputs = []string{surfacePath}
	m.Outputs = []string{pngPath}
	return m.Save(r.Layout.Path(sampleID, ManifestFile))
}

// RunSample executes the full sequential pipeline for one sample:
// synthesis, extraction, conversion when configured, then meshing. A
// rejected surface stops the sample after its artifacts are persisted.
func (r *Runner) RunSample(ctx context.Context, sampleID string) error {
	if _, err := r.Synthesize(sampleID); err != nil {
		return err
	}
	report, err := r.Triangulate(sampleID)
	if err != nil {
		return err
	}
	if report.Status != trimesh.StatusSuccess {
		return fmt.Errorf("sample %s: %w", sampleID, ErrSurfaceRejected)
	}
	if r.Converter.Enabled() {
		if err := r.Convert(ctx, sampleID); err != nil {
			return err
		}
	}
	return r.Mesh(sampleID)
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
