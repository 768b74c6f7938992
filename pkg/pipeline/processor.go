// Package pipeline runs the processing of one simulation case: it loads the
// input datasets, groups activity into mesh rows with the selected strategy,
// computes doses for every decay time and writes the results.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mdobak/go-xerrors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"radwaste/internal/logging"
	"radwaste/internal/models"
	"radwaste/pkg/components"
	"radwaste/pkg/config"
	"radwaste/pkg/dataset"
	"radwaste/pkg/dose"
	"radwaste/pkg/geometry"
	"radwaste/pkg/report"
	"radwaste/pkg/stl"
	"radwaste/pkg/visualization"
)

// BoxFileName is the STL export of the radwaste box inside the output folder.
const BoxFileName = "radwaste_box.stl"

// Params holds the processing parameters of one case.
type Params struct {
	// Mode selects the grouping strategy.
	Mode Mode

	// InputDir is the case folder holding DataAbsoluteActivity.arrow,
	// DataMass.arrow and, for box filtering, DataMeshInfo.arrow.
	InputDir string

	// OutputDir receives one folder per decay time.
	OutputDir string

	// ReferenceFile is the YAML reference data of the dose calculator.
	ReferenceFile string

	// ComponentsFile is the YAML component list of the by-component mode.
	ComponentsFile string

	// DecayTimes relabels the decay steps of the input when not empty.
	DecayTimes []float64

	// SkipDegenerateGroups keeps rows without mass, with zero CDR, instead
	// of failing.
	SkipDegenerateGroups bool

	// Cells and Isotopes restrict the filtered mode; nil is unrestricted.
	Cells    []int64
	Isotopes []string

	// Box keeps only the voxels whose centre lies inside it (filtered mode).
	Box geometry.Volume

	// NX, NY and NZ describe a structured mesh for slice export.
	NX, NY, NZ int

	// ExtractSlices writes the SliceColumn dose of every decay time as JPEG
	// slices along each axis.
	ExtractSlices bool
	SliceColumn   string

	// ReportDB is the SQLite report; empty skips the report.
	ReportDB string

	// SaveIntermediaryResults also writes the relabelled input datasets.
	SaveIntermediaryResults bool
}

// ParamsFromConfig builds the parameters of a case from the configuration.
func ParamsFromConfig(cfg *config.Config, inputDir string) (*Params, error) {
	mode, err := ParseMode(cfg.Processing.Mode)
	if err != nil {
		return nil, err
	}
	p := &Params{
		Mode:                    mode,
		InputDir:                inputDir,
		OutputDir:               cfg.Output.Dir,
		ReferenceFile:           cfg.Reference.File,
		ComponentsFile:          cfg.Components.File,
		DecayTimes:              cfg.Processing.DecayTimes,
		SkipDegenerateGroups:    cfg.Processing.SkipDegenerateGroups,
		NX:                      cfg.Mesh.NX,
		NY:                      cfg.Mesh.NY,
		NZ:                      cfg.Mesh.NZ,
		ExtractSlices:           cfg.Output.ExtractSlices,
		SliceColumn:             cfg.Output.SliceColumn,
		ReportDB:                cfg.Output.ReportDB,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
	}
	if len(cfg.Filter.Cells) > 0 {
		p.Cells = cfg.Filter.Cells
	}
	if len(cfg.Filter.Isotopes) > 0 {
		p.Isotopes = cfg.Filter.Isotopes
	}

	if cfg.Box.Enabled {
		if cfg.Box.STLFile != "" {
			p.Box, err = geometry.LoadMeshVolume(cfg.Box.STLFile)
		} else {
			o, s := cfg.Box.Origin, cfg.Box.Size
			p.Box, err = geometry.NewBox(
				r3.Vec{X: o[0], Y: o[1], Z: o[2]},
				r3.Vec{X: s[0], Y: s[1], Z: s[2]},
				cfg.Box.Rotation,
			)
		}
		if err != nil {
			return nil, fmt.Errorf("error building radwaste box: %w", err)
		}
	}
	return p, nil
}

// DecayResult summarises the doses of one decay time.
type DecayResult struct {
	DecayTime float64
	Folder    string
	Rows      int

	TotalDose1m float64
	MeanCDR     float64
	MaxCDR      float64

	// Degenerate counts rows without mass.
	Degenerate int
}

// Processor runs the processing steps of one case.
type Processor struct {
	params *Params
	logger *slog.Logger

	activity *dataset.AbsoluteActivity
	mass     *dataset.Mass
	calc     *dose.Calculator

	// voxels selected by the box, nil when unrestricted
	boxVoxels map[int64]bool

	components *componentSet

	meshes  []*dataset.MeshActivity
	results []DecayResult
	runID   string
}

// NewProcessor creates a processor for the given parameters.
func NewProcessor(params *Params) *Processor {
	return &Processor{
		params: params,
		logger: logging.GetLogger(),
	}
}

// Process runs the complete processing pipeline
func (p *Processor) Process() error {
	if err := os.MkdirAll(p.params.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Step 1: Load input datasets
	fmt.Println("Step 1: Loading input datasets...")
	if err := p.loadDatasets(); err != nil {
		return fmt.Errorf("failed to load datasets: %w", err)
	}

	// Step 2: Relabel decay steps
	if len(p.params.DecayTimes) > 0 {
		fmt.Println("Step 2: Relabelling decay times...")
		relabelled, err := p.activity.WithDecayTimes(p.params.DecayTimes)
		if err != nil {
			return fmt.Errorf("failed to relabel decay times: %w", err)
		}
		p.activity = relabelled
	} else {
		fmt.Println("Step 2: Keeping decay times of the input")
	}
	if p.params.SaveIntermediaryResults {
		fmt.Println("Saving input datasets...")
		p.saveIntermediary()
	}

	// Step 3: Load reference data
	fmt.Println("Step 3: Loading reference data...")
	calc, err := dose.LoadReference(p.params.ReferenceFile)
	if err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}
	p.calc = calc
	if err := p.prepareStrategy(); err != nil {
		return err
	}

	// Step 4: Compute doses per decay time
	fmt.Printf("Step 4: Computing doses (%s mode)...\n", p.params.Mode)
	for i, t := range p.activity.DecayTimes() {
		if err := p.processDecayTime(i, t); err != nil {
			return fmt.Errorf("failed at decay time %g: %w", t, err)
		}
	}

	// Step 5: Record the report
	if p.params.ReportDB != "" {
		fmt.Println("Step 5: Writing report...")
		if err := p.writeReport(); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	// Step 6: Optional exports
	if p.params.Box != nil {
		if err := p.saveBox(); err != nil {
			return fmt.Errorf("failed to save radwaste box: %w", err)
		}
	}
	if p.params.ExtractSlices {
		fmt.Println("Step 6: Extracting dose slices...")
		p.extractSlices()
	}

	return nil
}

func (p *Processor) loadDatasets() error {
	var err error
	if p.activity, err = dataset.LoadAbsoluteActivity(p.params.InputDir); err != nil {
		return err
	}
	if p.mass, err = dataset.LoadMass(p.params.InputDir); err != nil {
		return err
	}
	fmt.Printf("Loaded %d activity rows and %d mass rows\n", p.activity.Len(), p.mass.Len())

	if p.params.Mode == Filtered && p.params.Box != nil {
		info, err := dataset.LoadMeshInfo(p.params.InputDir)
		if err != nil {
			return fmt.Errorf("radwaste box needs voxel centres: %w", err)
		}
		p.boxVoxels = voxelsInside(info, p.params.Box)
		fmt.Printf("%d of %d voxels inside the radwaste box\n", len(p.boxVoxels), info.Len())
	}
	return nil
}

func voxelsInside(info *dataset.MeshInfo, box geometry.Volume) map[int64]bool {
	out := make(map[int64]bool)
	for id, c := range info.Centers() {
		if box.Contains(r3.Vec{X: c[0], Y: c[1], Z: c[2]}) {
			out[id] = true
		}
	}
	return out
}

// prepareStrategy resolves the component list once for the by-component
// mode.
func (p *Processor) prepareStrategy() error {
	if p.params.Mode != ByComponent {
		return nil
	}
	list, err := components.Load(p.params.ComponentsFile)
	if err != nil {
		return fmt.Errorf("failed to load components: %w", err)
	}

	set := &componentSet{
		names: make([]string, len(list)),
		cells: make([][]int64, len(list)),
		cdr:   make([]models.CDRFactors, len(list)),
	}
	for i, c := range list {
		set.names[i], set.cells[i] = c.Name, c.CellIDs
	}

	info, err := components.NewInfo(list, p.mass, p.calc)
	var degenerate *dataset.DegenerateProportionError
	switch {
	case err == nil:
		copy(set.cdr, info.CDRFactors())
	case errors.As(err, &degenerate) && p.params.SkipDegenerateGroups:
		p.logger.Warn("components without mass get zero contact dose rate",
			slog.Any("components", degenerate.Labels))
		skip := make(map[int]bool, len(degenerate.Groups))
		for _, g := range degenerate.Groups {
			skip[g] = true
		}
		var kept []models.Component
		var index []int
		for i, c := range list {
			if !skip[i] {
				kept = append(kept, c)
				index = append(index, i)
			}
		}
		if len(kept) > 0 {
			info, err := components.NewInfo(kept, p.mass, p.calc)
			if err != nil {
				return err
			}
			for k, f := range info.CDRFactors() {
				set.cdr[index[k]] = f
			}
		}
	default:
		return err
	}
	p.components = set
	return nil
}

func (p *Processor) processDecayTime(i int, t float64) error {
	var (
		rows *meshRows
		err  error
	)
	switch p.params.Mode {
	case Standard:
		rows, err = voxelMesh(p.activity, p.mass, p.calc, t, voxelSelection{})
	case Filtered:
		rows, err = voxelMesh(p.activity, p.mass, p.calc, t, voxelSelection{
			Cells:    p.params.Cells,
			Isotopes: p.params.Isotopes,
			Voxels:   p.boxVoxels,
		})
	case ByComponent:
		rows, err = componentMesh(p.activity, p.mass, p.components, t)
	default:
		err = fmt.Errorf("unsupported mode %s", p.params.Mode)
	}
	if err != nil {
		return err
	}

	degenerate := 0
	if rows.degenerate != nil {
		if !p.params.SkipDegenerateGroups {
			return rows.degenerate
		}
		degenerate = len(rows.degenerate.Groups)
		p.logger.Warn("voxels without mass get zero contact dose rate",
			slog.Float64("decay_time", t), slog.Int("voxels", degenerate))
	}
	if rows.mesh.Len() == 0 {
		p.logger.Warn("filters leave no rows", slog.Float64("decay_time", t))
	}

	result, err := p.calc.Doses(rows.mesh, rows.cdr)
	if err != nil {
		return err
	}

	folder := filepath.Join(p.params.OutputDir, CaseFolder(i, t))
	if err := result.Save(folder); err != nil {
		return fmt.Errorf("failed to save doses: %w", err)
	}

	summary := summarize(result)
	summary.DecayTime, summary.Folder, summary.Degenerate = t, folder, degenerate
	p.meshes = append(p.meshes, result)
	p.results = append(p.results, summary)
	fmt.Printf("  %s: %d rows, total dose at 1m %.4g, max CDR %.4g\n", filepath.Base(folder),
		summary.Rows, summary.TotalDose1m, summary.MaxCDR)
	return nil
}

// CaseFolder names the output folder of the i-th decay time.
func CaseFolder(i int, decayTime float64) string {
	return fmt.Sprintf("%02d_%s", i+1, strconv.FormatFloat(decayTime, 'g', -1, 64))
}

func summarize(mesh *dataset.MeshActivity) DecayResult {
	t := mesh.Table()
	d1m, _ := t.Column(models.KeyDose1Meter)
	cdr, _ := t.Column(models.KeyCDR)
	out := DecayResult{Rows: mesh.Len(), TotalDose1m: floats.Sum(d1m)}
	if len(cdr) > 0 {
		out.MeanCDR = stat.Mean(cdr, nil)
		out.MaxCDR = floats.Max(cdr)
	}
	return out
}

func (p *Processor) saveIntermediary() {
	dir := filepath.Join(p.params.OutputDir, "00_input")
	for _, d := range []*dataset.Dataset{p.activity.Dataset, p.mass.Dataset} {
		if err := d.Save(dir); err != nil {
			p.logger.Warn("failed to save input dataset", slog.String("kind", d.Name()),
				slog.Any("error", xerrors.New(err)))
		}
	}
}

func (p *Processor) writeReport() error {
	store, err := report.Open(p.params.ReportDB)
	if err != nil {
		return err
	}
	defer store.Close()

	var rows []report.DoseRow
	for i, m := range p.meshes {
		rows = append(rows, report.RowsFromMesh(p.results[i].DecayTime, m)...)
	}
	id, err := store.SaveRun(p.params.Mode.String(), p.params.InputDir, rows)
	if err != nil {
		return err
	}
	p.runID = id
	return nil
}

func (p *Processor) saveBox() error {
	surface, ok := p.params.Box.(interface{ Triangles() []stl.Triangle })
	if !ok {
		return nil
	}
	return stl.SaveToSTL(filepath.Join(p.params.OutputDir, BoxFileName), surface.Triangles())
}

// extractSlices renders each decay time on the structured mesh. Failures
// are logged and do not fail the run.
func (p *Processor) extractSlices() {
	if p.params.Mode == ByComponent {
		p.logger.Warn("slices need voxel rows; skipped in by-component mode")
		return
	}
	column := p.params.SliceColumn
	if column == "" {
		column = models.KeyCDR
	}
	for i, m := range p.meshes {
		values := make(map[int64]float64, m.Len())
		col, _ := m.Table().Column(column)
		for r, l := range m.Voxels() {
			values[l.Int()] = col[r]
		}
		viewer, err := visualization.NewViewer(values, p.params.NX, p.params.NY, p.params.NZ)
		if err != nil {
			p.logger.Warn("cannot render slices", slog.Any("error", xerrors.New(err)))
			return
		}
		for _, axis := range []string{"x", "y", "z"} {
			dir := filepath.Join(p.results[i].Folder, "slices", axis)
			if _, err := viewer.SaveSliceSequence(axis, dir); err != nil {
				p.logger.Warn("failed to save slices", slog.String("axis", axis),
					slog.Any("error", xerrors.New(err)))
			}
		}
	}
}

// GetResults returns the per decay time summaries of the last run.
func (p *Processor) GetResults() []DecayResult {
	return append([]DecayResult(nil), p.results...)
}

// GetRunID returns the report id of the last run, empty without a report.
func (p *Processor) GetRunID() string { return p.runID }
