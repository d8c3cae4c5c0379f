// Package plotting renders scan result tables as PNG charts.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aristath/pescan/internal/modules/pes"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// DPI of every written PNG.
const DPI = 150

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

// Series is one named result table. Slices of Series keep caller order.
type Series struct {
	Name   string
	Result *pes.Result
}

var (
	colorExact    = mustHex("#2C3E50")
	colorVQE      = mustHex("#FF6B6B")
	colorError    = mustHex("#E74C3C")
	colorAccuracy = mustHex("#2ECC71")
	colorFallback = color.RGBA{R: 128, G: 128, B: 128, A: 255}

	multiExact = []color.Color{mustHex("#2C3E50"), mustHex("#1A5276"), mustHex("#1B4F72")}
	multiVQE   = []color.Color{mustHex("#FF6B6B"), mustHex("#4ECDC4"), mustHex("#45B7D1")}

	ansatzColors = map[string]color.Color{
		"RealAmplitudes": mustHex("#FF6B6B"),
		"EfficientSU2":   mustHex("#4ECDC4"),
	}

	dashed = []vg.Length{vg.Points(6), vg.Points(3)}
)

// PlotPES draws exact and VQE energies against the scan parameter and writes
// pes_<slug>.png into dir.
func PlotPES(result *pes.Result, name, dir string) (string, error) {
	if err := checkResult(result); err != nil {
		return "", err
	}

	p := newPlot(name+" Potential Energy Surface", "Distance / Angle", "Energy (Hartree)")
	if err := addExact(p, result, colorExact, "Exact (FCI)"); err != nil {
		return "", err
	}
	if err := addVQE(p, result, colorVQE, "VQE"); err != nil {
		return "", err
	}

	path := filepath.Join(dir, "pes_"+slug(name)+".png")
	return path, save(path, 10, 6, p)
}

// PlotEnergyError draws |VQE - exact| in mHa with the chemical accuracy line.
// The file is energy_error_<slug>.png, or energy_error.png for an empty name.
func PlotEnergyError(result *pes.Result, name, dir string) (string, error) {
	if err := checkResult(result); err != nil {
		return "", err
	}

	title := "VQE Energy Error"
	if name != "" {
		title = name + ": " + title
	}
	p := newPlot(title, "Distance / Angle", "|VQE - Exact| (mHa)")
	if err := addErrors(p, result, colorError, ""); err != nil {
		return "", err
	}
	addAccuracyLine(p, "Chemical accuracy (1.6 mHa)")

	file := "energy_error.png"
	if name != "" {
		file = "energy_error_" + slug(name) + ".png"
	}
	path := filepath.Join(dir, file)
	return path, save(path, 10, 5, p)
}

// PlotMultiMolecule draws one PES panel per series side by side and writes
// multi_molecule_comparison.png.
func PlotMultiMolecule(series []Series, dir string) (string, error) {
	if len(series) == 0 {
		return "", ErrNoData
	}

	row := make([]*plot.Plot, len(series))
	for i, s := range series {
		if err := checkResult(s.Result); err != nil {
			return "", fmt.Errorf("%s: %w", s.Name, err)
		}
		p := newPlot(s.Name, "Distance / Angle", "Energy (Ha)")
		if err := addExact(p, s.Result, multiExact[i%len(multiExact)], "Exact (FCI)"); err != nil {
			return "", err
		}
		if err := addVQE(p, s.Result, multiVQE[i%len(multiVQE)], "VQE"); err != nil {
			return "", err
		}
		row[i] = p
	}

	path := filepath.Join(dir, "multi_molecule_comparison.png")
	return path, saveTiled(path, 6*float64(len(series)), 5, [][]*plot.Plot{row})
}

// PlotAnsatzComparison draws the PES of every ansatz against the exact curve of
// the first series, next to their error curves, and writes
// ansatz_comparison_<lower name>.png.
func PlotAnsatzComparison(series []Series, name, dir string) (string, error) {
	if len(series) == 0 {
		return "", ErrNoData
	}
	for _, s := range series {
		if err := checkResult(s.Result); err != nil {
			return "", fmt.Errorf("%s: %w", s.Name, err)
		}
	}

	first := series[0].Result
	pesPlot := newPlot(name+": PES by Ansatz", "Distance (A)", "Energy (Ha)")
	if err := addExact(pesPlot, first, colorExact, "Exact (FCI)"); err != nil {
		return "", err
	}
	errPlot := newPlot(name+": VQE Error by Ansatz", "Distance (A)", "|VQE - Exact| (mHa)")

	for _, s := range series {
		c := ansatzColor(s.Name)
		if err := addVQE(pesPlot, s.Result, c, "VQE ("+s.Name+")"); err != nil {
			return "", err
		}
		if err := addErrors(errPlot, s.Result, c, s.Name); err != nil {
			return "", err
		}
	}
	addAccuracyLine(errPlot, "Chemical accuracy")

	path := filepath.Join(dir, "ansatz_comparison_"+strings.ToLower(name)+".png")
	return path, saveTiled(path, 14, 5, [][]*plot.Plot{{pesPlot, errPlot}})
}

func checkResult(r *pes.Result) error {
	if r == nil || r.Len() == 0 {
		return ErrNoData
	}
	return r.Validate()
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	grid := plotter.NewGrid()
	grid.Vertical.Color = color.Gray{Y: 220}
	grid.Horizontal.Color = color.Gray{Y: 220}
	p.Add(grid)
	return p
}

// points copies xs/ys so plotters never alias caller slices.
func points(xs, ys []float64, scale float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i] * scale
	}
	return pts
}

func addSeries(p *plot.Plot, pts plotter.XYs, c color.Color, glyph draw.GlyphDrawer, dashes []vg.Length, label string) error {
	line, scatter, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("failed to build line: %w", err)
	}
	line.Color = c
	line.Width = vg.Points(2)
	line.Dashes = dashes
	scatter.Color = c
	scatter.Radius = vg.Points(3)
	scatter.Shape = glyph
	p.Add(line, scatter)
	if label != "" {
		p.Legend.Add(label, line, scatter)
	}
	return nil
}

func addExact(p *plot.Plot, r *pes.Result, c color.Color, label string) error {
	return addSeries(p, points(r.Distances, r.ExactEnergies, 1), c, draw.CircleGlyph{}, nil, label)
}

func addVQE(p *plot.Plot, r *pes.Result, c color.Color, label string) error {
	return addSeries(p, points(r.Distances, r.VQEEnergies, 1), c, draw.SquareGlyph{}, dashed, label)
}

func addErrors(p *plot.Plot, r *pes.Result, c color.Color, label string) error {
	return addSeries(p, points(r.Distances, r.Errors, 1000), c, draw.CircleGlyph{}, nil, label)
}

// addAccuracyLine draws the 1.6 mHa threshold and keeps it inside the y range.
func addAccuracyLine(p *plot.Plot, label string) {
	const threshold = pes.ChemicalAccuracy * 1000
	f := plotter.NewFunction(func(float64) float64 { return threshold })
	f.Color = colorAccuracy
	f.Width = vg.Points(1.5)
	f.Dashes = dashed
	p.Add(f)
	p.Legend.Add(label, f)
	p.Y.Min = math.Min(p.Y.Min, 0)
	p.Y.Max = math.Max(p.Y.Max, threshold*1.2)
}

func ansatzColor(name string) color.Color {
	if c, ok := ansatzColors[name]; ok {
		return c
	}
	return colorFallback
}

func save(path string, wInch, hInch float64, p *plot.Plot) error {
	return saveTiled(path, wInch, hInch, [][]*plot.Plot{{p}})
}

// saveTiled renders a grid of plots onto one PNG canvas.
func saveTiled(path string, wInch, hInch float64, plots [][]*plot.Plot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}

	img := vgimg.NewWith(
		vgimg.UseWH(vg.Length(wInch)*vg.Inch, vg.Length(hInch)*vg.Inch),
		vgimg.UseDPI(DPI),
	)
	dc := draw.New(img)

	if len(plots) == 1 && len(plots[0]) == 1 {
		plots[0][0].Draw(dc)
	} else {
		t := draw.Tiles{
			Rows:      len(plots),
			Cols:      len(plots[0]),
			PadX:      vg.Millimeter * 4,
			PadY:      vg.Millimeter * 4,
			PadTop:    vg.Millimeter * 2,
			PadBottom: vg.Millimeter * 2,
			PadLeft:   vg.Millimeter * 2,
			PadRight:  vg.Millimeter * 2,
		}
		canvases := plot.Align(plots, t, dc)
		for j := range plots {
			for i := range plots[j] {
				if plots[j][i] != nil {
					plots[j][i].Draw(canvases[j][i])
				}
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// slug lower-cases name and replaces spaces with underscores.
func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

func mustHex(s string) color.RGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil {
		panic(fmt.Sprintf("bad color %q", s))
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
