package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/aristath/pescan/internal/modules/exact"
	"github.com/aristath/pescan/internal/modules/molecules"
	"github.com/aristath/pescan/internal/modules/pes"
	"github.com/aristath/pescan/internal/modules/plotting"
	"github.com/aristath/pescan/internal/modules/quantum"
	"github.com/aristath/pescan/internal/modules/vqe"
	"github.com/aristath/pescan/pkg/logger"
)

// studyGrids are the scan ranges used when --points is not given.
var studyGrids = map[string]string{
	"h2":   "0.3:2.5:0.1",
	"lih":  "1.0:3.0:0.2",
	"beh2": "90:180:10",
}

// study holds what every command shares: the output directory, the logger and
// a scanner that prints one line per finished point.
type study struct {
	w       io.Writer
	dir     string
	log     zerolog.Logger
	scanner *pes.Scanner
}

func newStudy(c *cli.Context) (*study, error) {
	dir := c.String("out")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  c.String("log-level"),
		Pretty: true,
		Output: c.App.ErrWriter,
	})

	s := &study{w: c.App.Writer, dir: dir, log: log}

	var mu sync.Mutex
	s.scanner = pes.NewScanner(
		vqe.NewRunner(nil, log),
		exact.NewSolver(exact.DefaultMaxQubits),
		log,
	).WithProgress(pes.ProgressFunc(func(p pes.Point) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(s.w, "  [%d/%d] x = %.3f  VQE=%.6f, Exact=%.6f, Error=%.2f mHa\n",
			p.Index+1, p.Total, p.Parameter, p.VQEEnergy, p.ExactEnergy, p.ErrorMilliHartree())
	}))
	return s, nil
}

// parsePoints accepts "a,b,c" or an inclusive "from:to:step" range.
func parsePoints(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("no scan points given")
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("range %q must be from:to:step", s)
		}
		var bounds [3]float64
		for i, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("range %q: %w", s, err)
			}
			bounds[i] = v
		}
		from, to, step := bounds[0], bounds[1], bounds[2]
		if step <= 0 || to < from {
			return nil, fmt.Errorf("range %q needs from <= to and a positive step", s)
		}
		n := int(math.Floor((to-from)/step+1e-9)) + 1
		points := make([]float64, n)
		for i := range points {
			points[i] = math.Round((from+float64(i)*step)*1e9) / 1e9
		}
		return points, nil
	}

	var points []float64
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid scan point %q: %w", field, err)
		}
		points = append(points, v)
	}
	return points, nil
}

// pointsFor returns --points, or the study grid of the molecule.
func pointsFor(c *cli.Context, key string) ([]float64, error) {
	if c.IsSet("points") {
		return parsePoints(c.String("points"))
	}
	grid, ok := studyGrids[strings.ToLower(key)]
	if !ok {
		return nil, fmt.Errorf("no default grid for %q, pass --points", key)
	}
	return parsePoints(grid)
}

func scanOptions(c *cli.Context, ansatz string) pes.Options {
	return pes.Options{
		Ansatz:        ansatz,
		Reps:          c.Int("reps"),
		MaxIterations: c.Int("maxiter"),
		Seed:          c.Int64("seed"),
		Workers:       c.Int("workers"),
	}
}

// run scans one molecule and writes its table to <dir>/<file>.
func (s *study) run(c *cli.Context, tmpl *molecules.Template, points []float64, opts pes.Options, file string) (*pes.Result, error) {
	fmt.Fprintf(s.w, "%s PES scan over %d %s points (%s, reps=%d)\n",
		tmpl.Name(), len(points), tmpl.ParameterName(), opts.Ansatz, opts.Reps)

	result, err := s.scanner.Scan(c.Context, tmpl, points, opts)
	if err != nil {
		return nil, fmt.Errorf("%s scan failed: %w", tmpl.Name(), err)
	}

	path := filepath.Join(s.dir, file)
	if err := pes.SaveResult(path, result); err != nil {
		return nil, err
	}

	fmt.Fprintf(s.w, "  max error %.2f mHa, mean %.2f mHa, %d/%d points within chemical accuracy\n",
		result.MaxError()*1000, result.MeanError()*1000, result.WithinChemicalAccuracy(), result.Len())
	fmt.Fprintf(s.w, "  saved %s\n", path)
	return result, nil
}

func (s *study) report(path string, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(s.w, "  saved %s\n", path)
	return nil
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "scan molecules and chart VQE against exact energies",
		Flags: append([]cli.Flag{
			&cli.StringSliceFlag{
				Name:    "molecule",
				Aliases: []string{"m"},
				Value:   cli.NewStringSlice(molecules.Names()...),
				Usage:   "molecules to scan (" + strings.Join(molecules.Names(), ", ") + ")",
			},
			&cli.StringFlag{Name: "ansatz", Value: string(quantum.RealAmplitudes), Usage: "RealAmplitudes or EfficientSU2"},
		}, vqeFlags()...),
		Action: func(c *cli.Context) error {
			s, err := newStudy(c)
			if err != nil {
				return err
			}

			var series []plotting.Series
			for _, key := range c.StringSlice("molecule") {
				tmpl, err := molecules.Lookup(key)
				if err != nil {
					return err
				}
				points, err := pointsFor(c, key)
				if err != nil {
					return err
				}

				name := strings.ToLower(tmpl.Name())
				result, err := s.run(c, tmpl, points, scanOptions(c, c.String("ansatz")), name+"_pes.json")
				if err != nil {
					return err
				}
				if err := s.report(plotting.PlotPES(result, tmpl.Name(), s.dir)); err != nil {
					return err
				}
				if err := s.report(plotting.PlotEnergyError(result, tmpl.Name(), s.dir)); err != nil {
					return err
				}
				series = append(series, plotting.Series{Name: tmpl.Name(), Result: result})
			}

			if len(series) > 1 {
				return s.report(plotting.PlotMultiMolecule(series, s.dir))
			}
			return nil
		},
	}
}

func compareAnsatzCommand() *cli.Command {
	kinds := make([]string, 0, len(quantum.AnsatzKinds()))
	for _, k := range quantum.AnsatzKinds() {
		kinds = append(kinds, string(k))
	}

	return &cli.Command{
		Name:  "compare-ansatz",
		Usage: "scan one molecule with every ansatz and chart them together",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "molecule", Aliases: []string{"m"}, Value: "h2"},
			&cli.StringSliceFlag{Name: "ansatz", Value: cli.NewStringSlice(kinds...)},
		}, vqeFlags()...),
		Action: func(c *cli.Context) error {
			s, err := newStudy(c)
			if err != nil {
				return err
			}

			tmpl, err := molecules.Lookup(c.String("molecule"))
			if err != nil {
				return err
			}
			points, err := pointsFor(c, c.String("molecule"))
			if err != nil {
				return err
			}

			var series []plotting.Series
			for _, a := range c.StringSlice("ansatz") {
				kind, err := quantum.ParseAnsatzKind(a)
				if err != nil {
					return err
				}
				file := strings.ToLower(tmpl.Name()) + "_" + strings.ToLower(string(kind)) + "_pes.json"
				result, err := s.run(c, tmpl, points, scanOptions(c, string(kind)), file)
				if err != nil {
					return err
				}
				series = append(series, plotting.Series{Name: string(kind), Result: result})
			}

			return s.report(plotting.PlotAnsatzComparison(series, tmpl.Name(), s.dir))
		},
	}
}

func plotCommand() *cli.Command {
	return &cli.Command{
		Name:      "plot",
		Usage:     "chart saved result tables",
		ArgsUsage: "RESULT.json [RESULT.json...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "chart title for a single table"},
			&cli.BoolFlag{Name: "ansatz-comparison", Usage: "treat the tables as one molecule under different ansatzes"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("plot needs at least one result file")
			}
			s, err := newStudy(c)
			if err != nil {
				return err
			}

			var series []plotting.Series
			for _, path := range c.Args().Slice() {
				result, err := pes.LoadResult(path)
				if err != nil {
					return err
				}
				name := strings.TrimSuffix(filepath.Base(path), "_pes.json")
				name = strings.TrimSuffix(name, filepath.Ext(name))
				if c.IsSet("name") && c.NArg() == 1 {
					name = c.String("name")
				}
				series = append(series, plotting.Series{Name: name, Result: result})
			}

			if c.Bool("ansatz-comparison") {
				title := c.String("name")
				if title == "" {
					title = "Molecule"
				}
				return s.report(plotting.PlotAnsatzComparison(series, title, s.dir))
			}

			for _, sr := range series {
				if err := s.report(plotting.PlotPES(sr.Result, sr.Name, s.dir)); err != nil {
					return err
				}
				if err := s.report(plotting.PlotEnergyError(sr.Result, sr.Name, s.dir)); err != nil {
					return err
				}
			}
			if len(series) > 1 {
				return s.report(plotting.PlotMultiMolecule(series, s.dir))
			}
			return nil
		},
	}
}

func qasmCommand() *cli.Command {
	return &cli.Command{
		Name:  "qasm",
		Usage: "print an ansatz circuit bound to its seeded initial parameters",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ansatz", Value: string(quantum.RealAmplitudes)},
			&cli.IntFlag{Name: "qubits", Value: 4},
			&cli.IntFlag{Name: "reps", Value: vqe.DefaultReps},
			&cli.Int64Flag{Name: "seed", Value: vqe.DefaultSeed},
		},
		Action: func(c *cli.Context) error {
			kind, err := quantum.ParseAnsatzKind(c.String("ansatz"))
			if err != nil {
				return err
			}
			circuit, err := quantum.NewAnsatz(kind, c.Int("qubits"), c.Int("reps"))
			if err != nil {
				return err
			}
			qasm, err := circuit.QASM(vqe.InitialParameters(circuit.NumParameters, c.Int64("seed")))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(c.App.Writer, qasm)
			return err
		},
	}
}
