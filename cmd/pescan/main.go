// Package main is the batch command line for PES studies. It runs the H2 and
// LiH distance scans, the BeH2 bending scan and the ansatz comparison, and
// writes the result tables and charts to a directory.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/aristath/pescan/internal/modules/vqe"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pescan:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pescan",
		Usage: "compare VQE against exact diagonalization along potential energy surfaces",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Value:   "results",
				Usage:   "directory for result tables and charts",
				EnvVars: []string{"RESULTS_DIR"},
			},
		},
		Commands: []*cli.Command{
			scanCommand(),
			compareAnsatzCommand(),
			plotCommand(),
			qasmCommand(),
		},
	}
}

// vqeFlags are shared by the commands that run optimizations.
func vqeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "points", Usage: "comma separated scan parameters, or from:to:step"},
		&cli.IntFlag{Name: "reps", Value: vqe.DefaultReps, Usage: "ansatz repetitions"},
		&cli.IntFlag{Name: "maxiter", Value: vqe.DefaultMaxIterations, Usage: "optimizer iteration budget per point"},
		&cli.Int64Flag{Name: "seed", Value: vqe.DefaultSeed, Usage: "base seed; point i uses seed+i"},
		&cli.IntFlag{Name: "workers", Value: 1, Usage: "points evaluated concurrently"},
	}
}
