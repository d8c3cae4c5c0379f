package plotting

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/pescan/internal/modules/pes"
)

// Artifact kinds served for a finished run.
const (
	KindResult = "result"
	KindPES    = "pes"
	KindError  = "error"
)

// ArtifactWriter writes result.json and both charts of a run into Dir/<run id>.
type ArtifactWriter struct {
	Dir string
}

// NewArtifactWriter creates a writer rooted at dir.
func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{Dir: dir}
}

// RunDir returns the directory holding a run's artifacts.
func (w *ArtifactWriter) RunDir(runID string) string {
	return filepath.Join(w.Dir, runID)
}

// Path returns where the artifact of the given kind lives, or an error for
// unknown kinds.
func (w *ArtifactWriter) Path(runID, molecule, kind string) (string, error) {
	dir := w.RunDir(runID)
	switch kind {
	case KindResult:
		return filepath.Join(dir, "result.json"), nil
	case KindPES:
		return filepath.Join(dir, "pes_"+slug(molecule)+".png"), nil
	case KindError:
		return filepath.Join(dir, "energy_error_"+slug(molecule)+".png"), nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

// WriteArtifacts implements pes.ArtifactWriter.
func (w *ArtifactWriter) WriteArtifacts(run *pes.Run) ([]string, error) {
	if run.Result == nil {
		return nil, ErrNoData
	}

	dir := w.RunDir(run.ID)
	resultPath, _ := w.Path(run.ID, run.Molecule, KindResult)
	if err := pes.SaveResult(resultPath, run.Result); err != nil {
		return nil, err
	}

	pesPath, err := PlotPES(run.Result, run.Molecule, dir)
	if err != nil {
		return nil, err
	}
	errPath, err := PlotEnergyError(run.Result, run.Molecule, dir)
	if err != nil {
		return nil, err
	}
	return []string{resultPath, pesPath, errPath}, nil
}
