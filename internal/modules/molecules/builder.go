// Package molecules turns a single geometric parameter (bond length or bond
// angle) into a qubit Hamiltonian through the chemistry driver, an optional
// active-space reduction and the Jordan-Wigner mapping.
package molecules

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aristath/pescan/internal/chem"
	"github.com/aristath/pescan/internal/qubit"
)

// ErrUnknownMolecule is returned by Lookup for names without a template.
var ErrUnknownMolecule = errors.New("unknown molecule")

// Context carries the scalars a caller needs next to the qubit operator.
type Context struct {
	Molecule           string  `json:"molecule" msgpack:"molecule"`
	Parameter          float64 `json:"parameter" msgpack:"parameter"`
	Geometry           string  `json:"geometry" msgpack:"geometry"`
	NuclearRepulsion   float64 `json:"nuclear_repulsion" msgpack:"nuclear_repulsion"`
	CoreEnergy         float64 `json:"core_energy" msgpack:"core_energy"`
	HFEnergy           float64 `json:"hf_energy" msgpack:"hf_energy"`
	NumParticles       int     `json:"num_particles" msgpack:"num_particles"`
	NumSpatialOrbitals int     `json:"num_spatial_orbitals" msgpack:"num_spatial_orbitals"`
	NumQubits          int     `json:"num_qubits" msgpack:"num_qubits"`
}

// Builder produces the qubit Hamiltonian of one molecule at a geometric parameter.
type Builder interface {
	Name() string
	Build(ctx context.Context, parameter float64) (*qubit.Operator, *Context, error)
}

// Template is a hardcoded molecule: a geometry generator plus an optional active space.
type Template struct {
	name          string
	parameterName string
	defaultValue  float64
	geometry      func(parameter float64) string
	activeSpace   *chem.ActiveSpace

	driver chem.Driver
	mapper qubit.Mapper
}

// Name returns the display name, e.g. "LiH".
func (t *Template) Name() string { return t.name }

// ParameterName is "distance" (Å) or "angle" (degrees).
func (t *Template) ParameterName() string { return t.parameterName }

// DefaultParameter is the equilibrium value used when a caller has no preference.
func (t *Template) DefaultParameter() float64 { return t.defaultValue }

// Geometry returns the coordinate string used for a parameter.
func (t *Template) Geometry(parameter float64) string { return t.geometry(parameter) }

// NumQubits is 2 × the number of (active) spatial orbitals; zero when it is only
// known after running the driver.
func (t *Template) NumQubits() int {
	if t.activeSpace != nil {
		return 2 * t.activeSpace.NumSpatialOrbitals
	}
	return 0
}

// Build runs driver → (active space) → second quantization → Jordan-Wigner.
// Failures from any stage are returned wrapped, never retried.
func (t *Template) Build(ctx context.Context, parameter float64) (*qubit.Operator, *Context, error) {
	geometry := t.geometry(parameter)

	problem, err := t.driver.Run(ctx, geometry)
	if err != nil {
		return nil, nil, fmt.Errorf("%s driver at %s=%g: %w", t.name, t.parameterName, parameter, err)
	}

	if t.activeSpace != nil {
		problem, err = t.activeSpace.Reduce(problem)
		if err != nil {
			return nil, nil, fmt.Errorf("%s active space: %w", t.name, err)
		}
	}

	fermionic, err := qubit.ElectronicHamiltonian(qubit.ElectronicIntegrals{
		NumSpatialOrbitals: problem.NumSpatialOrbitals,
		OneBody:            problem.OneBody,
		TwoBody:            problem.TwoBody,
		Constant:           problem.CoreEnergy,
	}, qubit.DefaultTolerance)
	if err != nil {
		return nil, nil, fmt.Errorf("%s hamiltonian: %w", t.name, err)
	}

	op, err := t.mapper.Map(fermionic)
	if err != nil {
		return nil, nil, fmt.Errorf("%s mapping: %w", t.name, err)
	}

	return op, &Context{
		Molecule:           t.name,
		Parameter:          parameter,
		Geometry:           geometry,
		NuclearRepulsion:   problem.NuclearRepulsion,
		CoreEnergy:         problem.CoreEnergy,
		HFEnergy:           problem.HFEnergy,
		NumParticles:       problem.NumParticles(),
		NumSpatialOrbitals: problem.NumSpatialOrbitals,
		NumQubits:          op.NumQubits(),
	}, nil
}

// WithDriver returns a copy of the template using a different driver configuration.
func (t *Template) WithDriver(d chem.Driver) *Template {
	c := *t
	c.driver = d
	return &c
}

// BeHDistance is the fixed Be-H bond length (Å) of the bending scan.
const BeHDistance = 1.326

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// H2 places two hydrogens on the z axis: 2 spatial orbitals, 4 qubits.
func H2() *Template {
	return &Template{
		name:          "H2",
		parameterName: "distance",
		defaultValue:  0.735,
		geometry: func(d float64) string {
			return "H 0.0 0.0 0.0; H 0.0 0.0 " + formatFloat(d)
		},
		driver: chem.NewDriver(),
		mapper: qubit.JordanWignerMapper{},
	}
}

// LiH keeps 2 electrons in 3 spatial orbitals around the Fermi level: 6 qubits.
func LiH() *Template {
	return &Template{
		name:          "LiH",
		parameterName: "distance",
		defaultValue:  1.546,
		geometry: func(d float64) string {
			return "Li 0.0 0.0 0.0; H 0.0 0.0 " + formatFloat(d)
		},
		activeSpace: &chem.ActiveSpace{NumElectrons: 2, NumSpatialOrbitals: 3},
		driver:      chem.NewDriver(),
		mapper:      qubit.JordanWignerMapper{},
	}
}

// BeH2 bends H-Be-H symmetrically about the z axis at fixed Be-H distance.
// The angle is in degrees; 180 is linear. Active space 2 electrons / 3 orbitals: 6 qubits.
func BeH2() *Template {
	return &Template{
		name:          "BeH2",
		parameterName: "angle",
		defaultValue:  180,
		geometry: func(angle float64) string {
			half := angle / 2 * math.Pi / 180
			y := BeHDistance * math.Sin(half)
			z := BeHDistance * math.Cos(half)
			return fmt.Sprintf("Be 0.0 0.0 0.0; H 0.0 %.6f %.6f; H 0.0 %.6f %.6f", y, z, -y, z)
		},
		activeSpace: &chem.ActiveSpace{NumElectrons: 2, NumSpatialOrbitals: 3},
		driver:      chem.NewDriver(),
		mapper:      qubit.JordanWignerMapper{},
	}
}

// BuildH2 builds H2 at the given H-H distance in Å.
func BuildH2(ctx context.Context, distance float64) (*qubit.Operator, *Context, error) {
	return H2().Build(ctx, distance)
}

// BuildLiH builds LiH at the given Li-H distance in Å.
func BuildLiH(ctx context.Context, distance float64) (*qubit.Operator, *Context, error) {
	return LiH().Build(ctx, distance)
}

// BuildBeH2 builds BeH2 at the given H-Be-H angle in degrees.
func BuildBeH2(ctx context.Context, angle float64) (*qubit.Operator, *Context, error) {
	return BeH2().Build(ctx, angle)
}

var registry = map[string]func() *Template{
	"h2":   H2,
	"lih":  LiH,
	"beh2": BeH2,
}

// Lookup returns the template registered under name (case-insensitive).
func Lookup(name string) (*Template, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownMolecule, name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names lists the registered molecule keys in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
