package chem

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BohrPerAngstrom converts Ångström to bohr (CODATA 2010 Bohr radius 0.52917721092 Å).
const BohrPerAngstrom = 1 / 0.52917721092

// Unit is the length unit of a geometry string.
type Unit string

const (
	Angstrom Unit = "angstrom"
	Bohr     Unit = "bohr"
)

// ErrInvalidGeometry is returned when a geometry string cannot be parsed.
var ErrInvalidGeometry = errors.New("invalid geometry")

var atomicNumbers = map[string]int{
	"H": 1, "He": 2, "Li": 3, "Be": 4, "B": 5, "C": 6, "N": 7, "O": 8, "F": 9, "Ne": 10,
}

// Atom is a nucleus with its position in bohr.
type Atom struct {
	Symbol   string
	Z        int
	Position [3]float64
}

// ParseGeometry parses "Sym x y z; Sym x y z; ..." into atoms with positions converted to bohr.
// Physically meaningless coordinates (overlapping nuclei, huge distances) are not rejected here.
func ParseGeometry(geometry string, unit Unit) ([]Atom, error) {
	scale := 1.0
	switch unit {
	case Angstrom, "":
		scale = BohrPerAngstrom
	case Bohr:
	default:
		return nil, fmt.Errorf("%w: unknown unit %q", ErrInvalidGeometry, unit)
	}

	var atoms []Atom
	for i, entry := range strings.Split(geometry, ";") {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: atom %d %q needs a symbol and three coordinates", ErrInvalidGeometry, i, strings.TrimSpace(entry))
		}

		sym := normalizeSymbol(fields[0])
		z, ok := atomicNumbers[sym]
		if !ok {
			return nil, fmt.Errorf("%w: unknown element %q", ErrInvalidGeometry, fields[0])
		}

		var pos [3]float64
		for k := 0; k < 3; k++ {
			v, err := strconv.ParseFloat(fields[k+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: atom %d coordinate %q: %v", ErrInvalidGeometry, i, fields[k+1], err)
			}
			pos[k] = v * scale
		}
		atoms = append(atoms, Atom{Symbol: sym, Z: z, Position: pos})
	}

	if len(atoms) == 0 {
		return nil, fmt.Errorf("%w: no atoms", ErrInvalidGeometry)
	}
	return atoms, nil
}

func normalizeSymbol(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// NuclearRepulsion returns sum_{A<B} Z_A Z_B / R_AB in hartree.
func NuclearRepulsion(atoms []Atom) float64 {
	e := 0.0
	for i := range atoms {
		for j := i + 1; j < len(atoms); j++ {
			e += float64(atoms[i].Z*atoms[j].Z) / distance(atoms[i].Position, atoms[j].Position)
		}
	}
	return e
}

// ElectronCount returns the number of electrons for the given total charge.
func ElectronCount(atoms []Atom, charge int) int {
	n := -charge
	for _, a := range atoms {
		n += a.Z
	}
	return n
}

func distance(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
