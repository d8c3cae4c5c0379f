package chem

import (
	"embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed basis/*.yaml
var basisFS embed.FS

// ErrUnknownBasis is returned for basis-set names without an embedded definition.
var ErrUnknownBasis = errors.New("unknown basis set")

// ErrUnknownElement is returned when a basis set has no entry for an element.
var ErrUnknownElement = errors.New("element not available in basis set")

type basisFile struct {
	Name     string                  `yaml:"name"`
	Elements map[string]elementEntry `yaml:"elements"`
}

type elementEntry struct {
	Z      int          `yaml:"z"`
	Shells []shellEntry `yaml:"shells"`
}

type shellEntry struct {
	Type          string    `yaml:"type"`
	Exponents     []float64 `yaml:"exponents"`
	Coefficients  []float64 `yaml:"coefficients"`
	PCoefficients []float64 `yaml:"p_coefficients"`
}

// BasisSet holds the contraction data of one named basis for every element it covers.
type BasisSet struct {
	Name     string
	elements map[string]elementEntry
}

var (
	basisCacheMu sync.Mutex
	basisCache   = map[string]*BasisSet{}
)

// LoadBasis returns the embedded basis set with the given name ("sto-3g", "STO3G", ...).
func LoadBasis(name string) (*BasisSet, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "")

	basisCacheMu.Lock()
	defer basisCacheMu.Unlock()

	if b, ok := basisCache[key]; ok {
		return b, nil
	}

	var file string
	switch key {
	case "sto3g":
		file = "basis/sto-3g.yaml"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBasis, name)
	}

	raw, err := basisFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read basis %s: %w", file, err)
	}

	var parsed basisFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse basis %s: %w", file, err)
	}

	for sym, el := range parsed.Elements {
		for i, sh := range el.Shells {
			if len(sh.Exponents) == 0 || len(sh.Exponents) != len(sh.Coefficients) {
				return nil, fmt.Errorf("basis %s: %s shell %d has mismatched contraction", parsed.Name, sym, i)
			}
			if sh.Type == "SP" && len(sh.PCoefficients) != len(sh.Exponents) {
				return nil, fmt.Errorf("basis %s: %s shell %d has mismatched p contraction", parsed.Name, sym, i)
			}
		}
	}

	b := &BasisSet{Name: parsed.Name, elements: parsed.Elements}
	basisCache[key] = b
	return b, nil
}

// AtomicNumber returns the nuclear charge recorded for an element.
func (b *BasisSet) AtomicNumber(symbol string) (int, error) {
	el, ok := b.elements[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s in %s", ErrUnknownElement, symbol, b.Name)
	}
	return el.Z, nil
}

// Primitive is a single normalized Cartesian Gaussian component of a contraction.
type Primitive struct {
	Exponent    float64
	Coefficient float64 // contraction coefficient including primitive and contraction normalization
}

// BasisFunction is a contracted Cartesian Gaussian x^l y^m z^n exp(-a r^2) centred on an atom.
type BasisFunction struct {
	Atom       int
	Center     [3]float64
	Powers     [3]int
	Primitives []Primitive
}

// AngularMomentum returns l+m+n.
func (f BasisFunction) AngularMomentum() int {
	return f.Powers[0] + f.Powers[1] + f.Powers[2]
}

var pPowers = [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// Functions expands the basis on every atom into normalized contracted functions,
// in atom order, shells in file order, Cartesian components x, y, z for p shells.
func (b *BasisSet) Functions(atoms []Atom) ([]BasisFunction, error) {
	var out []BasisFunction
	for i, a := range atoms {
		el, ok := b.elements[a.Symbol]
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrUnknownElement, a.Symbol, b.Name)
		}
		for _, sh := range el.Shells {
			switch sh.Type {
			case "S":
				out = append(out, contract(i, a.Position, [3]int{}, sh.Exponents, sh.Coefficients))
			case "SP":
				out = append(out, contract(i, a.Position, [3]int{}, sh.Exponents, sh.Coefficients))
				for _, pw := range pPowers {
					out = append(out, contract(i, a.Position, pw, sh.Exponents, sh.PCoefficients))
				}
			case "P":
				for _, pw := range pPowers {
					out = append(out, contract(i, a.Position, pw, sh.Exponents, sh.Coefficients))
				}
			default:
				return nil, fmt.Errorf("basis %s: unsupported shell type %q for %s", b.Name, sh.Type, a.Symbol)
			}
		}
	}
	return out, nil
}

// contract builds one contracted function and normalizes it so that <f|f> = 1.
func contract(atom int, center [3]float64, powers [3]int, exps, coefs []float64) BasisFunction {
	l, m, n := powers[0], powers[1], powers[2]
	L := l + m + n
	dfact := doubleFactorial(2*l-1) * doubleFactorial(2*m-1) * doubleFactorial(2*n-1)

	norms := make([]float64, len(exps))
	for i, a := range exps {
		norms[i] = math.Pow(2*a/math.Pi, 0.75) * math.Pow(4*a, float64(L)/2) / math.Sqrt(dfact)
	}

	prefactor := math.Pow(math.Pi, 1.5) * dfact / math.Pow(2, float64(L))
	sum := 0.0
	for i := range exps {
		for j := range exps {
			sum += norms[i] * norms[j] * coefs[i] * coefs[j] / math.Pow(exps[i]+exps[j], float64(L)+1.5)
		}
	}
	scale := 1 / math.Sqrt(sum*prefactor)

	prims := make([]Primitive, len(exps))
	for i := range exps {
		prims[i] = Primitive{Exponent: exps[i], Coefficient: scale * norms[i] * coefs[i]}
	}
	return BasisFunction{Atom: atom, Center: center, Powers: powers, Primitives: prims}
}

// doubleFactorial returns n!! with (-1)!! = 1.
func doubleFactorial(n int) float64 {
	r := 1.0
	for k := n; k > 1; k -= 2 {
		r *= float64(k)
	}
	return r
}
