package chem

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSCFNotConverged is returned when the RHF iterations exhaust their budget.
	ErrSCFNotConverged = errors.New("SCF did not converge")
	// ErrLinearDependence is returned when the overlap matrix is numerically singular.
	ErrLinearDependence = errors.New("basis set is linearly dependent")
)

// SCFOptions controls the restricted Hartree-Fock iterations.
type SCFOptions struct {
	MaxIterations    int
	EnergyTolerance  float64 // |ΔE| in hartree
	DensityTolerance float64 // RMS of the orthogonalized DIIS residual
	DIISSize         int     // number of Fock matrices kept for extrapolation
}

// DefaultSCFOptions returns tight convergence settings suitable for small molecules.
func DefaultSCFOptions() SCFOptions {
	return SCFOptions{
		MaxIterations:    128,
		EnergyTolerance:  1e-10,
		DensityTolerance: 1e-8,
		DIISSize:         8,
	}
}

// SCFResult is a converged closed-shell RHF solution.
type SCFResult struct {
	ElectronicEnergy float64
	OrbitalEnergies  []float64  // ascending
	Coefficients     *mat.Dense // AO × MO, column p is molecular orbital p
	Iterations       int
}

// RunRHF solves the Roothaan-Hall equations for nOcc doubly occupied orbitals.
func RunRHF(ints *AOIntegrals, nOcc int, opts SCFOptions) (*SCFResult, error) {
	n := ints.N
	if nOcc < 0 || nOcc > n {
		return nil, fmt.Errorf("cannot occupy %d orbitals with %d basis functions", nOcc, n)
	}
	if opts.MaxIterations <= 0 {
		opts = DefaultSCFOptions()
	}

	S := mat.NewDense(n, n, append([]float64(nil), ints.Overlap...))
	H := mat.NewDense(n, n, append([]float64(nil), ints.Core...))

	X, err := inverseSqrt(S)
	if err != nil {
		return nil, err
	}

	eps, C, err := diagonalizeFock(H, X)
	if err != nil {
		return nil, err
	}
	D := densityMatrix(C, nOcc)

	var (
		fockList  []*mat.Dense
		errorList []*mat.Dense
		energy    float64
	)

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		G := twoElectronPart(ints, D)
		F := mat.NewDense(n, n, nil)
		F.Add(H, G)

		prev := energy
		energy = 0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				energy += D.At(i, j) * (H.At(i, j) + F.At(i, j))
			}
		}

		resid := diisResidual(F, D, S, X)
		rms := rmsOf(resid)

		if iter > 1 && math.Abs(energy-prev) < opts.EnergyTolerance && rms < opts.DensityTolerance {
			return &SCFResult{
				ElectronicEnergy: energy,
				OrbitalEnergies:  eps,
				Coefficients:     C,
				Iterations:       iter,
			}, nil
		}

		fockList = append(fockList, mat.DenseCopyOf(F))
		errorList = append(errorList, resid)
		if len(fockList) > opts.DIISSize {
			fockList = fockList[1:]
			errorList = errorList[1:]
		}

		if len(fockList) >= 2 {
			if extrapolated, ok := extrapolateDIIS(fockList, errorList); ok {
				F = extrapolated
			}
		}

		eps, C, err = diagonalizeFock(F, X)
		if err != nil {
			return nil, err
		}
		D = densityMatrix(C, nOcc)
	}

	return nil, fmt.Errorf("%w after %d iterations (E=%.10f)", ErrSCFNotConverged, opts.MaxIterations, energy)
}

// inverseSqrt returns S^{-1/2} for symmetric orthogonalization.
func inverseSqrt(S *mat.Dense) (*mat.Dense, error) {
	n, _ := S.Dims()
	var es mat.EigenSym
	if ok := es.Factorize(symmetrize(S), true); !ok {
		return nil, fmt.Errorf("overlap eigendecomposition failed")
	}
	vals := es.Values(nil)
	var V mat.Dense
	es.VectorsTo(&V)

	scaled := mat.NewDense(n, n, nil)
	for j, v := range vals {
		if v < 1e-10 {
			return nil, fmt.Errorf("%w: overlap eigenvalue %.3e", ErrLinearDependence, v)
		}
		f := 1 / math.Sqrt(v)
		for i := 0; i < n; i++ {
			scaled.Set(i, j, V.At(i, j)*f)
		}
	}

	X := mat.NewDense(n, n, nil)
	X.Mul(scaled, V.T())
	return X, nil
}

// diagonalizeFock solves F C = S C ε through the orthogonalized Fock matrix X F X.
func diagonalizeFock(F, X *mat.Dense) ([]float64, *mat.Dense, error) {
	n, _ := F.Dims()
	Fp := mat.NewDense(n, n, nil)
	Fp.Mul(X, F)
	Fp.Mul(Fp, X)

	var es mat.EigenSym
	if ok := es.Factorize(symmetrize(Fp), true); !ok {
		return nil, nil, fmt.Errorf("Fock matrix eigendecomposition failed")
	}
	eps := es.Values(nil)
	var Cp mat.Dense
	es.VectorsTo(&Cp)

	C := mat.NewDense(n, n, nil)
	C.Mul(X, &Cp)
	return eps, C, nil
}

// densityMatrix returns D = C_occ C_occᵀ (no factor two).
func densityMatrix(C *mat.Dense, nOcc int) *mat.Dense {
	n, _ := C.Dims()
	D := mat.NewDense(n, n, nil)
	if nOcc == 0 {
		return D
	}
	occ := C.Slice(0, n, 0, nOcc)
	D.Mul(occ, occ.T())
	return D
}

// twoElectronPart returns G_ij = sum_kl D_kl [2(ij|kl) - (ik|jl)].
func twoElectronPart(ints *AOIntegrals, D *mat.Dense) *mat.Dense {
	n := ints.N
	eri := ints.ERI
	G := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			g := 0.0
			for k := 0; k < n; k++ {
				for l := 0; l < n; l++ {
					d := D.At(k, l)
					if d == 0 {
						continue
					}
					g += d * (2*eri[((i*n+j)*n+k)*n+l] - eri[((i*n+k)*n+j)*n+l])
				}
			}
			G.Set(i, j, g)
		}
	}
	return G
}

// diisResidual returns X (F D S - S D F) X.
func diisResidual(F, D, S, X *mat.Dense) *mat.Dense {
	n, _ := F.Dims()
	fds := mat.NewDense(n, n, nil)
	fds.Mul(F, D)
	fds.Mul(fds, S)

	sdf := mat.NewDense(n, n, nil)
	sdf.Mul(S, D)
	sdf.Mul(sdf, F)

	fds.Sub(fds, sdf)
	fds.Mul(X, fds)
	fds.Mul(fds, X)
	return fds
}

func rmsOf(m *mat.Dense) float64 {
	r, c := m.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			sum += v * v
		}
	}
	return math.Sqrt(sum / float64(r*c))
}

// extrapolateDIIS solves Pulay's equations for the Fock-matrix mixing weights.
func extrapolateDIIS(focks, errs []*mat.Dense) (*mat.Dense, bool) {
	m := len(focks)
	B := mat.NewDense(m+1, m+1, nil)
	for i := 0; i < m; i++ {
		B.Set(i, m, -1)
		B.Set(m, i, -1)
		for j := 0; j <= i; j++ {
			v := mat.Sum(elementwise(errs[i], errs[j]))
			B.Set(i, j, v)
			B.Set(j, i, v)
		}
	}

	rhs := mat.NewVecDense(m+1, nil)
	rhs.SetVec(m, -1)

	var lu mat.LU
	lu.Factorize(B)
	var coef mat.VecDense
	if err := lu.SolveVecTo(&coef, false, rhs); err != nil {
		return nil, false
	}

	n, _ := focks[0].Dims()
	F := mat.NewDense(n, n, nil)
	part := mat.NewDense(n, n, nil)
	for i := 0; i < m; i++ {
		part.Scale(coef.AtVec(i), focks[i])
		F.Add(F, part)
	}
	return F, true
}

func elementwise(a, b *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.MulElem(a, b)
	return out
}

func symmetrize(m *mat.Dense) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return s
}
