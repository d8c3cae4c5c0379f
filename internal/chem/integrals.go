package chem

import "math"

// hermiteE returns the McMurchie-Davidson expansion coefficient E^{ij}_t of the
// product of two one-dimensional Cartesian Gaussians with exponents a and b,
// separated by qx = A_x - B_x.
func hermiteE(i, j, t int, qx, a, b float64) float64 {
	p := a + b
	q := a * b / p
	switch {
	case t < 0 || t > i+j || i < 0 || j < 0:
		return 0
	case i == 0 && j == 0 && t == 0:
		return math.Exp(-q * qx * qx)
	case j == 0:
		return hermiteE(i-1, j, t-1, qx, a, b)/(2*p) -
			q*qx/a*hermiteE(i-1, j, t, qx, a, b) +
			float64(t+1)*hermiteE(i-1, j, t+1, qx, a, b)
	default:
		return hermiteE(i, j-1, t-1, qx, a, b)/(2*p) +
			q*qx/b*hermiteE(i, j-1, t, qx, a, b) +
			float64(t+1)*hermiteE(i, j-1, t+1, qx, a, b)
	}
}

// hermiteR returns the Hermite Coulomb integral R^n_{tuv}.
func hermiteR(t, u, v, n int, p float64, pc [3]float64, rpc float64) float64 {
	switch {
	case t == 0 && u == 0 && v == 0:
		return math.Pow(-2*p, float64(n)) * boys(n, p*rpc*rpc)
	case t == 0 && u == 0:
		val := pc[2] * hermiteR(t, u, v-1, n+1, p, pc, rpc)
		if v > 1 {
			val += float64(v-1) * hermiteR(t, u, v-2, n+1, p, pc, rpc)
		}
		return val
	case t == 0:
		val := pc[1] * hermiteR(t, u-1, v, n+1, p, pc, rpc)
		if u > 1 {
			val += float64(u-1) * hermiteR(t, u-2, v, n+1, p, pc, rpc)
		}
		return val
	default:
		val := pc[0] * hermiteR(t-1, u, v, n+1, p, pc, rpc)
		if t > 1 {
			val += float64(t-1) * hermiteR(t-2, u, v, n+1, p, pc, rpc)
		}
		return val
	}
}

func productCenter(a float64, A [3]float64, b float64, B [3]float64) [3]float64 {
	p := a + b
	return [3]float64{(a*A[0] + b*B[0]) / p, (a*A[1] + b*B[1]) / p, (a*A[2] + b*B[2]) / p}
}

func primOverlap(a float64, lmn1 [3]int, A [3]float64, b float64, lmn2 [3]int, B [3]float64) float64 {
	for k := 0; k < 3; k++ {
		if lmn1[k] < 0 || lmn2[k] < 0 {
			return 0
		}
	}
	s := math.Pow(math.Pi/(a+b), 1.5)
	for k := 0; k < 3; k++ {
		s *= hermiteE(lmn1[k], lmn2[k], 0, A[k]-B[k], a, b)
	}
	return s
}

func primKinetic(a float64, lmn1 [3]int, A [3]float64, b float64, lmn2 [3]int, B [3]float64) float64 {
	l2 := lmn2[0] + lmn2[1] + lmn2[2]
	val := b * float64(2*l2+3) * primOverlap(a, lmn1, A, b, lmn2, B)
	for k := 0; k < 3; k++ {
		up, down := lmn2, lmn2
		up[k] += 2
		down[k] -= 2
		val -= 2 * b * b * primOverlap(a, lmn1, A, b, up, B)
		val -= 0.5 * float64(lmn2[k]*(lmn2[k]-1)) * primOverlap(a, lmn1, A, b, down, B)
	}
	return val
}

func primNuclear(a float64, lmn1 [3]int, A [3]float64, b float64, lmn2 [3]int, B [3]float64, C [3]float64) float64 {
	p := a + b
	P := productCenter(a, A, b, B)
	pc := [3]float64{P[0] - C[0], P[1] - C[1], P[2] - C[2]}
	rpc := distance(P, C)

	val := 0.0
	for t := 0; t <= lmn1[0]+lmn2[0]; t++ {
		ex := hermiteE(lmn1[0], lmn2[0], t, A[0]-B[0], a, b)
		for u := 0; u <= lmn1[1]+lmn2[1]; u++ {
			ey := hermiteE(lmn1[1], lmn2[1], u, A[1]-B[1], a, b)
			for v := 0; v <= lmn1[2]+lmn2[2]; v++ {
				ez := hermiteE(lmn1[2], lmn2[2], v, A[2]-B[2], a, b)
				val += ex * ey * ez * hermiteR(t, u, v, 0, p, pc, rpc)
			}
		}
	}
	return 2 * math.Pi / p * val
}

func primRepulsion(a float64, lmn1 [3]int, A [3]float64, b float64, lmn2 [3]int, B [3]float64,
	c float64, lmn3 [3]int, C [3]float64, d float64, lmn4 [3]int, D [3]float64) float64 {
	p := a + b
	q := c + d
	alpha := p * q / (p + q)
	P := productCenter(a, A, b, B)
	Q := productCenter(c, C, d, D)
	pq := [3]float64{P[0] - Q[0], P[1] - Q[1], P[2] - Q[2]}
	rpq := distance(P, Q)

	// Bra and ket Hermite coefficients per Cartesian direction.
	var bra, ket [3][]float64
	for k := 0; k < 3; k++ {
		bra[k] = make([]float64, lmn1[k]+lmn2[k]+1)
		for t := range bra[k] {
			bra[k][t] = hermiteE(lmn1[k], lmn2[k], t, A[k]-B[k], a, b)
		}
		ket[k] = make([]float64, lmn3[k]+lmn4[k]+1)
		for t := range ket[k] {
			ket[k][t] = hermiteE(lmn3[k], lmn4[k], t, C[k]-D[k], c, d)
		}
	}

	val := 0.0
	for t, et := range bra[0] {
		for u, eu := range bra[1] {
			for v, ev := range bra[2] {
				e1 := et * eu * ev
				if e1 == 0 {
					continue
				}
				for tau, etau := range ket[0] {
					for nu, enu := range ket[1] {
						for phi, ephi := range ket[2] {
							sign := 1.0
							if (tau+nu+phi)%2 == 1 {
								sign = -1
							}
							val += e1 * etau * enu * ephi * sign *
								hermiteR(t+tau, u+nu, v+phi, 0, alpha, pq, rpq)
						}
					}
				}
			}
		}
	}
	return 2 * math.Pow(math.Pi, 2.5) / (p * q * math.Sqrt(p+q)) * val
}

// Overlap returns <f|g>.
func Overlap(f, g BasisFunction) float64 {
	s := 0.0
	for _, pf := range f.Primitives {
		for _, pg := range g.Primitives {
			s += pf.Coefficient * pg.Coefficient *
				primOverlap(pf.Exponent, f.Powers, f.Center, pg.Exponent, g.Powers, g.Center)
		}
	}
	return s
}

// Kinetic returns <f|-½∇²|g>.
func Kinetic(f, g BasisFunction) float64 {
	t := 0.0
	for _, pf := range f.Primitives {
		for _, pg := range g.Primitives {
			t += pf.Coefficient * pg.Coefficient *
				primKinetic(pf.Exponent, f.Powers, f.Center, pg.Exponent, g.Powers, g.Center)
		}
	}
	return t
}

// NuclearAttraction returns <f| -sum_A Z_A/|r-R_A| |g>.
func NuclearAttraction(f, g BasisFunction, atoms []Atom) float64 {
	v := 0.0
	for _, atom := range atoms {
		for _, pf := range f.Primitives {
			for _, pg := range g.Primitives {
				v -= float64(atom.Z) * pf.Coefficient * pg.Coefficient *
					primNuclear(pf.Exponent, f.Powers, f.Center, pg.Exponent, g.Powers, g.Center, atom.Position)
			}
		}
	}
	return v
}

// Repulsion returns the two-electron integral (fg|hk) in chemists' notation.
func Repulsion(f, g, h, k BasisFunction) float64 {
	v := 0.0
	for _, pf := range f.Primitives {
		for _, pg := range g.Primitives {
			cfg := pf.Coefficient * pg.Coefficient
			for _, ph := range h.Primitives {
				for _, pk := range k.Primitives {
					v += cfg * ph.Coefficient * pk.Coefficient * primRepulsion(
						pf.Exponent, f.Powers, f.Center, pg.Exponent, g.Powers, g.Center,
						ph.Exponent, h.Powers, h.Center, pk.Exponent, k.Powers, k.Center)
				}
			}
		}
	}
	return v
}

// AOIntegrals holds the atomic-orbital integral tensors of a molecule, row-major.
type AOIntegrals struct {
	N       int
	Overlap []float64 // N×N
	Core    []float64 // N×N, kinetic + nuclear attraction
	ERI     []float64 // N⁴, (ij|kl) at ((i*N+j)*N+k)*N+l
}

// ComputeAOIntegrals evaluates all one- and two-electron integrals, exploiting
// the eightfold permutational symmetry of (ij|kl).
func ComputeAOIntegrals(funcs []BasisFunction, atoms []Atom) *AOIntegrals {
	n := len(funcs)
	ints := &AOIntegrals{
		N:       n,
		Overlap: make([]float64, n*n),
		Core:    make([]float64, n*n),
		ERI:     make([]float64, n*n*n*n),
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			s := Overlap(funcs[i], funcs[j])
			h := Kinetic(funcs[i], funcs[j]) + NuclearAttraction(funcs[i], funcs[j], atoms)
			ints.Overlap[i*n+j], ints.Overlap[j*n+i] = s, s
			ints.Core[i*n+j], ints.Core[j*n+i] = h, h
		}
	}

	idx := func(i, j, k, l int) int { return ((i*n+j)*n+k)*n + l }
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			ij := i*(i+1)/2 + j
			for k := 0; k < n; k++ {
				for l := 0; l <= k; l++ {
					kl := k*(k+1)/2 + l
					if kl > ij {
						continue
					}
					v := Repulsion(funcs[i], funcs[j], funcs[k], funcs[l])
					for _, p := range [8][4]int{
						{i, j, k, l}, {j, i, k, l}, {i, j, l, k}, {j, i, l, k},
						{k, l, i, j}, {l, k, i, j}, {k, l, j, i}, {l, k, j, i},
					} {
						ints.ERI[idx(p[0], p[1], p[2], p[3])] = v
					}
				}
			}
		}
	}
	return ints
}
