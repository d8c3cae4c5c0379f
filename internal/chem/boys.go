package chem

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// boys evaluates the Boys function F_n(t) = ∫_0^1 u^{2n} exp(-t u^2) du.
func boys(n int, t float64) float64 {
	nf := float64(n)
	if t < 1e-7 {
		// Two-term Taylor expansion; the next term is O(t^2/2) and below double precision here.
		return 1/(2*nf+1) - t/(2*nf+3)
	}
	return mathext.GammaIncReg(nf+0.5, t) * math.Gamma(nf+0.5) / (2 * math.Pow(t, nf+0.5))
}
