// Package dist implements distribution functions used by the variant
// set tests and by the synthetic data generator.
package dist

import (
	"math"

	"github.com/gonum/mathext"
)

// cauchyTail is the statistic above which the Cauchy survival function
// is replaced by its asymptotic form.
const cauchyTail = 1e15

// tinyP is the p-value below which tan((0.5-p)*pi) is replaced by
// 1/(p*pi).
const tinyP = 1e-16

// LnBeta returns log of Beta function.
func LnBeta(p, q float64) float64 {
	lgp, _ := math.Lgamma(p)
	lgq, _ := math.Lgamma(q)
	lgpq, _ := math.Lgamma(p + q)
	return lgp + lgq - lgpq
}

// DensityBeta returns the density of Beta(p, q) at x. Outside of
// [0, 1] the density is zero.
func DensityBeta(x, p, q float64) float64 {
	if x < 0 || x > 1 {
		return 0
	}
	// 0*log(0) terms are zero for p == 1 or q == 1
	lx, l1x := 0.0, 0.0
	if p != 1 {
		lx = (p - 1) * math.Log(x)
	}
	if q != 1 {
		l1x = (q - 1) * math.Log1p(-x)
	}
	return math.Exp(lx + l1x - LnBeta(p, q))
}

/*
CDFBeta returns distribution function of the standard form of the beta
distribution, that is, the incomplete beta ratio I_x(p,q).
*/
func CDFBeta(x, p, q float64) float64 {
	return mathext.RegIncBeta(p, q, x)
}

// QuantileBeta calculates the quantile of the beta distribution.
func QuantileBeta(prob, p, q float64) float64 {
	return mathext.InvRegIncBeta(p, q, prob)
}

// SurvivalChi2One returns P(X > x) for X distributed as chi-square with
// one degree of freedom.
func SurvivalChi2One(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	if x <= 0 {
		return 1
	}
	return math.Erfc(math.Sqrt(x / 2))
}

/*
CauchyCombination combines p-values p with non-negative weights w using
the Cauchy combination (ACAT) statistic

	T = sum(w_i * tan((0.5 - p_i) * pi)) / sum(w_i)

and returns P(C > T) for a standard Cauchy C. NaN p-values and
non-positive weights are skipped. If w is nil, equal weights are used.
The result is NaN if nothing can be combined, and 0 if any of the
combined p-values is 0.
*/
func CauchyCombination(p, w []float64) float64 {
	stat, wsum := 0.0, 0.0
	for i, pv := range p {
		wi := 1.0
		if w != nil {
			wi = w[i]
		}
		if math.IsNaN(pv) || !(wi > 0) {
			continue
		}
		if pv <= 0 {
			return 0
		}
		if pv >= 1 {
			pv = 1 - tinyP
		}
		if pv < tinyP {
			stat += wi / pv / math.Pi
		} else {
			stat += wi * math.Tan((0.5-pv)*math.Pi)
		}
		wsum += wi
	}
	if wsum == 0 {
		return math.NaN()
	}
	stat /= wsum
	if stat > cauchyTail {
		return 1 / stat / math.Pi
	}
	return 0.5 - math.Atan(stat)/math.Pi
}
