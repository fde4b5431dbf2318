package hardening

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// SolverOptions configure the normalization root solve.
type SolverOptions struct {
	// BracketLo, BracketHi bound log10(norm) for the root search.
	BracketLo, BracketHi float64
	// XTol and RTol are the absolute and relative step tolerances.
	XTol, RTol float64
	// MaxIter caps the number of Brent iterations.
	MaxIter int
}

// DefaultSolverOptions returns the standard bracket and tolerances.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		BracketLo: -20, BracketHi: 20,
		XTol: 1e-3, RTol: 1e-5,
		MaxIter: 100,
	}
}

// Result is the tagged outcome of one normalization solve. A Result with
// Converged == false still carries the solver's best estimate in
// NormLog10; callers decide whether to tolerate or reject it. Residual
// is the remaining coalescence-time mismatch in s at that estimate.
type Result struct {
	NormLog10 float64
	Converged bool
	Iters     int
	Residual  float64
}

// SolveNorm finds the log10 power-law amplitude for which a binary's
// hardening time from p.SepaInit to ISCO equals targetTime (s). The root
// of
//
//	residual(lg) = TimeToISCO(mtot, mrat, 10^lg, p) - targetTime
//
// is bracketed over [opts.BracketLo, opts.BracketHi] and found with
// Brent's method. Hitting the iteration cap, or a bracket whose
// endpoints do not straddle the root, yields Converged == false with the
// best estimate rather than an error: one stubborn binary must not sink
// the whole grid.
func SolveNorm(mtot, mrat, targetTime float64, p Params, opts SolverOptions) Result {
	residual := func(lg float64) float64 {
		return TimeToISCO(mtot, mrat, math.Pow(10, lg), p) - targetTime
	}
	lg, ok, iters := brent(
		residual, opts.BracketLo, opts.BracketHi,
		opts.XTol, opts.RTol, opts.MaxIter,
	)
	return Result{
		NormLog10: lg,
		Converged: ok,
		Iters:     iters,
		Residual:  residual(lg),
	}
}

// SolveNormField runs SolveNorm for every (mass, ratio) pair, in
// parallel across workers (GOMAXPROCS when workers < 1). Each pair's
// solve is independent and reads only shared immutable inputs, so
// workers split the mass rows with no locking.
//
// The returned matrix is indexed (massIndex, ratioIndex); results holds
// the per-pair outcomes flattened mass-major, for callers that want to
// log or reject non-converged pairs.
func SolveNormField(
	ctx context.Context, mtots, mrats []float64,
	targetTime float64, p Params, opts SolverOptions, workers int,
) (*mat.Dense, []Result, error) {
	nm, nq := len(mtots), len(mrats)
	if nm == 0 || nq == 0 {
		return nil, nil, fmt.Errorf(
			"empty mass (%d) or ratio (%d) grid", nm, nq,
		)
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	norm := mat.NewDense(nm, nq, nil)
	results := make([]Result, nm*nq)

	rows := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for im := range rows {
				for iq, mrat := range mrats {
					r := SolveNorm(mtots[im], mrat, targetTime, p, opts)
					norm.Set(im, iq, r.NormLog10)
					results[im*nq+iq] = r
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(rows)
		for im := 0; im < nm; im++ {
			select {
			case rows <- im:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return norm, results, nil
}

// brent finds a root of f on [a, b] with the Brent-Dekker method.
// Convergence is |interval/2| <= 2 eps |b| + (xtol + rtol |b|)/2 or an
// exact zero. A bracket without a sign change returns the endpoint with
// the smaller |f| and ok == false; exhausting maxIter returns the
// current best estimate and ok == false.
func brent(
	f func(float64) float64, a, b, xtol, rtol float64, maxIter int,
) (x float64, ok bool, iters int) {
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, true, 0
	}
	if fb == 0 {
		return b, true, 0
	}
	if (fa > 0) == (fb > 0) {
		if math.Abs(fa) < math.Abs(fb) {
			return a, false, 0
		}
		return b, false, 0
	}

	c, fc := a, fa
	var d, e float64
	for i := 1; i <= maxIter; i++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			e = b - a
			d = e
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol := 2*machEps*math.Abs(b) + 0.5*(xtol+rtol*math.Abs(b))
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol || fb == 0 {
			return b, true, i
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			// Inverse quadratic interpolation, secant when a == c.
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*xm*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else {
			b += math.Copysign(tol, xm)
		}
		fb = f(b)
	}
	return b, false, maxIter
}

const machEps = 2.220446049250313e-16
