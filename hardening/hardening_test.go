package hardening

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/window-0701/holodeck/cosmo"
)

func testParams() Params {
	return Params{
		SepaInit:   1e4 * cosmo.Pc,
		Rchar:      10 * cosmo.Pc,
		GammaInner: -1.0,
		GammaOuter: 2.5,
		Nsteps:     300,
	}
}

func TestRateSigns(t *testing.T) {
	mtot := 1e8 * cosmo.MSun
	p := testParams()

	for _, sepa := range []float64{1e-3 * p.Rchar, p.Rchar, 1e3 * p.Rchar} {
		gw := RateGW(mtot, 0.3, sepa)
		assert.Negative(t, gw, "GW rate at sepa=%g", sepa)

		tot := Rate(mtot, 0.3, sepa, 1e-5, p.Rchar, p.GammaInner, p.GammaOuter)
		assert.Negative(t, tot, "total rate at sepa=%g", sepa)
		assert.Less(t, tot, gw, "phenomenological term always adds hardening")
	}
}

func TestRateGWMassScaling(t *testing.T) {
	sepa := 1.0 * cosmo.Pc
	r1 := RateGW(1e8*cosmo.MSun, 1.0, sepa)
	r2 := RateGW(2e8*cosmo.MSun, 1.0, sepa)
	// da/dt scales as mtot^3 at fixed ratio and separation.
	assert.InEpsilon(t, 8.0, r2/r1, 1e-12)
}

func TestKeplerRoundTrip(t *testing.T) {
	mtot := 3e9 * cosmo.MSun
	for _, sepa := range []float64{1e-2 * cosmo.Pc, cosmo.Pc, 1e3 * cosmo.Pc} {
		f := KeplerFreq(mtot, sepa)
		assert.InEpsilon(t, sepa, KeplerSepa(mtot, f), 1e-12)
	}
}

func TestSepaStepsMonotone(t *testing.T) {
	p := testParams()
	mtot := 1e8 * cosmo.MSun
	steps := SepaSteps(mtot, p, nil)
	require.Len(t, steps, p.Nsteps+1)
	assert.InEpsilon(t, p.SepaInit, steps[0], 1e-12)
	assert.InEpsilon(t, RadISCO(mtot), steps[p.Nsteps], 1e-12)
	for i := 1; i < len(steps); i++ {
		assert.Less(t, steps[i], steps[i-1])
		// Rest-frame frequency rises as the orbit shrinks.
		assert.Greater(t, KeplerFreq(mtot, steps[i]), KeplerFreq(mtot, steps[i-1]))
	}
}

// With the power-law amplitude forced to zero, the integrator must
// reproduce the closed-form GW inspiral time,
// t = (a0^4 - aisco^4) / (4 beta) with beta = (64/5) G^3 m1 m2 M / c^5.
func TestTimeToISCOPureGW(t *testing.T) {
	p := testParams()
	p.Nsteps = 2000

	mtot := 1e8 * cosmo.MSun
	mrat := 0.3
	// Pull the start inward so the pure-GW time stays finite-ish and the
	// log-step density per decade is high.
	p.SepaInit = 0.01 * cosmo.Pc

	beta := (64.0 / 5.0) * math.Pow(cosmo.G, 3) / math.Pow(cosmo.C, 5) *
		mtot * mtot * mtot * mrat / ((1 + mrat) * (1 + mrat))
	aisco := RadISCO(mtot)
	want := (math.Pow(p.SepaInit, 4) - math.Pow(aisco, 4)) / (4 * beta)

	got := TimeToISCO(mtot, mrat, 0, p)
	assert.InEpsilon(t, want, got, 2e-3)
}

func TestTimeToISCOShrinksWithNorm(t *testing.T) {
	p := testParams()
	mtot := 1e8 * cosmo.MSun
	t1 := TimeToISCO(mtot, 0.3, 1e-8, p)
	t2 := TimeToISCO(mtot, 0.3, 1e-6, p)
	t3 := TimeToISCO(mtot, 0.3, 1e-4, p)
	assert.Greater(t, t1, t2)
	assert.Greater(t, t2, t3)
	assert.Positive(t, t3)
}
