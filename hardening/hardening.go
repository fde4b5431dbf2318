/*
package hardening implements the binary hardening-rate model: a
closed-form GW quadrupole term plus a smoothly-broken double power law in
separation, a fixed-step coalescence-time integrator, and the root solve
that calibrates the power-law amplitude to a target coalescence time.
*/
package hardening

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/window-0701/holodeck/cosmo"
)

// gwConst is the Peters (1964) quadrupole hardening prefactor,
// (64/5) G^3 / c^5, in cgs.
var gwConst = (64.0 / 5.0) * math.Pow(cosmo.G, 3) /
	math.Pow(cosmo.C, 5)

// Params are the hardening-model parameters shared by every binary.
// Only the power-law amplitude varies from binary to binary.
type Params struct {
	// SepaInit is the initial binary separation in cm.
	SepaInit float64
	// Rchar is the characteristic separation of the power-law break, cm.
	Rchar float64
	// GammaInner is the power-law slope governing sepa << Rchar.
	GammaInner float64
	// GammaOuter is the power-law slope governing sepa >> Rchar.
	GammaOuter float64
	// Nsteps is the number of log10-separation intervals between
	// SepaInit and ISCO used by the time integration.
	Nsteps int
}

// RateGW returns the GW-driven hardening rate da/dt in cm/s for a binary
// of total mass mtot (g), mass ratio mrat, and separation sepa (cm). The
// rate is negative: separations shrink.
func RateGW(mtot, mrat, sepa float64) float64 {
	// m1 m2 (m1+m2) = mtot^3 mrat / (1+mrat)^2
	mterm := mtot * mtot * mtot * mrat / ((1 + mrat) * (1 + mrat))
	return -gwConst * mterm / (sepa * sepa * sepa)
}

// Rate returns the total hardening rate da/dt in cm/s: the GW term plus
// the phenomenological double power law
//
//	da/dt = -norm * (1+x)^(gammaInner-gammaOuter) / x^(gammaInner-1),
//
// with x = sepa/rchar. gammaInner governs x << 1, gammaOuter x >> 1.
// Inputs are not bounds checked; callers guarantee sepa > 0 and
// mrat in (0, 1].
func Rate(mtot, mrat, sepa, norm, rchar, gammaInner, gammaOuter float64) float64 {
	x := sepa / rchar
	phenom := -norm * math.Pow(1+x, gammaInner-gammaOuter) /
		math.Pow(x, gammaInner-1)
	return RateGW(mtot, mrat, sepa) + phenom
}

// RadISCO returns the innermost-stable-circular-orbit separation for a
// binary of total mass mtot (g): three times the Schwarzschild radius of
// the combined mass, 6 G mtot / c^2.
func RadISCO(mtot float64) float64 {
	return 6.0 * cosmo.G * mtot / (cosmo.C * cosmo.C)
}

// KeplerFreq returns the rest-frame orbital frequency in Hz of a binary
// with total mass mtot (g) at separation sepa (cm).
func KeplerFreq(mtot, sepa float64) float64 {
	return math.Sqrt(cosmo.G*mtot/(sepa*sepa*sepa)) / (2 * math.Pi)
}

// KeplerSepa inverts Kepler's third law: the separation in cm at which a
// binary with total mass mtot (g) orbits at rest-frame frequency freq.
func KeplerSepa(mtot, freq float64) float64 {
	w := 2 * math.Pi * freq
	return math.Cbrt(cosmo.G * mtot / (w * w))
}

// TimeToISCO integrates the time in s for a binary to harden from
// p.SepaInit to its ISCO under Rate with the given power-law amplitude.
//
// The integration steps in log10(separation) with p.Nsteps fixed
// intervals and accumulates dt = 2 dsepa / (rateL + rateR) per interval.
// This is the time implied by a harmonic-mean rate across the interval:
// da/dt spans many orders of magnitude between SepaInit and ISCO, and
// the harmonic form stays stable across that range where a midpoint rule
// does not.
func TimeToISCO(mtot, mrat, norm float64, p Params) float64 {
	steps := SepaSteps(mtot, p, nil)

	sepaL := steps[0]
	rateL := Rate(mtot, mrat, sepaL, norm, p.Rchar, p.GammaInner, p.GammaOuter)
	total := 0.0
	for k := 1; k <= p.Nsteps; k++ {
		sepaR := steps[k]
		rateR := Rate(mtot, mrat, sepaR, norm, p.Rchar, p.GammaInner, p.GammaOuter)
		// Rates are negative and sepaL > sepaR, so dt is positive.
		total += 2 * (sepaR - sepaL) / (rateL + rateR)
		sepaL, rateL = sepaR, rateR
	}
	return total
}

// SepaSteps returns the p.Nsteps+1 log10-spaced separations from
// p.SepaInit down to the binary's ISCO. This is the single source of the
// trajectory discretization: the number-density mapper walks the exact
// separations the coalescence-time calibration integrated over. buf is
// reused when it has the right length.
func SepaSteps(mtot float64, p Params, buf []float64) []float64 {
	if len(buf) != p.Nsteps+1 {
		buf = make([]float64, p.Nsteps+1)
	}
	return floats.LogSpan(buf, p.SepaInit, RadISCO(mtot))
}
