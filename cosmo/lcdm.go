package cosmo

import (
	"fmt"
	"math"
)

// HubbleFrac calculates h(z) = H(z)/H0. Here H(z) is from Hubble's Law,
// H(z)**2 = H0**2 (OmegaM (1+z)**3 + OmegaL). Assumes k, r = 0.
func HubbleFrac(omegaM, omegaL, z float64) float64 {
	return math.Sqrt(omegaM*math.Pow(1.0+z, 3.0) + omegaL)
}

// NewFlatLCDM tabulates the background expansion of a flat LCDM universe
// as a Table with n rows spanning redshift zmax down to 0, spaced
// uniformly in log(1+z). h0 is in km/s/Mpc. Ages come from trapezoid
// integration of dt = dz / ((1+z) H(z)), anchored at zmax with the
// matter-dominated age 2 / (3 H0 sqrt(OmegaM) (1+z)^1.5); comoving
// distances from integrating c dz / H(z) outward from z = 0.
func NewFlatLCDM(h0, omegaM, omegaL, zmax float64, n int) (*Table, error) {
	switch {
	case n < 2:
		return nil, fmt.Errorf("flat LCDM table needs n >= 2, got %d", n)
	case zmax <= 0:
		return nil, fmt.Errorf("flat LCDM table needs zmax > 0, got %g", zmax)
	case h0 <= 0 || omegaM <= 0 || omegaL < 0:
		return nil, fmt.Errorf(
			"invalid cosmology: h0 %g, omegaM %g, omegaL %g", h0, omegaM, omegaL,
		)
	}

	h0cgs := h0 * 1e5 / Mpc

	redz := make([]float64, n)
	du := math.Log(1+zmax) / float64(n-1)
	for i := range redz {
		redz[i] = math.Exp(float64(n-1-i)*du) - 1
	}
	redz[0], redz[n-1] = zmax, 0

	hz := func(z float64) float64 { return h0cgs * HubbleFrac(omegaM, omegaL, z) }

	age := make([]float64, n)
	age[0] = 2.0 / (3.0 * h0cgs * math.Sqrt(omegaM) * math.Pow(1+zmax, 1.5))
	for i := 1; i < n; i++ {
		f1 := 1.0 / ((1 + redz[i-1]) * hz(redz[i-1]))
		f2 := 1.0 / ((1 + redz[i]) * hz(redz[i]))
		age[i] = age[i-1] + (redz[i-1]-redz[i])*(f1+f2)/2
	}

	dcom := make([]float64, n)
	for i := n - 2; i >= 0; i-- {
		g1 := C / hz(redz[i+1])
		g2 := C / hz(redz[i])
		dcom[i] = dcom[i+1] + (redz[i]-redz[i+1])*(g1+g2)/2
	}

	return NewTable(redz, age, dcom)
}
