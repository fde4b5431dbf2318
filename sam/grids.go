/*
package sam maps a gridded binary population through its hardening
trajectories into a redshifted, frequency-binned differential number
density, following the semi-analytic-model decomposition over total mass,
mass ratio, and formation redshift.
*/
package sam

import (
	"fmt"
)

// Grids are the fixed population axes: total masses in g, mass ratios in
// (0, 1], candidate formation redshifts, and the galaxy-merger time in s
// paired with every (mass, ratio, redshift) cell. Grids are immutable
// once validated.
type Grids struct {
	Mtot []float64
	Mrat []float64
	Redz []float64
	GMT  *Field3
}

// Validate checks the grid axes and the GMT pairing. A failure here is a
// configuration error: the whole batch is malformed and must not run.
func (g *Grids) Validate() error {
	if len(g.Mtot) == 0 || len(g.Mrat) == 0 || len(g.Redz) == 0 {
		return fmt.Errorf(
			"empty grid axis: mtot %d, mrat %d, redz %d",
			len(g.Mtot), len(g.Mrat), len(g.Redz),
		)
	}
	for i, m := range g.Mtot {
		if m <= 0 {
			return fmt.Errorf("mtot[%d] = %g must be positive", i, m)
		}
		if i > 0 && m <= g.Mtot[i-1] {
			return fmt.Errorf("mtot must be strictly increasing at index %d", i)
		}
	}
	for i, q := range g.Mrat {
		if q <= 0 || q > 1 {
			return fmt.Errorf("mrat[%d] = %g must lie in (0, 1]", i, q)
		}
	}
	for i, z := range g.Redz {
		if z < 0 {
			return fmt.Errorf("redz[%d] = %g must be non-negative", i, z)
		}
		if i > 0 && z <= g.Redz[i-1] {
			return fmt.Errorf("redz must be strictly increasing at index %d", i)
		}
	}
	if g.GMT == nil {
		return fmt.Errorf("missing galaxy-merger-time field")
	}
	if g.GMT.NM != len(g.Mtot) || g.GMT.NQ != len(g.Mrat) ||
		g.GMT.NZ != len(g.Redz) {
		return fmt.Errorf(
			"GMT shape (%d, %d, %d) does not match grids (%d, %d, %d)",
			g.GMT.NM, g.GMT.NQ, g.GMT.NZ,
			len(g.Mtot), len(g.Mrat), len(g.Redz),
		)
	}
	for i, v := range g.GMT.Vals {
		if v < 0 {
			return fmt.Errorf("GMT cell %d = %g must be non-negative", i, v)
		}
	}
	return nil
}

// Shape returns the grid dimensions (nMass, nRatio, nRedshift).
func (g *Grids) Shape() (nm, nq, nz int) {
	return len(g.Mtot), len(g.Mrat), len(g.Redz)
}
