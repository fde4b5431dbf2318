package sam

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/window-0701/holodeck/cosmo"
	"github.com/window-0701/holodeck/hardening"
)

// fourPiCOverMpc is 4 pi c / Mpc in 1/s, the prefactor of the
// cosmological weighting that converts a comoving number density into an
// observed contribution.
const fourPiCOverMpc = 4 * math.Pi * cosmo.C / cosmo.Mpc

// DynamicBinaryNumber walks every (mass, ratio, formation-redshift)
// binary from its initial separation down to ISCO and records, for each
// observed-frame frequency edge the binary crosses, the redshift of the
// crossing and the differential comoving number contributed there.
//
// dens is the stationary binary number density per grid cell, normLog10
// the solved log10 hardening amplitudes indexed (mass, ratio), and
// fobsEdges the ascending observed-frame orbital-frequency edges: nf =
// len(fobsEdges)-1 bins. Both returned fields have shape (nMass, nRatio,
// nRedshift, nf) and hold NaN where no crossing occurred. With fewer
// than two edges there are no bins and the fields are empty.
//
// The trajectory discretization is identical to the one
// hardening.TimeToISCO used to calibrate normLog10, so elapsed times
// here match the solved coalescence times. The walk is deterministic:
// identical inputs produce bit-identical fields regardless of workers.
func DynamicBinaryNumber(
	ctx context.Context, g *Grids, dens *Field3, normLog10 *mat.Dense,
	tab *cosmo.Table, p hardening.Params, fobsEdges []float64, workers int,
) (redzFinal, diffNum *Field4, err error) {
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}
	nm, nq, nz := g.Shape()
	if dens == nil || dens.NM != nm || dens.NQ != nq || dens.NZ != nz {
		return nil, nil, fmt.Errorf("density field does not match grid shape (%d, %d, %d)",
			nm, nq, nz)
	}
	if rn, cn := normLog10.Dims(); rn != nm || cn != nq {
		return nil, nil, fmt.Errorf(
			"normalization field is (%d, %d), want (%d, %d)", rn, cn, nm, nq,
		)
	}
	if p.Nsteps < 1 || p.SepaInit <= 0 || p.Rchar <= 0 {
		return nil, nil, fmt.Errorf(
			"invalid hardening parameters: nsteps %d, sepaInit %g, rchar %g",
			p.Nsteps, p.SepaInit, p.Rchar,
		)
	}
	for i := 1; i < len(fobsEdges); i++ {
		if fobsEdges[i] <= fobsEdges[i-1] {
			return nil, nil, fmt.Errorf(
				"frequency edges must be strictly ascending at index %d", i,
			)
		}
	}
	zmin, zmax := tab.ZMin(), tab.ZMax()
	for i, z := range g.Redz {
		if z < zmin || z > zmax {
			return nil, nil, fmt.Errorf(
				"redz[%d] = %g outside cosmology table range [%g, %g]",
				i, z, zmin, zmax,
			)
		}
	}

	nf := len(fobsEdges) - 1
	if nf < 0 {
		nf = 0
	}
	redzFinal = NewField4(nm, nq, nz, nf)
	diffNum = NewField4(nm, nq, nz, nf)
	redzFinal.Fill(math.NaN())
	diffNum.Fill(math.NaN())
	if nf == 0 {
		// Degenerate target edges: nothing can be crossed.
		return redzFinal, diffNum, nil
	}

	ageAt := make([]float64, nz)
	for iz, z := range g.Redz {
		ageAt[iz] = tab.AgeAtRedshift(z)
	}

	m := &mapper{
		g: g, dens: dens, norm: normLog10, tab: tab, p: p,
		edges: fobsEdges, ageAt: ageAt, ageToday: tab.AgeToday(),
		redzFinal: redzFinal, diffNum: diffNum,
	}

	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	rows := make(chan int)
	grp, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		grp.Go(func() error {
			sc := &scratch{
				curZ: make([]cosmo.Cursor, nz),
				curD: make([]cosmo.Cursor, nz),
			}
			for im := range rows {
				for iq := 0; iq < nq; iq++ {
					m.walkPair(im, iq, sc)
				}
			}
			return nil
		})
	}
	grp.Go(func() error {
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
	if err := grp.Wait(); err != nil {
		return nil, nil, err
	}
	return redzFinal, diffNum, nil
}

type mapper struct {
	g         *Grids
	dens      *Field3
	norm      *mat.Dense
	tab       *cosmo.Table
	p         hardening.Params
	edges     []float64
	ageAt     []float64
	ageToday  float64
	redzFinal *Field4
	diffNum   *Field4
}

// scratch is per-worker state: the separation-step buffer and the
// per-redshift-bin interpolation cursors. Workers never share scratch,
// and output writes land in the mass rows the worker owns, so the walk
// needs no locks.
type scratch struct {
	steps      []float64
	curZ, curD []cosmo.Cursor
}

// walkPair advances one (mass, ratio) binary through its full
// separation trajectory, testing every formation-redshift bin for
// frequency-edge crossings at every step.
func (m *mapper) walkPair(im, iq int, sc *scratch) {
	mtot := m.g.Mtot[im]
	mrat := m.g.Mrat[iq]
	norm := math.Pow(10, m.norm.At(im, iq))
	nz := len(m.g.Redz)
	fmax := m.edges[len(m.edges)-1]

	sc.steps = hardening.SepaSteps(mtot, m.p, sc.steps)
	for i := range sc.curZ {
		sc.curZ[i], sc.curD[i] = 0, 0
	}

	// Left-edge trajectory state.
	sepaL := sc.steps[0]
	rateL := hardening.Rate(mtot, mrat, sepaL, norm,
		m.p.Rchar, m.p.GammaInner, m.p.GammaOuter)
	freqL := hardening.KeplerFreq(mtot, sepaL)
	tAcc := 0.0

	for k := 1; k <= m.p.Nsteps; k++ {
		sepaR := sc.steps[k]
		rateR := hardening.Rate(mtot, mrat, sepaR, norm,
			m.p.Rchar, m.p.GammaInner, m.p.GammaOuter)
		freqR := hardening.KeplerFreq(mtot, sepaR)
		// Same trapezoidal harmonic rule as the calibration integral.
		dt := 2 * (sepaR - sepaL) / (rateL + rateR)
		tL := tAcc
		tAcc += dt
		tR := tAcc

		// Highest formation redshift first: those binaries formed
		// earliest and redshift observed frequencies hardest.
		for iz := nz - 1; iz >= 0; iz-- {
			t0 := m.ageAt[iz] + m.g.GMT.At(im, iq, iz)

			// Stalled: this binary has not reached the current step by
			// today. GMT is not monotonic across redshift bins, so only
			// this bin is skipped.
			if t0+tR > m.ageToday {
				continue
			}

			redzL := m.tab.RedshiftAtAge(t0+tL, &sc.curZ[iz])
			redzR := m.tab.RedshiftAtAge(t0+tR, &sc.curZ[iz])
			fobsL := freqL / (1 + redzL)
			fobsR := freqR / (1 + redzR)

			// Remaining (lower formation-redshift) bins finish at lower
			// final redshift, pushing fobs higher still: once the left
			// edge clears the top target edge, no bin below can cross.
			if fobsL > fmax {
				break
			}

			// First target edge strictly above fobsL. Edge 0 has no bin
			// below it.
			j := sort.SearchFloat64s(m.edges, fobsL)
			if j < len(m.edges) && m.edges[j] == fobsL {
				j++
			}
			if j < 1 {
				j = 1
			}
			for ; j < len(m.edges) && m.edges[j] < fobsR; j++ {
				frac := (m.edges[j] - fobsL) / (fobsR - fobsL)
				newz := redzL + (redzR-redzL)*frac
				if newz <= 0 {
					// Crossing would happen after today.
					continue
				}

				frest := m.edges[j] * (1 + newz)
				sepa := hardening.KeplerSepa(mtot, frest)
				rate := hardening.Rate(mtot, mrat, sepa, norm,
					m.p.Rchar, m.p.GammaInner, m.p.GammaOuter)
				// Residence time per unit ln(frequency).
				tau := -(2.0 / 3.0) * sepa / rate

				ageX := t0 + tL + dt*frac
				dcom := m.tab.DcomAtAge(ageX, &sc.curD[iz])
				cfact := fourPiCOverMpc * (1 + newz) *
					(dcom / cosmo.Mpc) * (dcom / cosmo.Mpc)

				// fobs is strictly increasing along the trajectory, so
				// each (bin, formation-redshift) cell is written at most
				// once.
				m.redzFinal.Set(im, iq, iz, j-1, newz)
				m.diffNum.Set(im, iq, iz, j-1,
					m.dens.At(im, iq, iz)*tau*cfact)
			}
		}

		sepaL, rateL, freqL = sepaR, rateR, freqR
	}
}
