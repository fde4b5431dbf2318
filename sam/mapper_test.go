package sam

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/window-0701/holodeck/cosmo"
	"github.com/window-0701/holodeck/hardening"
)

type fixture struct {
	grids *Grids
	dens  *Field3
	norm  *mat.Dense
	tab   *cosmo.Table
	p     hardening.Params
	edges []float64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p := hardening.Params{
		SepaInit:   1e4 * cosmo.Pc,
		Rchar:      10 * cosmo.Pc,
		GammaInner: -1.0,
		GammaOuter: 2.5,
		Nsteps:     200,
	}

	g := &Grids{
		Mtot: []float64{1e8 * cosmo.MSun, 1e9 * cosmo.MSun},
		Mrat: []float64{0.2, 0.8},
		Redz: []float64{0.5, 1.0, 2.0},
	}
	g.GMT = NewField3(2, 2, 3)
	g.GMT.Fill(0.1 * cosmo.Gyr)
	require.NoError(t, g.Validate())

	dens := NewField3(2, 2, 3)
	dens.Fill(1.0)

	tab, err := cosmo.NewFlatLCDM(70.0, 0.31, 0.69, 10.0, 400)
	require.NoError(t, err)

	norm, results, err := hardening.SolveNormField(
		context.Background(), g.Mtot, g.Mrat, 1.0*cosmo.Gyr, p,
		hardening.DefaultSolverOptions(), 2,
	)
	require.NoError(t, err)
	for i, r := range results {
		require.True(t, r.Converged, "norm solve %d", i)
	}

	edges := floats.LogSpan(make([]float64, 9), 1e-9, 1e-7)

	return &fixture{grids: g, dens: dens, norm: norm, tab: tab, p: p, edges: edges}
}

func (fx *fixture) run(t *testing.T, workers int) (redzFinal, diffNum *Field4) {
	t.Helper()
	redzFinal, diffNum, err := DynamicBinaryNumber(
		context.Background(), fx.grids, fx.dens, fx.norm, fx.tab,
		fx.p, fx.edges, workers,
	)
	require.NoError(t, err)
	return redzFinal, diffNum
}

func TestMapperRecordsCrossings(t *testing.T) {
	fx := newFixture(t)
	redzFinal, diffNum := fx.run(t, 2)

	require.Equal(t, len(fx.edges)-1, redzFinal.NF)
	assert.Positive(t, redzFinal.CountFinite(),
		"these binaries merge within a Hubble time and sweep the band")

	for im := 0; im < redzFinal.NM; im++ {
		for iq := 0; iq < redzFinal.NQ; iq++ {
			for iz := 0; iz < redzFinal.NZ; iz++ {
				for ifq := 0; ifq < redzFinal.NF; ifq++ {
					z := redzFinal.At(im, iq, iz, ifq)
					n := diffNum.At(im, iq, iz, ifq)
					if math.IsNaN(z) {
						continue
					}
					assert.Positive(t, z)
					assert.Less(t, z, fx.grids.Redz[iz],
						"crossing happens after formation")
					assert.Positive(t, n)
				}
			}
		}
	}
}

// A sentinel in one output field must pair with a sentinel in the other.
func TestMapperSentinelInvariant(t *testing.T) {
	fx := newFixture(t)
	redzFinal, diffNum := fx.run(t, 2)

	require.Equal(t, len(redzFinal.Vals), len(diffNum.Vals))
	for i := range redzFinal.Vals {
		assert.Equal(t,
			math.IsNaN(redzFinal.Vals[i]), math.IsNaN(diffNum.Vals[i]),
			"cell %d", i)
	}
}

// The mapper is a pure function of its inputs: repeated runs, at any
// worker count, are bit-identical.
func TestMapperIdempotent(t *testing.T) {
	fx := newFixture(t)
	z1, n1 := fx.run(t, 1)
	z3, n3 := fx.run(t, 3)
	z1b, n1b := fx.run(t, 1)

	equalBits := func(a, b []float64) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
				return false
			}
		}
		return true
	}
	assert.True(t, equalBits(z1.Vals, z3.Vals))
	assert.True(t, equalBits(n1.Vals, n3.Vals))
	assert.True(t, equalBits(z1.Vals, z1b.Vals))
	assert.True(t, equalBits(n1.Vals, n1b.Vals))
}

func TestMapperDegenerateEdges(t *testing.T) {
	fx := newFixture(t)

	for _, edges := range [][]float64{nil, {1e-8}} {
		fx.edges = edges
		redzFinal, diffNum := fx.run(t, 1)
		assert.Equal(t, 0, redzFinal.NF)
		assert.Empty(t, redzFinal.Vals)
		assert.Empty(t, diffNum.Vals)
	}
}

// A binary whose GMT pushes it past the present age of the universe
// contributes nothing anywhere.
func TestMapperStalledBinary(t *testing.T) {
	fx := newFixture(t)
	fx.grids.GMT.Set(0, 0, 1, 20*cosmo.Gyr)

	redzFinal, diffNum := fx.run(t, 2)
	for ifq := 0; ifq < redzFinal.NF; ifq++ {
		assert.True(t, math.IsNaN(redzFinal.At(0, 0, 1, ifq)))
		assert.True(t, math.IsNaN(diffNum.At(0, 0, 1, ifq)))
	}
	// Other redshift bins of the same pair are unaffected.
	finite := 0
	for ifq := 0; ifq < redzFinal.NF; ifq++ {
		if !math.IsNaN(redzFinal.At(0, 0, 2, ifq)) {
			finite++
		}
	}
	assert.Positive(t, finite)
}

func TestMapperValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	badDens := NewField3(1, 2, 3)
	_, _, err := DynamicBinaryNumber(
		ctx, fx.grids, badDens, fx.norm, fx.tab, fx.p, fx.edges, 1,
	)
	assert.Error(t, err, "density shape mismatch")

	badNorm := mat.NewDense(1, 1, nil)
	_, _, err = DynamicBinaryNumber(
		ctx, fx.grids, fx.dens, badNorm, fx.tab, fx.p, fx.edges, 1,
	)
	assert.Error(t, err, "norm shape mismatch")

	badEdges := []float64{1e-8, 1e-9}
	_, _, err = DynamicBinaryNumber(
		ctx, fx.grids, fx.dens, fx.norm, fx.tab, fx.p, badEdges, 1,
	)
	assert.Error(t, err, "descending edges")

	badGrids := *fx.grids
	badGrids.Redz = []float64{0.5, 1.0, 99.0}
	badGrids.GMT = fx.grids.GMT
	_, _, err = DynamicBinaryNumber(
		ctx, &badGrids, fx.dens, fx.norm, fx.tab, fx.p, fx.edges, 1,
	)
	assert.Error(t, err, "redshift outside table")

	bad := &Grids{Mtot: fx.grids.Mtot, Mrat: []float64{1.5}, Redz: fx.grids.Redz,
		GMT: NewField3(2, 1, 3)}
	_, _, err = DynamicBinaryNumber(
		ctx, bad, fx.dens, fx.norm, fx.tab, fx.p, fx.edges, 1,
	)
	assert.Error(t, err, "ratio out of range")
}
