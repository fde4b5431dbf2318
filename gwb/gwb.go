/*
package gwb assembles gravitational-wave-background spectra from the
frequency-binned differential number fields produced by the sam mapper.
*/
package gwb

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/window-0701/holodeck/cosmo"
	"github.com/window-0701/holodeck/sam"
)

// ChirpMass returns the chirp mass in g of a binary with total mass mtot
// (g) and mass ratio mrat.
func ChirpMass(mtot, mrat float64) float64 {
	return mtot * math.Pow(mrat, 0.6) / math.Pow(1+mrat, 1.2)
}

// strainConst is 8/sqrt(10) * G^(5/3) * pi^(2/3) / c^4 in cgs.
var strainConst = 8.0 / math.Sqrt(10) *
	math.Pow(cosmo.G, 5.0/3.0) * math.Pow(math.Pi, 2.0/3.0) /
	math.Pow(cosmo.C, 4)

// StrainSource returns the sky-and-polarization averaged GW source
// strain of a circular binary with the given chirp mass (g), comoving
// distance (cm), and rest-frame orbital frequency (Hz). The GW frequency
// is twice the orbital frequency.
func StrainSource(mchirp, dcom, frestOrb float64) float64 {
	fgw := 2 * frestOrb
	return strainConst * math.Pow(mchirp, 5.0/3.0) *
		math.Pow(fgw, 2.0/3.0) / dcom
}

func checkShapes(
	g *sam.Grids, fobsEdges []float64, redzFinal, diffNum *sam.Field4,
) (nf int, err error) {
	nm, nq, nz := g.Shape()
	nf = len(fobsEdges) - 1
	if nf < 0 {
		nf = 0
	}
	for _, f := range []*sam.Field4{redzFinal, diffNum} {
		if f.NM != nm || f.NQ != nq || f.NZ != nz || f.NF != nf {
			return 0, fmt.Errorf(
				"field shape (%d, %d, %d, %d) does not match grids (%d, %d, %d) x %d bins",
				f.NM, f.NQ, f.NZ, f.NF, nm, nq, nz, nf,
			)
		}
	}
	return nf, nil
}

// Spectrum sums the differential number field into a characteristic
// strain per frequency bin: hc^2(f) = sum over cells of dnum * hs^2,
// with hs evaluated at each cell's crossing redshift and the crossed
// edge frequency. Sentinel (no crossing) cells contribute nothing.
func Spectrum(
	g *sam.Grids, fobsEdges []float64, redzFinal, diffNum *sam.Field4,
	tab *cosmo.Table,
) ([]float64, error) {
	nf, err := checkShapes(g, fobsEdges, redzFinal, diffNum)
	if err != nil {
		return nil, err
	}

	hc2 := make([]float64, nf)
	nm, nq, nz := g.Shape()
	for im := 0; im < nm; im++ {
		for iq := 0; iq < nq; iq++ {
			mchirp := ChirpMass(g.Mtot[im], g.Mrat[iq])
			for iz := 0; iz < nz; iz++ {
				for ifq := 0; ifq < nf; ifq++ {
					z := redzFinal.At(im, iq, iz, ifq)
					if math.IsNaN(z) {
						continue
					}
					dn := diffNum.At(im, iq, iz, ifq)
					dcom := tab.DcomAtRedshift(z)
					frest := fobsEdges[ifq+1] * (1 + z)
					hs := StrainSource(mchirp, dcom, frest)
					hc2[ifq] += dn * hs * hs
				}
			}
		}
	}

	for i, v := range hc2 {
		hc2[i] = math.Sqrt(v)
	}
	return hc2, nil
}

// Realize draws Poisson realizations of the discrete binary population
// and returns an (nbins x nreals) matrix of characteristic strains. The
// expected count in a bin is the differential number times the bin's
// logarithmic width; each realization replaces it with a Poisson draw.
func Realize(
	g *sam.Grids, fobsEdges []float64, redzFinal, diffNum *sam.Field4,
	tab *cosmo.Table, nreals int, src rand.Source,
) (*mat.Dense, error) {
	nf, err := checkShapes(g, fobsEdges, redzFinal, diffNum)
	if err != nil {
		return nil, err
	}
	if nreals < 1 {
		return nil, fmt.Errorf("nreals must be positive, got %d", nreals)
	}

	hc2 := mat.NewDense(nf, nreals, nil)
	nm, nq, nz := g.Shape()
	for im := 0; im < nm; im++ {
		for iq := 0; iq < nq; iq++ {
			mchirp := ChirpMass(g.Mtot[im], g.Mrat[iq])
			for iz := 0; iz < nz; iz++ {
				for ifq := 0; ifq < nf; ifq++ {
					z := redzFinal.At(im, iq, iz, ifq)
					if math.IsNaN(z) {
						continue
					}
					dlnf := math.Log(fobsEdges[ifq+1] / fobsEdges[ifq])
					lambda := diffNum.At(im, iq, iz, ifq) * dlnf
					if lambda <= 0 {
						continue
					}

					dcom := tab.DcomAtRedshift(z)
					frest := fobsEdges[ifq+1] * (1 + z)
					hs := StrainSource(mchirp, dcom, frest)
					h2 := hs * hs / dlnf

					pois := distuv.Poisson{Lambda: lambda, Src: src}
					for r := 0; r < nreals; r++ {
						hc2.Set(ifq, r, hc2.At(ifq, r)+pois.Rand()*h2)
					}
				}
			}
		}
	}

	hc2.Apply(func(_, _ int, v float64) float64 { return math.Sqrt(v) }, hc2)
	return hc2, nil
}
