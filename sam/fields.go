package sam

import (
	"fmt"
	"math"
)

// Field3 is a dense 3D float64 field indexed (mass, ratio, redshift),
// stored mass-major in a flat slice: vals[iz + nz*(iq + nq*im)]. The
// mass index is slowest so parallel workers that split mass rows own
// disjoint contiguous ranges of the backing slice.
type Field3 struct {
	NM, NQ, NZ int
	Vals       []float64
}

// NewField3 allocates a zeroed field of the given shape. Panics on
// non-positive dimensions.
func NewField3(nm, nq, nz int) *Field3 {
	if nm < 1 || nq < 1 || nz < 1 {
		panic(fmt.Sprintf("invalid Field3 shape (%d, %d, %d)", nm, nq, nz))
	}
	return &Field3{NM: nm, NQ: nq, NZ: nz, Vals: make([]float64, nm*nq*nz)}
}

func (f *Field3) idx(im, iq, iz int) int {
	return iz + f.NZ*(iq+f.NQ*im)
}

// At returns the value at (im, iq, iz).
func (f *Field3) At(im, iq, iz int) float64 { return f.Vals[f.idx(im, iq, iz)] }

// Set stores v at (im, iq, iz).
func (f *Field3) Set(im, iq, iz int, v float64) { f.Vals[f.idx(im, iq, iz)] = v }

// Fill sets every cell to v.
func (f *Field3) Fill(v float64) {
	for i := range f.Vals {
		f.Vals[i] = v
	}
}

// Field4 is a dense 4D float64 field indexed (mass, ratio, redshift,
// frequency bin), stored mass-major like Field3. The frequency dimension
// may be zero, in which case the field holds no cells.
type Field4 struct {
	NM, NQ, NZ, NF int
	Vals           []float64
}

// NewField4 allocates a zeroed field of the given shape. NF may be zero;
// the other dimensions must be positive.
func NewField4(nm, nq, nz, nf int) *Field4 {
	if nm < 1 || nq < 1 || nz < 1 || nf < 0 {
		panic(fmt.Sprintf("invalid Field4 shape (%d, %d, %d, %d)", nm, nq, nz, nf))
	}
	return &Field4{NM: nm, NQ: nq, NZ: nz, NF: nf,
		Vals: make([]float64, nm*nq*nz*nf)}
}

func (f *Field4) idx(im, iq, iz, ifq int) int {
	return ifq + f.NF*(iz+f.NZ*(iq+f.NQ*im))
}

// At returns the value at (im, iq, iz, ifq).
func (f *Field4) At(im, iq, iz, ifq int) float64 {
	return f.Vals[f.idx(im, iq, iz, ifq)]
}

// Set stores v at (im, iq, iz, ifq).
func (f *Field4) Set(im, iq, iz, ifq int, v float64) {
	f.Vals[f.idx(im, iq, iz, ifq)] = v
}

// Fill sets every cell to v.
func (f *Field4) Fill(v float64) {
	for i := range f.Vals {
		f.Vals[i] = v
	}
}

// CountFinite returns the number of cells not holding the NaN sentinel.
func (f *Field4) CountFinite() int {
	n := 0
	for _, v := range f.Vals {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
