/*
package cosmo contains cosmological constants, background-expansion
functions, and the interpolation tables relating redshift, the age of the
universe, and comoving distance.
*/
package cosmo

import (
	"fmt"
)

// Table relates redshift, age of the universe, and comoving distance
// through three parallel arrays sharing one index. Age is strictly
// increasing with index, so redshift is strictly decreasing and comoving
// distance (to that redshift) is strictly decreasing as well. A Table is
// immutable after construction and safe for concurrent reads.
type Table struct {
	redz, age, dcom []float64
}

// Cursor is an explicit interpolation hint: the interval index returned
// by the previous query. Callers walking monotonically through ages
// thread a Cursor through successive calls so most lookups resolve in
// O(1) instead of O(log n). A zero Cursor is valid. Cursors are owned by
// the caller, so distinct goroutines sharing a Table need only use
// distinct Cursors.
type Cursor int

// NewTable creates a Table from parallel redshift, age, and comoving
// distance arrays. The arrays must have equal lengths of at least two
// and age must be strictly increasing.
func NewTable(redz, age, dcom []float64) (*Table, error) {
	if len(age) != len(redz) || len(age) != len(dcom) {
		return nil, fmt.Errorf(
			"table arrays have mismatched lengths: redz %d, age %d, dcom %d",
			len(redz), len(age), len(dcom),
		)
	}
	if len(age) < 2 {
		return nil, fmt.Errorf("table needs at least two rows, got %d", len(age))
	}
	for i := 1; i < len(age); i++ {
		if age[i] <= age[i-1] {
			return nil, fmt.Errorf(
				"table age is not strictly increasing at index %d: %g -> %g",
				i, age[i-1], age[i],
			)
		}
	}
	return &Table{redz: redz, age: age, dcom: dcom}, nil
}

// AgeToday returns the largest tabulated age of the universe.
func (t *Table) AgeToday() float64 { return t.age[len(t.age)-1] }

// search returns the interval index i with age[i] <= x <= age[i+1],
// starting from the hint in cur and storing the found index back into
// it. Queries outside the tabulated age range panic; callers are
// expected to have clamped against AgeToday first.
func (t *Table) search(x float64, cur *Cursor) int {
	n := len(t.age)
	if x < t.age[0] || x > t.age[n-1] {
		panic(fmt.Sprintf(
			"age %g outside table bounds [%g, %g]", x, t.age[0], t.age[n-1],
		))
	}

	// Forward walk from the hint. Monotonic callers land here.
	i := int(*cur)
	if i >= 0 && i < n-1 && t.age[i] <= x {
		for i < n-2 && t.age[i+1] < x {
			i++
		}
		*cur = Cursor(i)
		return i
	}

	// Binary search.
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if x >= t.age[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}
	*cur = Cursor(lo)
	return lo
}

func lerp(x, x1, x2, v1, v2 float64) float64 {
	return v1 + (v2-v1)*(x-x1)/(x2-x1)
}

// RedshiftAtAge linearly interpolates the redshift at which the universe
// had the given age.
func (t *Table) RedshiftAtAge(age float64, cur *Cursor) float64 {
	i := t.search(age, cur)
	return lerp(age, t.age[i], t.age[i+1], t.redz[i], t.redz[i+1])
}

// DcomAtAge linearly interpolates the comoving distance to an event at
// the given age of the universe. The result is in cm.
func (t *Table) DcomAtAge(age float64, cur *Cursor) float64 {
	i := t.search(age, cur)
	return lerp(age, t.age[i], t.age[i+1], t.dcom[i], t.dcom[i+1])
}

// AgeAtRedshift linearly interpolates the age of the universe at the
// given redshift. The redshift axis is strictly decreasing, so this is a
// descending binary search. Queries outside the tabulated range panic.
func (t *Table) AgeAtRedshift(z float64) float64 {
	n := len(t.redz)
	if z > t.redz[0] || z < t.redz[n-1] {
		panic(fmt.Sprintf(
			"redshift %g outside table bounds [%g, %g]", z, t.redz[n-1], t.redz[0],
		))
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if z <= t.redz[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lerp(z, t.redz[lo], t.redz[lo+1], t.age[lo], t.age[lo+1])
}

// DcomAtRedshift linearly interpolates the comoving distance to the
// given redshift. The result is in cm.
func (t *Table) DcomAtRedshift(z float64) float64 {
	n := len(t.redz)
	if z > t.redz[0] || z < t.redz[n-1] {
		panic(fmt.Sprintf(
			"redshift %g outside table bounds [%g, %g]", z, t.redz[n-1], t.redz[0],
		))
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if z <= t.redz[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lerp(z, t.redz[lo], t.redz[lo+1], t.dcom[lo], t.dcom[lo+1])
}

// ZMax returns the largest tabulated redshift.
func (t *Table) ZMax() float64 { return t.redz[0] }

// ZMin returns the smallest tabulated redshift.
func (t *Table) ZMin() float64 { return t.redz[len(t.redz)-1] }

// Len returns the number of rows in the table.
func (t *Table) Len() int { return len(t.age) }
