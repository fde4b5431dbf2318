package sam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField3Layout(t *testing.T) {
	f := NewField3(2, 3, 4)
	require.Len(t, f.Vals, 24)

	f.Set(1, 2, 3, 7.5)
	assert.Equal(t, 7.5, f.At(1, 2, 3))
	// Mass-major layout: the last cell of the flat slice.
	assert.Equal(t, 7.5, f.Vals[23])

	f.Set(0, 1, 2, -1.0)
	assert.Equal(t, -1.0, f.Vals[2+4*1])

	f.Fill(2.0)
	for _, v := range f.Vals {
		assert.Equal(t, 2.0, v)
	}

	assert.Panics(t, func() { NewField3(0, 3, 4) })
}

func TestField4Layout(t *testing.T) {
	f := NewField4(2, 2, 3, 5)
	require.Len(t, f.Vals, 60)

	f.Set(1, 1, 2, 4, 3.25)
	assert.Equal(t, 3.25, f.At(1, 1, 2, 4))
	assert.Equal(t, 3.25, f.Vals[59])

	f.Fill(math.NaN())
	assert.Equal(t, 0, f.CountFinite())
	f.Set(0, 0, 0, 0, 1.0)
	f.Set(1, 0, 1, 3, 2.0)
	assert.Equal(t, 2, f.CountFinite())

	// A zero-width frequency axis is legal and holds no cells.
	empty := NewField4(2, 2, 3, 0)
	assert.Empty(t, empty.Vals)
	assert.Equal(t, 0, empty.CountFinite())

	assert.Panics(t, func() { NewField4(2, 2, 3, -1) })
}
