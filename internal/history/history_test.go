package history_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/history"
)

func TestDenseAppendAndQuery(t *testing.T) {
	h := history.NewDenseFactory[float64]()()
	require.True(t, h.Empty())

	d1 := date.MustNew(2000, 1, 1)
	d2 := date.MustNew(2001, 1, 1)

	require.NoError(t, h.Append(d1, history.FromFloat64(1.5)))
	require.NoError(t, h.Append(d2, history.FromFloat64(2.5)))
	require.Equal(t, 2, h.Size())

	v, ok := h.LastAsDouble(date.MustNew(2000, 6, 1))
	require.True(t, ok)
	require.Equal(t, 1.5, v)

	v, ok = h.LastAsDouble(d2)
	require.True(t, ok)
	require.Equal(t, 2.5, v)

	_, ok = h.LastAsDouble(date.MustNew(1999, 1, 1))
	require.False(t, ok)
}

func TestDenseRejectsOutOfOrderAppend(t *testing.T) {
	h := history.NewDenseFactory[int32]()()
	d := date.MustNew(2010, 5, 1)
	require.NoError(t, h.Append(d, history.FromInt(history.KindInt32, 7)))
	err := h.Append(d, history.FromInt(history.KindInt32, 8))
	require.ErrorIs(t, err, history.ErrOutOfOrder)
}

func TestDenseRejectsKindMismatch(t *testing.T) {
	h := history.NewDenseFactory[int32]()()
	err := h.Append(date.MustNew(2010, 1, 1), history.FromFloat64(1))
	require.ErrorIs(t, err, history.ErrKindMismatch)
}

func TestDenseCorrectReplacesLastValueInPlace(t *testing.T) {
	h := history.NewDenseFactory[float64]()()
	d := date.MustNew(2010, 1, 1)
	require.NoError(t, h.Append(d, history.FromFloat64(10)))
	require.NoError(t, h.Correct(history.FromFloat64(99)))
	require.Equal(t, 1, h.Size())
	v, ok := h.LastAsDouble(d)
	require.True(t, ok)
	require.Equal(t, 99.0, v)

	require.ErrorIs(t, history.NewDenseFactory[float64]()().Correct(history.FromFloat64(1)), history.ErrEmpty)
}

func TestSparseElidesRepeatedValues(t *testing.T) {
	h := history.NewSparseFactory[int32]()()
	d1 := date.MustNew(2000, 1, 1)
	d2 := date.MustNew(2000, 6, 1)
	d3 := date.MustNew(2001, 1, 1)

	require.NoError(t, h.Append(d1, history.FromInt(history.KindInt32, 5)))
	require.NoError(t, h.Append(d2, history.FromInt(history.KindInt32, 5))) // elided
	require.NoError(t, h.Append(d3, history.FromInt(history.KindInt32, 6)))

	require.Equal(t, 2, h.Size(), "repeated value should not add a new entry")
	require.Equal(t, d3, h.LastDate(), "LastDate tracks every logical append, elided or not")

	v, ok := h.LastAsInt(d2)
	require.True(t, ok)
	require.Equal(t, int64(5), v, "query between elided dates still returns the carried-forward value")
}

func TestSparseEnforcesOrderingEvenWhenEliding(t *testing.T) {
	h := history.NewSparseFactory[int32]()()
	d := date.MustNew(2000, 1, 1)
	require.NoError(t, h.Append(d, history.FromInt(history.KindInt32, 1)))
	err := h.Append(d, history.FromInt(history.KindInt32, 1))
	require.ErrorIs(t, err, history.ErrOutOfOrder)
}

func TestFirstLastIndex(t *testing.T) {
	h := history.NewDenseFactory[float64]()()
	dates := []date.Date{
		date.MustNew(2000, 1, 1),
		date.MustNew(2001, 1, 1),
		date.MustNew(2002, 1, 1),
	}
	for i, d := range dates {
		require.NoError(t, h.Append(d, history.FromFloat64(float64(i))))
	}
	require.Equal(t, 1, h.FirstIndex(date.MustNew(2000, 6, 1)))
	require.Equal(t, 0, h.LastIndex(date.MustNew(2000, 6, 1)))
	require.Equal(t, 3, h.FirstIndex(date.MustNew(2003, 1, 1)))
	require.Equal(t, -1, h.LastIndex(date.MustNew(1999, 1, 1)))
}

func TestValueConversions(t *testing.T) {
	v := history.ValueOf(int16(42))
	require.Equal(t, history.KindInt16, v.Kind())
	require.Equal(t, int64(42), v.AsInt64())
	require.Equal(t, 42.0, v.AsFloat64())

	f := history.ValueOf(float32(3.5))
	require.Equal(t, history.KindFloat32, f.Kind())
	require.Equal(t, int64(3), f.AsInt64())
}
