package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/tetra/errs"
	"github.com/arloliu/tetra/format"
)

func TestStream_Defaults(t *testing.T) {
	st := NewStream()
	require.Equal(t, format.ModeReversible, st.Mode())
	require.Zero(t, st.Rate())
	require.Zero(t, st.Precision())
	require.Zero(t, st.Tolerance())
}

func TestStream_SetRate(t *testing.T) {
	st := NewStream()

	actual, err := st.SetRate(8, 2)
	require.NoError(t, err)
	require.Equal(t, 8.0, actual)
	require.Equal(t, format.ModeFixedRate, st.Mode())
	require.Equal(t, 8.0, st.Rate())

	bits, err := st.BlockBits(2)
	require.NoError(t, err)
	require.Equal(t, uint64(128), bits)
}

func TestStream_SetRate_Rounding(t *testing.T) {
	st := NewStream()

	// 10.3 bits/value over a 1D block of 4 values rounds to 41 bits.
	actual, err := st.SetRate(10.3, 1)
	require.NoError(t, err)
	require.Equal(t, 41.0/4.0, actual)

	bits, err := st.BlockBits(1)
	require.NoError(t, err)
	require.Equal(t, uint64(41), bits)
}

func TestStream_SetRate_Invalid(t *testing.T) {
	st := NewStream()

	_, err := st.SetRate(0, 2)
	require.ErrorIs(t, err, errs.ErrInvalidRate)

	_, err = st.SetRate(-1, 2)
	require.ErrorIs(t, err, errs.ErrInvalidRate)

	_, err = st.SetRate(8, 0)
	require.ErrorIs(t, err, errs.ErrInvalidDimensions)

	_, err = st.SetRate(8, 5)
	require.ErrorIs(t, err, errs.ErrInvalidDimensions)

	// Failed configuration leaves the previous mode active.
	require.Equal(t, format.ModeReversible, st.Mode())
}

func TestStream_SetPrecision(t *testing.T) {
	st := NewStream()

	require.NoError(t, st.SetPrecision(24))
	require.Equal(t, format.ModeFixedPrecision, st.Mode())
	require.Equal(t, uint(24), st.Precision())

	require.ErrorIs(t, st.SetPrecision(0), errs.ErrInvalidPrecision)
	require.ErrorIs(t, st.SetPrecision(65), errs.ErrInvalidPrecision)
}

func TestStream_SetAccuracy(t *testing.T) {
	st := NewStream()

	require.NoError(t, st.SetAccuracy(1e-6))
	require.Equal(t, format.ModeFixedAccuracy, st.Mode())
	require.Equal(t, 1e-6, st.Tolerance())

	require.ErrorIs(t, st.SetAccuracy(0), errs.ErrInvalidTolerance)
	require.ErrorIs(t, st.SetAccuracy(-1), errs.ErrInvalidTolerance)
}

func TestStream_BlockBits_RequiresFixedRate(t *testing.T) {
	st := NewStream()

	for _, configure := range []func(){
		func() { st.SetReversible() },
		func() { _ = st.SetPrecision(16) },
		func() { _ = st.SetAccuracy(1e-3) },
	} {
		configure()
		_, err := st.BlockBits(2)
		require.ErrorIs(t, err, errs.ErrNotFixedRate)
	}
}

func TestStream_Validate_AccuracyRejectsIntegers(t *testing.T) {
	st := NewStream()
	require.NoError(t, st.SetAccuracy(1e-3))

	require.ErrorIs(t, st.Validate(format.TypeInt32), errs.ErrModeTypeMismatch)
	require.ErrorIs(t, st.Validate(format.TypeInt64), errs.ErrModeTypeMismatch)
	require.NoError(t, st.Validate(format.TypeFloat32))
	require.NoError(t, st.Validate(format.TypeFloat64))
}

func TestStream_Validate_RateMustHoldExponent(t *testing.T) {
	st := NewStream()

	// 0.1 bits/value on a 1D block is under the 12 bits a float64 exponent
	// header needs.
	_, err := st.SetRate(0.1, 1)
	require.NoError(t, err)
	require.ErrorIs(t, st.Validate(format.TypeFloat64), errs.ErrInvalidRate)

	// Integers carry no exponent header, so the same rate is fine.
	require.NoError(t, st.Validate(format.TypeInt64))
}

func TestStream_ModeSwitchResetsQueries(t *testing.T) {
	st := NewStream()

	_, err := st.SetRate(16, 3)
	require.NoError(t, err)
	require.NotZero(t, st.Rate())

	require.NoError(t, st.SetPrecision(32))
	require.Zero(t, st.Rate())
	require.Equal(t, uint(32), st.Precision())
}
