package publicapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	c := encodeCursor(1700000000123)
	got, err := decodeCursor(c)
	require.NoError(t, err)
	require.Equal(t, int64(1700000000123), got)
}

func TestDecodeCursorEmptyIsZero(t *testing.T) {
	got, err := decodeCursor("")
	require.NoError(t, err)
	require.Equal(t, int64(0), got)
}

func TestDecodeCursorInvalidErrors(t *testing.T) {
	_, err := decodeCursor("not-valid-base64!!")
	require.Error(t, err)
}
