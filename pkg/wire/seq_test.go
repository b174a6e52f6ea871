package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReturnSeq(t *testing.T) {
	for s := byte(0xff); s >= byte(0xf0); s-- {
		require.False(t, ReturnSeq(s).IsValid())
		require.Equal(t, ReturnSeq(1), ReturnSeq(s).Next())
	}
	for s := byte(1); s < byte(0xf0); s++ {
		require.True(t, ReturnSeq(s).IsValid())
		if s+1 < 0xf0 {
			require.Equal(t, ReturnSeq(s+1), ReturnSeq(s).Next())
		} else {
			require.Equal(t, ReturnSeq(1), ReturnSeq(s).Next())
		}
	}
	require.False(t, ReturnSeq(0).IsValid())
	require.Equal(t, ReturnSeq(1), ReturnSeq(0).Next())
}
