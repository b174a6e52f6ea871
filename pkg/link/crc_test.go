package link

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC16(t *testing.T) {
	// CRC-16/CCITT-FALSE check value.
	require.Equal(t, uint16(0x29b1), crc16([]byte("123456789")))
	require.Equal(t, uint16(0xffff), crc16(nil))
}

func TestCRC16Incremental(t *testing.T) {
	data := []byte{0x81, 5, 1, 2, 3, 4, 5}
	crc := uint16(0xffff)
	for _, b := range data {
		crc = crcStep(crc, b)
	}
	require.Equal(t, crc16(data), crc)
}
