package link

// crc16 computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xffff, no
// final xor) over data.
func crc16(data []byte) uint16 {
	crc := uint16(0xffff)
	for _, b := range data {
		crc = crcStep(crc, b)
	}
	return crc
}

func crcStep(crc uint16, b byte) uint16 {
	crc ^= uint16(b) << 8
	for i := 0; i < 8; i++ {
		if crc&0x8000 != 0 {
			crc = crc<<1 ^ 0x1021
		} else {
			crc <<= 1
		}
	}
	return crc
}
