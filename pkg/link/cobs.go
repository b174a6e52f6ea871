package link

import "errors"

var errCobs = errors.New("malformed COBS block")

// cobsEncode stuffs src so the encoded block contains no zero bytes.
// The trailing frame delimiter is not included.
func cobsEncode(src []byte) []byte {
	dst := make([]byte, 1, len(src)+1+len(src)/254)
	codeIdx, code := 0, byte(1)
	for _, b := range src {
		if b != 0 {
			dst = append(dst, b)
			code++
		}
		if b == 0 || code == 0xff {
			dst[codeIdx] = code
			code, codeIdx = 1, len(dst)
			dst = append(dst, 0)
		}
	}
	dst[codeIdx] = code
	return dst
}

// cobsDecode unstuffs an encoded block (without the delimiter).
func cobsDecode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, errCobs
	}
	dst := make([]byte, 0, len(src)-1)
	for i := 0; i < len(src); {
		code := src[i]
		if code == 0 {
			return nil, errCobs
		}
		i++
		for n := byte(1); n < code; n++ {
			if i >= len(src) {
				return nil, errCobs
			}
			if src[i] == 0 {
				return nil, errCobs
			}
			dst = append(dst, src[i])
			i++
		}
		if code != 0xff && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}
