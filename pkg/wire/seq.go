package wire

import "time"

// ReturnSeq generates return codes for host-issued messages. Zero
// asks the controller for no ack, so the sequence cycles 1-0xef.
type ReturnSeq byte

// NewReturnSeq creates a return code sequence at a random position.
func NewReturnSeq() ReturnSeq {
	return ReturnSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next return code.
func (s ReturnSeq) Next() ReturnSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return ReturnSeq(n)
}

// IsValid checks if it's a return code an ack can echo.
func (s ReturnSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}
