package link

// Parser recovers frames from received bytes, one byte at a time.
// After any fault it resumes hunting for the next start byte.
type Parser struct {
	state parseState
	size  byte
	block []byte
	crcLo byte
}

// ParseResult is the outcome of one parsing step. At most one of
// Payload and Fault is set.
type ParseResult struct {
	// Payload is the frame payload when this byte completed a frame.
	Payload []byte
	// Fault is the codec status of a framing fault, 0 otherwise.
	Fault byte
}

type parseState int

const (
	stateStart   parseState = iota // hunting for the start byte
	stateSize                      // waiting for the payload size
	stateBlock                     // accumulating the COBS block
	stateCRCLow                    // waiting for the low CRC byte
	stateCRCHigh                   // waiting for the high CRC byte
)

// Reset drops any partial frame and resumes hunting.
func (p *Parser) Reset() {
	p.state, p.block = stateStart, nil
}

// Receiving indicates a frame is partially received.
func (p *Parser) Receiving() bool {
	return p.state != stateStart
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	switch p.state {
	case stateStart:
		if b == StartByte {
			p.state = stateSize
		}
	case stateSize:
		if b == 0 {
			pr.Fault = CodecSizeMismatch
			p.Reset()
			return
		}
		if int(b) > MaxPayloadSize {
			pr.Fault = CodecPayloadTooLarge
			p.Reset()
			return
		}
		p.size = b
		p.block = make([]byte, 0, int(b)+2)
		p.state = stateBlock
	case stateBlock:
		if b == 0 {
			p.state = stateCRCLow
			return
		}
		if len(p.block) >= p.blockBound() {
			pr.Fault = CodecCobsError
			p.Reset()
			return
		}
		p.block = append(p.block, b)
	case stateCRCLow:
		p.crcLo = b
		p.state = stateCRCHigh
	case stateCRCHigh:
		pr = p.frameDone(b)
		p.Reset()
	}
	return
}

// blockBound is the largest COBS block (delimiter excluded) the
// declared payload size can produce.
func (p *Parser) blockBound() int {
	bound := int(p.size) + 1
	if p.size == MaxPayloadSize {
		bound++
	}
	return bound
}

func (p *Parser) frameDone(crcHi byte) (pr ParseResult) {
	recv := uint16(crcHi)<<8 | uint16(p.crcLo)
	if crc16(append(p.block, 0)) != recv {
		pr.Fault = CodecCRCMismatch
		return
	}
	payload, err := cobsDecode(p.block)
	if err != nil {
		pr.Fault = CodecCobsError
		return
	}
	if len(payload) != int(p.size) {
		pr.Fault = CodecSizeMismatch
		return
	}
	pr.Payload = payload
	return
}
