package link

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/robotalks/mcu.go/pkg/board"
	"github.com/robotalks/mcu.go/pkg/wire"
)

// Port owns the transmit direction of the link, the decoding of
// received payloads and parameter extraction. It is not safe for
// concurrent use: the runtime drives it from the loop goroutine only.
type Port struct {
	Out PacketWriter
	// Board is optional. When set, error reports drive its LED high
	// as the out-of-band fault channel.
	Board board.Board

	status      byte
	codecStatus byte
	params      []byte
	retained    bool
}

// NewPort creates a Port over a transport writer.
func NewPort(out PacketWriter) *Port {
	return &Port{Out: out, status: StatusStandby, codecStatus: CodecStandby}
}

// WithBoard attaches a board for the LED fault channel.
func (p *Port) WithBoard(b board.Board) *Port {
	p.Board = b
	return p
}

// Status reports the outcome of the last port operation.
func (p *Port) Status() byte {
	return p.status
}

// CodecStatus reports the outcome of the last frame operation.
func (p *Port) CodecStatus() byte {
	return p.codecStatus
}

// Send encodes and transmits one message.
func (p *Port) Send(msg wire.Message) error {
	frame, err := EncodeFrame(msg.Bytes())
	if err != nil {
		p.status, p.codecStatus = StatusPackingError, CodecPayloadTooLarge
		return err
	}
	if err := p.Out.WritePacket(frame); err != nil {
		p.status, p.codecStatus = StatusTransmissionError, CodecWriteError
		return err
	}
	p.status, p.codecStatus = StatusMessageSent, CodecPacketSent
	return nil
}

// Decode parses one received payload into a message. The trailing
// bytes of a parameter message stay retained for extraction until the
// next decode discards them.
func (p *Port) Decode(payload []byte) (wire.Message, error) {
	p.params, p.retained = nil, false
	if len(payload) == 0 {
		p.status, p.codecStatus = StatusNoBytesToReceive, CodecNoBytesToParse
		return nil, wire.ErrShortMessage
	}
	msg, err := wire.Decode(payload)
	if err != nil {
		if _, ok := err.(*wire.UnknownProtocolError); ok {
			p.status = StatusInvalidProtocol
		} else {
			p.status = StatusParsingError
		}
		return nil, err
	}
	if mp, ok := msg.(*wire.ModuleParameters); ok {
		p.params, p.retained = mp.Data, true
	}
	p.status, p.codecStatus = StatusMessageReceived, CodecPacketReceived
	return msg, nil
}

// NoteFault records a receive side codec fault ahead of an error
// report.
func (p *Port) NoteFault(codecStatus byte) {
	p.status, p.codecStatus = StatusReceptionError, codecStatus
}

// ExtractParameters reads the retained parameter bytes into dest,
// which must be a pointer to a fixed-size value of the exact
// retained size.
func (p *Port) ExtractParameters(dest interface{}) error {
	if !p.retained {
		p.status = StatusExtractionForbidden
		return ErrNoParameters
	}
	size := binary.Size(dest)
	if size < 0 || size != len(p.params) {
		p.status = StatusParameterMismatch
		return fmt.Errorf("parameter size %d mismatches destination size %d", len(p.params), size)
	}
	if err := binary.Read(bytes.NewReader(p.params), binary.LittleEndian, dest); err != nil {
		p.status = StatusParsingError
		return err
	}
	p.status = StatusParametersExtracted
	return nil
}

// ReportKernelError sends the [port status, codec status] pair as a
// kernel data message under the given kernel command and event, then
// drives the LED high regardless of the send outcome. It is the
// reporting path of last resort.
func (p *Port) ReportKernelError(command, event byte) {
	p.Send(&wire.KernelData{
		Command:   command,
		Event:     event,
		Prototype: wire.PrototypeTwoUint8s,
		Object:    []byte{p.status, p.codecStatus},
	})
	p.ledOn()
}

// ReportModuleError is ReportKernelError addressed as one module.
func (p *Port) ReportModuleError(moduleType, moduleID, command, event byte) {
	p.Send(&wire.ModuleData{
		ModuleType: moduleType,
		ModuleID:   moduleID,
		Command:    command,
		Event:      event,
		Prototype:  wire.PrototypeTwoUint8s,
		Object:     []byte{p.status, p.codecStatus},
	})
	p.ledOn()
}

func (p *Port) ledOn() {
	if p.Board != nil {
		p.Board.DigitalWrite(p.Board.LED(), true)
	}
}
