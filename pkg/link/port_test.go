package link

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcu.go/pkg/board"
	"github.com/robotalks/mcu.go/pkg/wire"
)

type capturePackets struct {
	packets [][]byte
	err     error
}

func (c *capturePackets) WritePacket(pkt []byte) error {
	if c.err != nil {
		return c.err
	}
	c.packets = append(c.packets, pkt)
	return nil
}

func (c *capturePackets) payloads(t *testing.T) [][]byte {
	var parser Parser
	var out [][]byte
	for _, pkt := range c.packets {
		for _, b := range pkt {
			pr := parser.Parse(b)
			require.Zero(t, pr.Fault)
			if pr.Payload != nil {
				out = append(out, pr.Payload)
			}
		}
	}
	return out
}

func TestPortSend(t *testing.T) {
	out := &capturePackets{}
	port := NewPort(out)
	require.Equal(t, StatusStandby, port.Status())
	require.Equal(t, CodecStandby, port.CodecStatus())

	err := port.Send(&wire.KernelState{Command: 2, Event: 1})
	require.NoError(t, err)
	require.Equal(t, StatusMessageSent, port.Status())
	require.Equal(t, CodecPacketSent, port.CodecStatus())
	require.Equal(t, [][]byte{{10, 2, 1}}, out.payloads(t))
}

func TestPortSendWriteError(t *testing.T) {
	out := &capturePackets{err: errors.New("down")}
	port := NewPort(out)
	err := port.Send(&wire.KernelState{Command: 2, Event: 1})
	require.Error(t, err)
	require.Equal(t, StatusTransmissionError, port.Status())
	require.Equal(t, CodecWriteError, port.CodecStatus())
}

func TestPortDecode(t *testing.T) {
	port := NewPort(&capturePackets{})

	msg, err := port.Decode([]byte{4, 0, 2})
	require.NoError(t, err)
	require.Equal(t, &wire.KernelCommand{Command: 2}, msg)
	require.Equal(t, StatusMessageReceived, port.Status())

	_, err = port.Decode([]byte{4, 0})
	require.Error(t, err)
	require.Equal(t, StatusParsingError, port.Status())

	_, err = port.Decode([]byte{99, 1})
	require.Error(t, err)
	require.Equal(t, StatusInvalidProtocol, port.Status())

	_, err = port.Decode(nil)
	require.Error(t, err)
	require.Equal(t, StatusNoBytesToReceive, port.Status())
}

func TestPortExtractParameters(t *testing.T) {
	port := NewPort(&capturePackets{})

	type params struct {
		PulseDuration   uint32
		AveragePoolSize uint8
	}

	// extraction before any parameter message is forbidden
	var dst params
	err := port.ExtractParameters(&dst)
	require.Equal(t, ErrNoParameters, err)
	require.Equal(t, StatusExtractionForbidden, port.Status())

	_, err = port.Decode([]byte{5, 1, 1, 0, 0x10, 0x27, 0, 0, 5})
	require.NoError(t, err)
	require.NoError(t, port.ExtractParameters(&dst))
	require.Equal(t, params{PulseDuration: 10000, AveragePoolSize: 5}, dst)
	require.Equal(t, StatusParametersExtracted, port.Status())

	// size mismatch keeps dst untouched
	var short struct{ A uint8 }
	require.Error(t, port.ExtractParameters(&short))
	require.Equal(t, StatusParameterMismatch, port.Status())

	// a later decode discards the retained bytes
	_, err = port.Decode([]byte{10, 2, 1})
	require.NoError(t, err)
	err = port.ExtractParameters(&dst)
	require.Equal(t, ErrNoParameters, err)
	require.Equal(t, StatusExtractionForbidden, port.Status())
}

func TestPortReportKernelError(t *testing.T) {
	out := &capturePackets{}
	sim := board.NewSim()
	port := NewPort(out).WithBoard(sim)

	_, err := port.Decode([]byte{2, 5, 2})
	require.Error(t, err)
	port.ReportKernelError(1, 3)

	payloads := out.payloads(t)
	require.Len(t, payloads, 1)
	msg, err := wire.Decode(payloads[0])
	require.NoError(t, err)
	require.Equal(t, &wire.KernelData{
		Command:   1,
		Event:     3,
		Prototype: wire.PrototypeTwoUint8s,
		Object:    []byte{StatusParsingError, CodecStandby},
	}, msg)
	require.True(t, sim.Digital(sim.LED()))
}

func TestPortReportModuleError(t *testing.T) {
	out := &capturePackets{err: errors.New("down")}
	sim := board.NewSim()
	port := NewPort(out).WithBoard(sim)

	port.Send(&wire.KernelState{Command: 1, Event: 0})
	port.ReportModuleError(5, 2, 3, 1)
	// the report could not be sent, the LED still signals the fault
	require.True(t, sim.Digital(sim.LED()))
}

func TestPortNoteFault(t *testing.T) {
	port := NewPort(&capturePackets{})
	port.NoteFault(CodecCRCMismatch)
	require.Equal(t, StatusReceptionError, port.Status())
	require.Equal(t, CodecCRCMismatch, port.CodecStatus())
}
