// Package sensor samples one analog input pin and reports readings
// that pass the configured band and change filters.
package sensor

import (
	"fmt"

	"github.com/robotalks/mcu.go/pkg/board"
	"github.com/robotalks/mcu.go/pkg/module"
	"github.com/robotalks/mcu.go/pkg/wire"
)

// CommandCheckState samples the pin once; hosts typically queue it
// recurrently to poll.
const CommandCheckState byte = 1

// EventInput carries one filtered reading as OneUint16.
const EventInput byte = 51

// Defaults restored by Setup. The default band accepts everything and
// delta 1 reports any change.
const (
	DefaultLowerThreshold  uint16 = 0
	DefaultUpperThreshold  uint16 = 65535
	DefaultDeltaThreshold  uint16 = 1
	DefaultAveragePoolSize uint8  = 10
)

// readoutSentinel marks the previous readout invalid, forcing the
// first in-band reading through the delta filter.
const readoutSentinel uint16 = 65535

// Params is the host-tunable configuration, received packed
// little-endian.
type Params struct {
	// LowerThreshold and UpperThreshold bound the reported band,
	// inclusive on both ends.
	LowerThreshold uint16
	UpperThreshold uint16
	// DeltaThreshold is the minimum change against the last reported
	// reading. Unchanged readings never report, so 0 acts as 1.
	DeltaThreshold uint16
	// AveragePoolSize is the number of readouts to average. Below 2
	// the pin is read once.
	AveragePoolSize uint8
}

// Module is one analog sensor unit.
type Module struct {
	core *module.Core
	pin  byte

	params   Params
	previous uint16
}

// New creates a sensor module on the given analog pin.
func New(core *module.Core, pin byte) (*Module, error) {
	if led := core.Board().LED(); pin == led {
		return nil, fmt.Errorf("sensor: pin %d is reserved for the led", led)
	}
	return &Module{core: core, pin: pin, previous: readoutSentinel}, nil
}

// Core exposes the shared execution core.
func (m *Module) Core() *module.Core { return m.core }

// Setup configures the pin, restores default parameters and
// invalidates the previous readout.
func (m *Module) Setup() error {
	m.core.Board().PinMode(m.pin, board.ModeInput)
	m.params = Params{
		LowerThreshold:  DefaultLowerThreshold,
		UpperThreshold:  DefaultUpperThreshold,
		DeltaThreshold:  DefaultDeltaThreshold,
		AveragePoolSize: DefaultAveragePoolSize,
	}
	m.previous = readoutSentinel
	return nil
}

// SetParameters extracts a packed Params payload.
func (m *Module) SetParameters() error {
	return m.core.ExtractParameters(&m.params)
}

// RunCommand executes one slice of the active command.
func (m *Module) RunCommand() bool {
	if m.core.ActiveCommand() != CommandCheckState {
		return false
	}
	m.checkState()
	return true
}

// checkState samples the pooled pin and reports the reading when it
// is inside the band and moved at least DeltaThreshold away from the
// last reported one. Only reported readings update the tracker.
func (m *Module) checkState() {
	c := m.core
	signal := c.AnalogReadPooled(m.pin, m.params.AveragePoolSize)
	if signal == m.previous {
		c.CompleteCommand()
		return
	}
	if signal >= m.params.LowerThreshold && signal <= m.params.UpperThreshold {
		if absDelta(signal, m.previous) >= m.params.DeltaThreshold {
			c.SendData(EventInput, wire.PrototypeOneUint16, signal)
			m.previous = signal
		}
	}
	c.CompleteCommand()
}

func absDelta(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}
