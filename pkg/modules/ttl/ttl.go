// Package ttl drives one digital output pin and watches one digital
// input pin. It is the broadest consumer of the execution core: staged
// noblock commands, gated writes, pooled reads and change-filtered
// reporting all appear here.
package ttl

import (
	"fmt"

	"github.com/robotalks/mcu.go/pkg/board"
	"github.com/robotalks/mcu.go/pkg/module"
)

// Commands accepted by the module.
const (
	CommandSendPulse  byte = 1
	CommandToggleOn   byte = 2
	CommandToggleOff  byte = 3
	CommandCheckState byte = 4
)

// Events reported by the module. Codes below 51 belong to the core.
const (
	EventStandBy      byte = 51
	EventOutputOn     byte = 52
	EventOutputOff    byte = 53
	EventInputOn      byte = 54
	EventInputOff     byte = 55
	EventOutputLocked byte = 56
)

// Defaults restored by Setup.
const (
	DefaultPulseDuration   uint32 = 10000
	DefaultAveragePoolSize uint8  = 0
)

// Params is the host-tunable configuration, received packed
// little-endian.
type Params struct {
	// PulseDuration is the high phase of SendPulse in microseconds.
	PulseDuration uint32
	// AveragePoolSize is the number of readouts CheckState averages.
	// Below 2 the pin is read once.
	AveragePoolSize uint8
}

// Module is one TTL I/O unit.
type Module struct {
	core *module.Core
	out  byte
	in   byte

	params Params
	// last reported input event, transitions only are reported
	previous byte
}

// New creates a TTL module on the given pins.
func New(core *module.Core, outPin, inPin byte) (*Module, error) {
	if outPin == inPin {
		return nil, fmt.Errorf("ttl: output and input must be distinct pins, got %d", outPin)
	}
	if led := core.Board().LED(); outPin == led || inPin == led {
		return nil, fmt.Errorf("ttl: pin %d is reserved for the led", led)
	}
	return &Module{core: core, out: outPin, in: inPin, previous: EventStandBy}, nil
}

// Core exposes the shared execution core.
func (m *Module) Core() *module.Core { return m.core }

// Setup configures the pins and restores default parameters. The
// input change tracker survives re-setup so a watchdog reset does not
// replay the last input report.
func (m *Module) Setup() error {
	brd := m.core.Board()
	brd.PinMode(m.out, board.ModeOutput)
	brd.PinMode(m.in, board.ModeInput)
	m.params = Params{
		PulseDuration:   DefaultPulseDuration,
		AveragePoolSize: DefaultAveragePoolSize,
	}
	return nil
}

// SetParameters extracts a packed Params payload.
func (m *Module) SetParameters() error {
	return m.core.ExtractParameters(&m.params)
}

// RunCommand executes one slice of the active command.
func (m *Module) RunCommand() bool {
	switch m.core.ActiveCommand() {
	case CommandSendPulse:
		m.sendPulse()
	case CommandToggleOn:
		m.toggleOn()
	case CommandToggleOff:
		m.toggleOff()
	case CommandCheckState:
		m.checkState()
	default:
		return false
	}
	return true
}

// sendPulse emits one high pulse of PulseDuration microseconds. In
// noblock mode the wait stage yields and resumes on a later slice;
// otherwise both stages run within one call.
func (m *Module) sendPulse() {
	c := m.core
	if c.Stage() == 1 {
		if c.DigitalWriteGated(m.out, true, true) {
			c.SendState(EventOutputOn)
			c.AdvanceStage()
		} else {
			c.SendState(EventOutputLocked)
			// completing instead of aborting keeps a recurrent
			// pulse armed, so it retries once unlocked
			c.CompleteCommand()
			return
		}
	}
	if c.Stage() == 2 {
		if !c.WaitForMicros(m.params.PulseDuration) {
			return
		}
		// driving low needs no gate
		c.Board().DigitalWrite(m.out, false)
		c.SendState(EventOutputOff)
		c.CompleteCommand()
	}
}

// toggleOn latches the output high. Under the ttl lock the write is
// forced low and the report says so; no lock event is raised.
func (m *Module) toggleOn() {
	if m.core.DigitalWriteGated(m.out, true, true) {
		m.core.SendState(EventOutputOn)
	} else {
		m.core.SendState(EventOutputOff)
	}
	m.core.CompleteCommand()
}

// toggleOff latches the output low, locked or not.
func (m *Module) toggleOff() {
	m.core.DigitalWriteGated(m.out, false, true)
	m.core.SendState(EventOutputOff)
	m.core.CompleteCommand()
}

// checkState reads the pooled input and reports transitions only.
func (m *Module) checkState() {
	if m.core.DigitalReadPooled(m.in, m.params.AveragePoolSize) {
		if m.previous != EventInputOn {
			m.previous = EventInputOn
			m.core.SendState(EventInputOn)
		}
	} else if m.previous != EventInputOff {
		m.previous = EventInputOff
		m.core.SendState(EventInputOff)
	}
	m.core.CompleteCommand()
}
