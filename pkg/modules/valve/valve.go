// Package valve actuates a solenoid valve over one digital pin.
// Polarity is fixed at construction, so commands are expressed as
// open and close rather than pin levels.
package valve

import (
	"fmt"
	"time"

	"github.com/robotalks/mcu.go/pkg/board"
	"github.com/robotalks/mcu.go/pkg/module"
)

// Commands accepted by the module.
const (
	CommandSendPulse byte = 1
	CommandToggleOn  byte = 2
	CommandToggleOff byte = 3
	CommandCalibrate byte = 4
)

// EventOutputLocked reports an actuation refused by the action gate.
const EventOutputLocked byte = 51

// Defaults restored by Setup.
const (
	DefaultPulseDuration    uint32 = 10000
	DefaultCalibrationDelay uint32 = 10000
	DefaultCalibrationCount uint16 = 1000
)

// Params is the host-tunable configuration, received packed
// little-endian.
type Params struct {
	// PulseDuration is the open phase of SendPulse in microseconds.
	PulseDuration uint32
	// CalibrationDelay is the settle time between calibration rounds
	// in microseconds.
	CalibrationDelay uint32
	// CalibrationCount is how many open/close rounds Calibrate runs.
	CalibrationCount uint16
}

// Config fixes the wiring of one valve.
type Config struct {
	// Pin is the digital control pin.
	Pin byte
	// NormallyClosed selects polarity: a normally closed valve opens
	// on high, a normally open one opens on low.
	NormallyClosed bool
	// StartClosed selects the state Setup drives.
	StartClosed bool
}

// Module is one valve actuation unit.
type Module struct {
	core *module.Core
	pin  byte
	// level that opens the valve; the inverse closes it
	openLevel   bool
	startClosed bool

	params Params
}

// New creates a valve module with the given wiring.
func New(core *module.Core, cfg Config) (*Module, error) {
	if led := core.Board().LED(); cfg.Pin == led {
		return nil, fmt.Errorf("valve: pin %d is reserved for the led", led)
	}
	return &Module{
		core:        core,
		pin:         cfg.Pin,
		openLevel:   cfg.NormallyClosed,
		startClosed: cfg.StartClosed,
	}, nil
}

// Core exposes the shared execution core.
func (m *Module) Core() *module.Core { return m.core }

// Setup configures the pin, drives the configured start state and
// restores default parameters. The start state is written raw: it
// must reach the pin while the gates are still engaged.
func (m *Module) Setup() error {
	brd := m.core.Board()
	brd.PinMode(m.pin, board.ModeOutput)
	level := m.openLevel
	if m.startClosed {
		level = !m.openLevel
	}
	brd.DigitalWrite(m.pin, level)
	m.params = Params{
		PulseDuration:    DefaultPulseDuration,
		CalibrationDelay: DefaultCalibrationDelay,
		CalibrationCount: DefaultCalibrationCount,
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
		m.pulse()
	case CommandToggleOn:
		m.open()
	case CommandToggleOff:
		m.close()
	case CommandCalibrate:
		m.calibrate()
	default:
		return false
	}
	return true
}

// drive actuates the pin through the action gate. On lock the gate
// still forces the pin low; the command reports OutputLocked and
// aborts, killing any recurrence: a stuck valve must not retry on
// its own.
func (m *Module) drive(level bool) bool {
	c := m.core
	c.DigitalWriteGated(m.pin, level, false)
	if c.Locked(false) {
		c.SendState(EventOutputLocked)
		c.AbortCommand()
		return false
	}
	return true
}

// pulse opens the valve for PulseDuration microseconds, then closes
// it. In noblock mode the wait stage yields between slices.
func (m *Module) pulse() {
	c := m.core
	if c.Stage() == 1 {
		if !m.drive(m.openLevel) {
			return
		}
		c.AdvanceStage()
	}
	if c.Stage() == 2 {
		if !c.WaitForMicros(m.params.PulseDuration) {
			return
		}
		c.AdvanceStage()
	}
	if c.Stage() == 3 {
		if !m.drive(!m.openLevel) {
			return
		}
		c.CompleteCommand()
	}
}

// open latches the valve open.
func (m *Module) open() {
	if m.drive(m.openLevel) {
		m.core.CompleteCommand()
	}
}

// close latches the valve closed.
func (m *Module) close() {
	if m.drive(!m.openLevel) {
		m.core.CompleteCommand()
	}
}

// calibrate runs CalibrationCount open/close rounds back to back,
// paced on the device clock so the hardware keeps up. It blocks in
// place regardless of the noblock flag and completes once at the end.
func (m *Module) calibrate() {
	c := m.core
	open := time.Duration(m.params.PulseDuration) * time.Microsecond
	settle := time.Duration(m.params.CalibrationDelay) * time.Microsecond
	for i := uint16(0); i < m.params.CalibrationCount; i++ {
		if !m.drive(m.openLevel) {
			return
		}
		c.Clock().Sleep(open)
		if !m.drive(!m.openLevel) {
			return
		}
		c.Clock().Sleep(settle)
	}
	c.CompleteCommand()
}
