// Package brake controls a brake over one pwm-capable pin. Engage and
// release are digital writes; braking power in between is a pwm duty
// cycle.
package brake

import (
	"fmt"

	"github.com/robotalks/mcu.go/pkg/board"
	"github.com/robotalks/mcu.go/pkg/module"
)

// Commands accepted by the module.
const (
	CommandEnable   byte = 1
	CommandDisable  byte = 2
	CommandSetPower byte = 3
)

// EventOutputLocked reports an actuation refused by the action gate.
const EventOutputLocked byte = 51

// DefaultPWMStrength is restored by Setup: full engagement.
const DefaultPWMStrength uint8 = 255

// Params is the host-tunable configuration, received packed
// little-endian. PWMStrength is read host-side up: 255 always means
// fully engaged, whatever the polarity.
type Params struct {
	PWMStrength uint8
}

// Config fixes the wiring of one brake.
type Config struct {
	// Pin is the pwm-capable control pin.
	Pin byte
	// NormallyEngaged selects polarity: a normally engaged brake
	// holds on low and releases on high.
	NormallyEngaged bool
	// StartEngaged selects the state Setup drives.
	StartEngaged bool
}

// Module is one brake actuation unit.
type Module struct {
	core *module.Core
	pin  byte
	// level that engages the brake; the inverse releases it
	engageLevel  bool
	startEngaged bool

	params Params
}

// New creates a brake module with the given wiring.
func New(core *module.Core, cfg Config) (*Module, error) {
	if led := core.Board().LED(); cfg.Pin == led {
		return nil, fmt.Errorf("brake: pin %d is reserved for the led", led)
	}
	return &Module{
		core:         core,
		pin:          cfg.Pin,
		engageLevel:  !cfg.NormallyEngaged,
		startEngaged: cfg.StartEngaged,
	}, nil
}

// Core exposes the shared execution core.
func (m *Module) Core() *module.Core { return m.core }

// Setup configures the pin, drives the configured start state and
// restores the default strength. The start state is written raw: it
// must reach the pin while the gates are still engaged.
func (m *Module) Setup() error {
	brd := m.core.Board()
	brd.PinMode(m.pin, board.ModeOutput)
	level := m.engageLevel
	if !m.startEngaged {
		level = !m.engageLevel
	}
	brd.DigitalWrite(m.pin, level)
	m.params = Params{PWMStrength: DefaultPWMStrength}
	return nil
}

// SetParameters extracts a packed Params payload.
func (m *Module) SetParameters() error {
	return m.core.ExtractParameters(&m.params)
}

// RunCommand executes one slice of the active command.
func (m *Module) RunCommand() bool {
	switch m.core.ActiveCommand() {
	case CommandEnable:
		if m.drive(m.engageLevel) {
			m.core.CompleteCommand()
		}
	case CommandDisable:
		if m.drive(!m.engageLevel) {
			m.core.CompleteCommand()
		}
	case CommandSetPower:
		m.setPower()
	default:
		return false
	}
	return true
}

// drive latches the brake at a digital level through the action
// gate. On lock the gate still forces the pin low; the command
// reports OutputLocked and aborts so a held brake does not flap
// once unlocked.
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

// setPower drives PWMStrength as a duty cycle, inverted on normally
// engaged wiring so 255 keeps meaning fully engaged.
func (m *Module) setPower() {
	c := m.core
	value := m.params.PWMStrength
	if !m.engageLevel {
		// normally engaged wiring, duty is inverse to holding force
		value = 255 - value
	}
	c.AnalogWriteGated(m.pin, value, false)
	if c.Locked(false) {
		c.SendState(EventOutputLocked)
		c.AbortCommand()
		return
	}
	c.CompleteCommand()
}
