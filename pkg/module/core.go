package module

import (
	"time"

	"github.com/robotalks/mcu.go/pkg/board"
	"github.com/robotalks/mcu.go/pkg/link"
	"github.com/robotalks/mcu.go/pkg/wire"
)

// Core is the execution state machine shared by all modules. At most
// one command is active at a time; the active command must end itself
// through CompleteCommand or AbortCommand before another can
// activate, and a command that never does deadlocks its module.
//
// All mutation happens on the runtime loop goroutine.
type Core struct {
	typ   byte
	id    byte
	port  *link.Port
	brd   board.Board
	clk   board.Clock
	locks *Locks

	activeCommand  byte
	stage          byte
	noblock        bool
	queuedCommand  byte
	queuedNoblock  bool
	queuedIsNew    bool
	repeat         bool
	repeatInterval uint32
	repeatMark     uint32
	delayMark      uint32
}

// NewCore creates the execution core of one module instance. The
// (typ, id) pair must be unique within a kernel.
func NewCore(typ, id byte, port *link.Port, brd board.Board, clk board.Clock, locks *Locks) *Core {
	return &Core{typ: typ, id: id, port: port, brd: brd, clk: clk, locks: locks}
}

// Type returns the module family code.
func (c *Core) Type() byte { return c.typ }

// ID returns the module instance code.
func (c *Core) ID() byte { return c.id }

// TypeID returns the combined module identity.
func (c *Core) TypeID() uint16 { return uint16(c.typ)<<8 | uint16(c.id) }

// Board returns the hardware the module drives.
func (c *Core) Board() board.Board { return c.brd }

// Clock returns the clock timers are measured against.
func (c *Core) Clock() board.Clock { return c.clk }

// Queue buffers a one-shot command. It replaces whatever command is
// queued and disarms recurrence.
func (c *Core) Queue(command byte, noblock bool) {
	c.queuedCommand = command
	c.queuedNoblock = noblock
	c.repeat = false
	c.repeatInterval = 0
	c.queuedIsNew = true
}

// QueueRecurrent buffers a command re-armed every interval
// microseconds after it completes.
func (c *Core) QueueRecurrent(command byte, noblock bool, interval uint32) {
	c.queuedCommand = command
	c.queuedNoblock = noblock
	c.repeat = true
	c.repeatInterval = interval
	c.queuedIsNew = true
}

// ClearQueue drops the buffered command and disarms recurrence. An
// in-flight command is not touched and finishes on its own.
func (c *Core) ClearQueue() {
	c.queuedCommand = 0
	c.queuedNoblock = false
	c.queuedIsNew = false
	c.repeat = false
	c.repeatInterval = 0
}

// ResolveActiveCommand ensures the module has a command to execute,
// preferring in-flight work over newly queued commands over recurrent
// re-arms. It reports whether there is one.
func (c *Core) ResolveActiveCommand() bool {
	if c.activeCommand != 0 {
		return true
	}
	if c.queuedCommand == 0 {
		return false
	}
	if c.queuedIsNew {
		c.activate()
		c.queuedIsNew = false
		return true
	}
	if c.repeat && c.sinceMicros(c.repeatMark) > c.repeatInterval {
		c.activate()
		return true
	}
	return false
}

func (c *Core) activate() {
	c.activeCommand = c.queuedCommand
	c.noblock = c.queuedNoblock
	c.stage = 1
	c.repeatMark = c.clk.Micros()
}

// CompleteCommand ends the active command. Completion is reported
// unless the command recurs and stays armed: recurrent commands
// report once, when they are dequeued or superseded. The re-arm
// interval of a recurrent command is measured from here.
func (c *Core) CompleteCommand() {
	if c.queuedIsNew || c.queuedCommand == 0 || !c.repeat {
		// uses the still-set active command code
		c.SendState(StatusCommandCompleted)
	}
	c.activeCommand = 0
	c.stage = 0
	c.repeatMark = c.clk.Micros()
	if !c.queuedIsNew && !c.repeat {
		c.ClearQueue()
	}
}

// AbortCommand ends the active command on an unrecoverable error. A
// recurrent command is also dequeued so it does not re-arm; a newly
// queued command survives.
func (c *Core) AbortCommand() {
	if !c.queuedIsNew {
		c.ClearQueue()
	}
	c.CompleteCommand()
}

// AdvanceStage moves the active command to its next stage and starts
// a fresh stage delay.
func (c *Core) AdvanceStage() {
	c.stage++
	c.delayMark = c.clk.Micros()
}

// Stage returns the stage of the active command, 0 when idle.
func (c *Core) Stage() byte {
	if c.activeCommand != 0 {
		return c.stage
	}
	return 0
}

// ActiveCommand returns the active command code, 0 when idle.
func (c *Core) ActiveCommand() byte {
	return c.activeCommand
}

// ResetExecution returns the execution state to defaults, aborting
// whatever was active without reporting.
func (c *Core) ResetExecution() {
	c.activeCommand = 0
	c.stage = 0
	c.noblock = false
	c.queuedCommand = 0
	c.queuedNoblock = false
	c.queuedIsNew = false
	c.repeat = false
	c.repeatInterval = 0
	c.repeatMark = c.clk.Micros()
	c.delayMark = c.clk.Micros()
}

// WaitForMicros delays the active command for d microseconds
// measured from the last stage advancement. In blocking mode it
// waits in place and returns true; in noblock mode it returns
// whether the delay has already passed, leaving the stage to resume
// next cycle.
func (c *Core) WaitForMicros(d uint32) bool {
	if !c.noblock {
		for {
			elapsed := c.sinceMicros(c.delayMark)
			if elapsed > d {
				return true
			}
			c.clk.Sleep(time.Duration(d-elapsed+1) * time.Microsecond)
		}
	}
	return c.sinceMicros(c.delayMark) >= d
}

func (c *Core) sinceMicros(mark uint32) uint32 {
	return c.clk.Micros() - mark
}

// SendData reports an event with a data object under the active
// command. Transmit failures fall back to the port's error path.
func (c *Core) SendData(event byte, proto wire.Prototype, obj interface{}) {
	data, err := proto.Pack(obj)
	if err != nil {
		c.port.ReportModuleError(c.typ, c.id, c.activeCommand, StatusTransmissionError)
		return
	}
	msg := &wire.ModuleData{
		ModuleType: c.typ,
		ModuleID:   c.id,
		Command:    c.activeCommand,
		Event:      event,
		Prototype:  proto,
		Object:     data,
	}
	if c.port.Send(msg) != nil {
		c.port.ReportModuleError(c.typ, c.id, c.activeCommand, StatusTransmissionError)
	}
}

// SendState reports an event without data under the active command.
func (c *Core) SendState(event byte) {
	msg := &wire.ModuleState{
		ModuleType: c.typ,
		ModuleID:   c.id,
		Command:    c.activeCommand,
		Event:      event,
	}
	if c.port.Send(msg) != nil {
		c.port.ReportModuleError(c.typ, c.id, c.activeCommand, StatusTransmissionError)
	}
}

// SendActivationError reports that the active command code matched no
// command of this module.
func (c *Core) SendActivationError() {
	c.SendState(StatusCommandNotRecognized)
}

// ExtractParameters unpacks the retained parameter payload into dest.
func (c *Core) ExtractParameters(dest interface{}) error {
	return c.port.ExtractParameters(dest)
}

// Locked reports whether the gate guarding a pin class is engaged.
// Pass true for the TTL gate, false for the action gate.
func (c *Core) Locked(ttl bool) bool {
	if ttl {
		return c.locks.TTLLock
	}
	return c.locks.ActionLock
}

// DigitalWriteGated drives a digital pin unless the matching gate in
// Locks is engaged. It returns the level actually driven: a locked
// pin is forced low. Callers driving a low level get false either
// way, so lock detection on inverted outputs goes through Locked.
func (c *Core) DigitalWriteGated(pin byte, high bool, ttl bool) bool {
	if c.Locked(ttl) {
		c.brd.DigitalWrite(pin, false)
		return false
	}
	c.brd.DigitalWrite(pin, high)
	return high
}

// AnalogWriteGated drives a PWM pin unless the matching gate in Locks
// is engaged. It returns the value actually driven: a locked pin is
// forced to 0.
func (c *Core) AnalogWriteGated(pin, value byte, ttl bool) byte {
	if c.Locked(ttl) {
		c.brd.AnalogWrite(pin, 0)
		return 0
	}
	c.brd.AnalogWrite(pin, value)
	return value
}

// DigitalReadPooled reads a digital pin, averaging pool samples with
// half-up rounding. Pool values below 2 read once.
func (c *Core) DigitalReadPooled(pin, pool byte) bool {
	if pool < 2 {
		return c.brd.DigitalRead(pin)
	}
	var accumulated uint32
	for i := byte(0); i < pool; i++ {
		if c.brd.DigitalRead(pin) {
			accumulated++
		}
	}
	return (accumulated+uint32(pool)/2)/uint32(pool) != 0
}

// AnalogReadPooled reads an analog pin, averaging pool samples with
// half-up rounding. Pool values below 2 read once.
func (c *Core) AnalogReadPooled(pin, pool byte) uint16 {
	if pool < 2 {
		return c.brd.AnalogRead(pin)
	}
	var accumulated uint32
	for i := byte(0); i < pool; i++ {
		accumulated += uint32(c.brd.AnalogRead(pin))
	}
	return uint16((accumulated + uint32(pool)/2) / uint32(pool))
}
