// Package kernel schedules communication and module command execution
// on a single runtime loop: every iteration drains received messages,
// gives each module one execution slice, then services the keepalive
// watchdog.
package kernel

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mcu.go/pkg/board"
	"github.com/robotalks/mcu.go/pkg/framework"
	"github.com/robotalks/mcu.go/pkg/link"
	"github.com/robotalks/mcu.go/pkg/module"
	"github.com/robotalks/mcu.go/pkg/wire"
)

// Kernel event codes reported to the host.
const (
	StatusStandby                byte = 0
	StatusSetupComplete          byte = 1
	StatusModuleSetupError       byte = 2
	StatusReceptionError         byte = 3
	StatusTransmissionError      byte = 4
	StatusInvalidMessageProtocol byte = 5
	StatusModuleParametersSet    byte = 6
	StatusModuleParametersError  byte = 7
	StatusCommandNotRecognized   byte = 8
	StatusTargetModuleNotFound   byte = 9
	StatusKeepAliveTimeout       byte = 10
)

// Kernel command codes. ReceiveData marks reports emitted while
// receiving and is not addressable by the host.
const (
	CommandStandby            byte = 0
	CommandReceiveData        byte = 1
	CommandResetController    byte = 2
	CommandIdentifyController byte = 3
	CommandIdentifyModules    byte = 4
	CommandKeepAlive          byte = 5
)

// MaxKeepaliveInterval bounds Config.KeepaliveInterval: elapsed time
// is measured on the wrapping 32-bit microsecond clock, and a longer
// interval would silently truncate into a shorter one.
const MaxKeepaliveInterval = math.MaxUint32 * time.Microsecond

// State is the lifecycle state of the kernel.
type State int

// Lifecycle states.
const (
	StateUninitialized State = iota
	StateSettingUp
	StateRunning
	StateBricked
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSettingUp:
		return "setting-up"
	case StateRunning:
		return "running"
	case StateBricked:
		return "bricked"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Config assembles a Kernel.
type Config struct {
	// ControllerID identifies this controller to the host.
	ControllerID byte
	// Port is the transmit and decode side of the link.
	Port *link.Port
	// Board is the hardware surface. The kernel owns the built-in LED.
	Board board.Board
	// Clock is the time base. Defaults to the wall clock.
	Clock board.Clock
	// Locks are the hardware write gates shared with every module
	// core. Defaults to both gates engaged.
	Locks *module.Locks
	// KeepaliveInterval is the longest silence tolerated between host
	// keepalive commands once the watchdog is armed. Zero keeps the
	// watchdog permanently disarmed. The device clock counts
	// microseconds in 32 bits, so the interval must stay under
	// MaxKeepaliveInterval.
	KeepaliveInterval time.Duration
	// Modules are the managed modules, in execution order.
	Modules []module.Module
}

// Kernel coordinates the managed modules over one link. It is owned
// by the loop goroutine and is not safe for concurrent use.
type Kernel struct {
	id      byte
	port    *link.Port
	brd     board.Board
	clk     board.Clock
	locks   *module.Locks
	modules []module.Module

	state   State
	command byte

	keepalive       time.Duration
	keepaliveMicros uint32
	keepaliveArmed  bool
	keepaliveMark   uint32
}

// New creates a Kernel over the configured modules.
func New(cfg Config) (*Kernel, error) {
	if cfg.Port == nil {
		return nil, errors.New("link port required")
	}
	if cfg.Board == nil {
		return nil, errors.New("board required")
	}
	if len(cfg.Modules) == 0 {
		return nil, errors.New("at least one module required")
	}
	if cfg.KeepaliveInterval > MaxKeepaliveInterval {
		return nil, fmt.Errorf("keepalive interval %v exceeds the microsecond clock range (max %v)",
			cfg.KeepaliveInterval, MaxKeepaliveInterval)
	}
	seen := make(map[uint16]bool)
	for _, m := range cfg.Modules {
		core := m.Core()
		if seen[core.TypeID()] {
			return nil, fmt.Errorf("duplicate module %d.%d", core.Type(), core.ID())
		}
		seen[core.TypeID()] = true
	}
	clk := cfg.Clock
	if clk == nil {
		clk = board.NewWallClock()
	}
	locks := cfg.Locks
	if locks == nil {
		locks = module.NewLocks()
	}
	return &Kernel{
		id:              cfg.ControllerID,
		port:            cfg.Port,
		brd:             cfg.Board,
		clk:             clk,
		locks:           locks,
		modules:         cfg.Modules,
		keepalive:       cfg.KeepaliveInterval,
		keepaliveMicros: uint32(cfg.KeepaliveInterval / time.Microsecond),
	}, nil
}

// State reports the lifecycle state. Like everything else on the
// kernel it is meant for the loop goroutine.
func (k *Kernel) State() State {
	return k.state
}

// Setup initializes every module in order, then the kernel-owned
// hardware. A module setup failure bricks the controller: the failing
// module is reported, later modules stay untouched and only a reset
// leaves the state.
func (k *Kernel) Setup() {
	k.state = StateSettingUp
	k.command = CommandResetController
	for _, m := range k.modules {
		core := m.Core()
		if err := m.Setup(); err != nil {
			glog.Errorf("module %d.%d setup: %v", core.Type(), core.ID(), err)
			k.sendData(StatusModuleSetupError, wire.PrototypeTwoUint8s, [2]uint8{core.Type(), core.ID()})
			k.state = StateBricked
			return
		}
		core.ResetExecution()
	}
	k.setupKernel()
	k.state = StateRunning
	k.sendState(StatusSetupComplete)
	glog.Infof("controller %d running with %d modules", k.id, len(k.modules))
}

// setupKernel resets the hardware and runtime state the kernel itself
// owns. Runs after all modules set up successfully.
func (k *Kernel) setupKernel() {
	led := k.brd.LED()
	k.brd.PinMode(led, board.ModeOutput)
	k.brd.DigitalWrite(led, false)
	k.keepaliveArmed = false
	k.keepaliveMark = k.clk.Micros()
	*k.locks = *module.NewLocks()
}

// Execute gives every module one command slice, in order. Commands
// the module does not recognize are reported on its behalf. Returns
// whether any command is still in flight.
func (k *Kernel) Execute() bool {
	active := false
	for _, m := range k.modules {
		core := m.Core()
		if !core.ResolveActiveCommand() {
			continue
		}
		if !m.RunCommand() {
			core.SendActivationError()
		}
		if core.ActiveCommand() != 0 {
			active = true
		}
	}
	return active
}

// Maintain services the keepalive watchdog. A missed deadline is
// reported and resets the whole runtime.
func (k *Kernel) Maintain() {
	if !k.keepaliveArmed {
		return
	}
	if k.clk.Micros()-k.keepaliveMark > k.keepaliveMicros {
		glog.Warningf("keepalive timeout after %v, resetting", k.keepalive)
		k.sendData(StatusKeepAliveTimeout, wire.PrototypeOneUint32, uint32(k.keepalive/time.Millisecond))
		k.Setup()
	}
}

// blinkFault runs one period of the bricked indicator pattern.
func (k *Kernel) blinkFault() {
	led := k.brd.LED()
	k.brd.DigitalWrite(led, true)
	k.clk.Sleep(2 * time.Second)
	k.brd.DigitalWrite(led, false)
	k.clk.Sleep(2 * time.Second)
}

// AddToLoop implements framework.LoopAdder. The kernel splits one
// runtime cycle over three priority levels so link servicing always
// precedes command execution within an iteration.
func (k *Kernel) AddToLoop(lp *framework.Loop) {
	lp.AddController(framework.PrLvReceive, framework.ControlFunc(k.receiveControl))
	lp.AddController(framework.PrLvExecute, framework.ControlFunc(k.executeControl))
	lp.AddController(framework.PrLvMaintain, framework.ControlFunc(k.maintainControl))
}

func (k *Kernel) receiveControl(ctl framework.ControlContext) error {
	if k.state == StateUninitialized {
		k.Setup()
	}
	if k.state == StateBricked {
		k.dropMessages(ctl)
		k.blinkFault()
		return nil
	}
	k.command = CommandReceiveData
	ctl.Messages().ProcessMessages(framework.ProcessMessageFunc(func(mc framework.MessageProcessingContext) {
		switch msg := mc.CurrentMessage().(type) {
		case *PayloadMsg:
			mc.MessageTaken()
			k.Dispatch(msg.Payload)
			if k.state == StateBricked {
				mc.StopProcessing()
			}
		case *FaultMsg:
			mc.MessageTaken()
			k.NoteFault(msg.CodecStatus)
		}
	}))
	return nil
}

func (k *Kernel) executeControl(ctl framework.ControlContext) error {
	if k.state != StateRunning {
		return nil
	}
	if k.Execute() {
		// A command is mid-flight: keep iterating without waiting
		// for the next tick so staged commands resume promptly.
		ctl.TriggerNext()
	}
	return nil
}

func (k *Kernel) maintainControl(framework.ControlContext) error {
	if k.state != StateRunning {
		return nil
	}
	k.Maintain()
	return nil
}

func (k *Kernel) dropMessages(ctl framework.ControlContext) {
	ctl.Messages().ProcessMessages(framework.ProcessMessageFunc(func(mc framework.MessageProcessingContext) {
		switch mc.CurrentMessage().(type) {
		case *PayloadMsg, *FaultMsg:
			mc.MessageTaken()
		}
	}))
}
