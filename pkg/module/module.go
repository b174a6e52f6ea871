// Package module defines the contract every hardware control unit
// implements and the shared execution core its commands run on.
package module

// Core status codes reported under an active command. Codes up to 50
// are reserved for the core, custom module events use 51-250.
const (
	StatusStandby              byte = 0
	StatusTransmissionError    byte = 1
	StatusCommandCompleted     byte = 2
	StatusCommandNotRecognized byte = 3
)

// Locks holds the runtime-wide output gates. The kernel owns and
// mutates them, modules consult them through the gated write helpers.
// Both gates engage by default so a freshly started controller drives
// no outputs until the host unlocks it.
type Locks struct {
	// ActionLock blocks writes to action pins.
	ActionLock bool
	// TTLLock blocks writes to TTL pins.
	TTLLock bool
}

// NewLocks creates Locks with both gates engaged.
func NewLocks() *Locks {
	return &Locks{ActionLock: true, TTLLock: true}
}

// Module is the uniform surface of a hardware control unit. Concrete
// modules hold a *Core and implement the hooks below; the kernel only
// ever talks to them through this interface.
type Module interface {
	// Core exposes the shared execution core.
	Core() *Core

	// Setup initializes the hardware and the runtime defaults of the
	// module. A returned error bricks the whole controller.
	Setup() error

	// RunCommand executes one slice of the active command. It returns
	// false only when the active command code is not recognized;
	// hardware faults are handled inside the command logic.
	RunCommand() bool

	// SetParameters extracts a received parameter payload into the
	// module's runtime configuration.
	SetParameters() error
}
