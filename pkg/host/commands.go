package host

import (
	"bytes"
	"context"
	"encoding/binary"
	"time"

	"github.com/robotalks/mcu.go/pkg/kernel"
	"github.com/robotalks/mcu.go/pkg/wire"
)

// SendCommand queues a one-off module command.
func (c *Client) SendCommand(typ, id, command byte, noblock bool) *Pending {
	return c.Do(&wire.OneOffModuleCommand{
		ModuleType: typ, ModuleID: id,
		Command: command, Noblock: noblock,
	})
}

// SendRepeated queues a module command re-armed every cycleDelay
// microseconds after it completes.
func (c *Client) SendRepeated(typ, id, command byte, noblock bool, cycleDelay uint32) *Pending {
	return c.Do(&wire.RepeatedModuleCommand{
		ModuleType: typ, ModuleID: id,
		Command: command, Noblock: noblock, CycleDelay: cycleDelay,
	})
}

// SendDequeue clears a module's queued command, letting whatever is
// in flight finish.
func (c *Client) SendDequeue(typ, id byte) *Pending {
	return c.Do(&wire.DequeueModuleCommand{ModuleType: typ, ModuleID: id})
}

// SendKernelCommand issues a kernel command by code.
func (c *Client) SendKernelCommand(command byte) *Pending {
	return c.Do(&wire.KernelCommand{Command: command})
}

// SendParameters packs a parameter struct little-endian and delivers
// it to a module. The struct layout must match what the module
// extracts.
func (c *Client) SendParameters(typ, id byte, params interface{}) (*Pending, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, params); err != nil {
		return nil, err
	}
	return c.Do(&wire.ModuleParameters{
		ModuleType: typ, ModuleID: id,
		Data: buf.Bytes(),
	}), nil
}

// SendLocks updates the controller's output gates.
func (c *Client) SendLocks(action, ttl bool) *Pending {
	return c.Do(&wire.KernelParameters{ActionLock: action, TTLLock: ttl})
}

// Reset asks the controller to run its setup sequence again.
func (c *Client) Reset() *Pending {
	return c.SendKernelCommand(kernel.CommandResetController)
}

// Identify asks the controller to report its id.
func (c *Client) Identify() *Pending {
	return c.SendKernelCommand(kernel.CommandIdentifyController)
}

// IdentifyModules asks the controller to report every managed
// module.
func (c *Client) IdentifyModules() *Pending {
	return c.SendKernelCommand(kernel.CommandIdentifyModules)
}

// EnableKeepalive arms the controller watchdog with a first tracked
// keepalive. Keep feeding it with a KeepaliveFeeder ticking faster
// than the controller's timeout.
func (c *Client) EnableKeepalive() *Pending {
	return c.SendKernelCommand(kernel.CommandKeepAlive)
}

// KeepaliveFeeder ticks untracked keepalives at a fixed interval.
type KeepaliveFeeder struct {
	Client   *Client
	Interval time.Duration
}

// Run implements Runnable.
func (f *KeepaliveFeeder) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// the tick itself is the signal, no ack wanted
			if err := f.Client.Send(&wire.KernelCommand{Command: kernel.CommandKeepAlive}); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
