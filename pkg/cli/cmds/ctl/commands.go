// Package ctl provides shell commands driving a connected
// controller: module commands, parameters, kernel services and a
// report watcher.
package ctl

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mcu.go/pkg/cli/sh"
	"github.com/robotalks/mcu.go/pkg/host"
)

// DefaultKeepalive is the feeder interval when none is given.
const DefaultKeepalive = time.Second

// DefaultWatch is the watch window when none is given.
const DefaultWatch = 5 * time.Second

func parseByte(c *ishell.Context, name, val string) (byte, bool) {
	n, err := strconv.ParseUint(val, 0, 8)
	if err != nil {
		c.Err(fmt.Errorf("Invalid %s: %v", name, err))
		return 0, false
	}
	return byte(n), true
}

func parseTarget(c *ishell.Context) (typ, id byte, ok bool) {
	if typ, ok = parseByte(c, "TYPE", c.Args[0]); !ok {
		return
	}
	id, ok = parseByte(c, "ID", c.Args[1])
	return
}

func parseNoblock(c *ishell.Context, val string) (bool, bool) {
	if val == "noblock" {
		return true, true
	}
	c.Err(fmt.Errorf("Unexpected argument: %q", val))
	return false, false
}

// drainReports prints reports until the deadline, or until max
// reports arrived when max is positive.
func drainReports(c *ishell.Context, d time.Duration, max int) int {
	client := sh.ClientFrom(c)
	timer := time.NewTimer(d)
	defer timer.Stop()
	count := 0
	for {
		select {
		case msg := <-client.Reports():
			sh.PrintReport(c, msg)
			if count++; max > 0 && count >= max {
				return count
			}
		case <-timer.C:
			return count
		}
	}
}

var (
	// CommandCmd queues a one-off module command.
	CommandCmd = ishell.Cmd{
		Name:    "command",
		Aliases: []string{"cmd"},
		Help:    "TYPE ID CODE [noblock]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 3 {
				c.Err(fmt.Errorf("TYPE ID CODE required"))
				return
			}
			typ, id, ok := parseTarget(c)
			if !ok {
				return
			}
			code, ok := parseByte(c, "CODE", c.Args[2])
			if !ok {
				return
			}
			var noblock bool
			if len(c.Args) > 3 {
				if noblock, ok = parseNoblock(c, c.Args[3]); !ok {
					return
				}
			}
			sh.Await(c, sh.ClientFrom(c).SendCommand(typ, id, code, noblock))
		}),
	}

	// RepeatCmd queues a recurrent module command.
	RepeatCmd = ishell.Cmd{
		Name:    "repeat",
		Aliases: []string{"rep"},
		Help:    "TYPE ID CODE CYCLE_US [noblock]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 4 {
				c.Err(fmt.Errorf("TYPE ID CODE CYCLE_US required"))
				return
			}
			typ, id, ok := parseTarget(c)
			if !ok {
				return
			}
			code, ok := parseByte(c, "CODE", c.Args[2])
			if !ok {
				return
			}
			cycle, err := strconv.ParseUint(c.Args[3], 0, 32)
			if err != nil {
				c.Err(fmt.Errorf("Invalid CYCLE_US: %v", err))
				return
			}
			var noblock bool
			if len(c.Args) > 4 {
				if noblock, ok = parseNoblock(c, c.Args[4]); !ok {
					return
				}
			}
			sh.Await(c, sh.ClientFrom(c).SendRepeated(typ, id, code, noblock, uint32(cycle)))
		}),
	}

	// DequeueCmd clears the queued command of a module.
	DequeueCmd = ishell.Cmd{
		Name:    "dequeue",
		Aliases: []string{"dq"},
		Help:    "TYPE ID",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("TYPE ID required"))
				return
			}
			typ, id, ok := parseTarget(c)
			if !ok {
				return
			}
			sh.Await(c, sh.ClientFrom(c).SendDequeue(typ, id))
		}),
	}

	// ParamsCmd replaces the dynamic parameters of a module.
	ParamsCmd = ishell.Cmd{
		Name:    "params",
		Aliases: []string{"p"},
		Help:    "TYPE ID HEXDATA (little-endian parameter block)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 3 {
				c.Err(fmt.Errorf("TYPE ID HEXDATA required"))
				return
			}
			typ, id, ok := parseTarget(c)
			if !ok {
				return
			}
			data, err := hex.DecodeString(c.Args[2])
			if err != nil {
				c.Err(fmt.Errorf("Invalid HEXDATA: %v", err))
				return
			}
			p, err := sh.ClientFrom(c).SendParameters(typ, id, data)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Await(c, p)
		}),
	}

	// LocksCmd sets the hardware write gates.
	LocksCmd = ishell.Cmd{
		Name: "locks",
		Help: "ACTION TTL (true|false each)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("ACTION TTL required"))
				return
			}
			action, err := strconv.ParseBool(c.Args[0])
			if err != nil {
				c.Err(fmt.Errorf("Invalid ACTION: %v", err))
				return
			}
			ttl, err := strconv.ParseBool(c.Args[1])
			if err != nil {
				c.Err(fmt.Errorf("Invalid TTL: %v", err))
				return
			}
			sh.Await(c, sh.ClientFrom(c).SendLocks(action, ttl))
		}),
	}

	// ResetCmd reruns the controller setup sequence.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.Await(c, sh.ClientFrom(c).Reset())
		}),
	}

	// IdentifyCmd asks the controller for its id.
	IdentifyCmd = ishell.Cmd{
		Name:    "identify",
		Aliases: []string{"id"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if sh.WaitAck(c, sh.ClientFrom(c).Identify()) != nil {
				return
			}
			if drainReports(c, sh.AckTimeout, 1) == 0 {
				c.Err(fmt.Errorf("no identification received"))
			}
		}),
	}

	// ModulesCmd lists the managed modules.
	ModulesCmd = ishell.Cmd{
		Name:    "modules",
		Aliases: []string{"mods"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if sh.WaitAck(c, sh.ClientFrom(c).IdentifyModules()) != nil {
				return
			}
			if drainReports(c, sh.AckTimeout, 0) == 0 {
				c.Err(fmt.Errorf("no identification received"))
			}
		}),
	}

	// KeepaliveCmd arms the controller watchdog and keeps feeding it
	// for the rest of the session.
	KeepaliveCmd = ishell.Cmd{
		Name:    "keepalive",
		Aliases: []string{"ka"},
		Help:    "[INTERVAL] (feeder tick, default 1s, must beat the controller timeout)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			interval := DefaultKeepalive
			if len(c.Args) > 0 {
				d, err := time.ParseDuration(c.Args[0])
				if err != nil {
					c.Err(fmt.Errorf("Invalid INTERVAL: %v", err))
					return
				}
				interval = d
			}
			s := sh.ShellFrom(c)
			if sh.Await(c, s.Sess.Conn.Client.EnableKeepalive()) != nil {
				return
			}
			if s.Sess.FeederCancel != nil {
				s.Sess.FeederCancel()
			}
			ctx, cancel := context.WithCancel(s.Sess.Ctx)
			s.Sess.FeederCancel = cancel
			feeder := &host.KeepaliveFeeder{Client: s.Sess.Conn.Client, Interval: interval}
			go feeder.Run(ctx)
		}),
	}

	// WatchCmd streams controller reports for a while.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[DURATION] (default 5s)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			window := DefaultWatch
			if len(c.Args) > 0 {
				d, err := time.ParseDuration(c.Args[0])
				if err != nil {
					c.Err(fmt.Errorf("Invalid DURATION: %v", err))
					return
				}
				window = d
			}
			if drainReports(c, window, 0) == 0 && !sh.ShellFrom(c).OutputJSON {
				c.Println("No reports")
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&CommandCmd,
		&RepeatCmd,
		&DequeueCmd,
		&ParamsCmd,
		&LocksCmd,
		&ResetCmd,
		&IdentifyCmd,
		&ModulesCmd,
		&KeepaliveCmd,
		&WatchCmd,
	)
}
