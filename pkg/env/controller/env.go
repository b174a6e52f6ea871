// Package controller assembles the runtime environment of one
// controller: a simulated board, the link transport named by a device
// URL and the kernel over both.
package controller

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/mcu.go/pkg/board"
	"github.com/robotalks/mcu.go/pkg/env"
	fx "github.com/robotalks/mcu.go/pkg/framework"
	"github.com/robotalks/mcu.go/pkg/kernel"
	"github.com/robotalks/mcu.go/pkg/link"
	"github.com/robotalks/mcu.go/pkg/link/mqtt"
	"github.com/robotalks/mcu.go/pkg/link/stream"
	"github.com/robotalks/mcu.go/pkg/link/websocket"
	"github.com/robotalks/mcu.go/pkg/module"
)

// Config provides common options to set up an env for controllers.
type Config struct {
	// ID is the one-byte controller id.
	ID uint

	// DeviceURL specifies where the controller link is exposed.
	// e.g. tcp://host:port (listen), ws://host:port/path (serve),
	// mqtt://host:port/topic-prefix, serial:///dev/ttyUSB0?baud=115200
	DeviceURL string

	// Keepalive is the watchdog timeout once the host arms it.
	// Zero keeps the watchdog disabled.
	Keepalive time.Duration
}

var defaultConfig = Config{
	DeviceURL: "tcp://127.0.0.1:9600",
}

func init() {
	defaultConfig.ID = uint(env.ControllerID())
	if val := os.Getenv("MCU_URL"); val != "" {
		defaultConfig.DeviceURL = val
	}
	if val := os.Getenv("MCU_ID"); val != "" {
		id, err := strconv.ParseUint(val, 0, 8)
		if err != nil {
			log.Fatalf("invalid MCU_ID: %v", err)
		}
		defaultConfig.ID = uint(id)
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.UintVar(&defaultConfig.ID, "id", defaultConfig.ID, "Controller ID (0-255).")
	flag.StringVar(&defaultConfig.DeviceURL, "device", defaultConfig.DeviceURL, "Device link URL.")
	flag.DurationVar(&defaultConfig.Keepalive, "keepalive", defaultConfig.Keepalive, "Keepalive watchdog timeout, 0 disables.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the assembled environment of one controller.
type Env struct {
	Config *Config
	Board  board.Board
	Clock  board.Clock
	Locks  *module.Locks
	Port   *link.Port

	// Transport is the frame transport behind Port.
	Transport link.PacketReadWriter

	runnables []fx.Runnable
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if c.ID > 0xff {
		return nil, fmt.Errorf("controller id out of range: %d", c.ID)
	}
	e := &Env{
		Config: c,
		Board:  board.NewSim(),
		Clock:  board.NewWallClock(),
		Locks:  module.NewLocks(),
	}
	if err := e.setupTransport(); err != nil {
		return nil, err
	}
	e.Port = link.NewPort(e.Transport).WithBoard(e.Board)
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

func (e *Env) setupTransport() error {
	u, err := url.Parse(e.Config.DeviceURL)
	if err != nil {
		return fmt.Errorf("invalid device URL: %v", err)
	}
	switch u.Scheme {
	case "tcp":
		rw, err := stream.Listen(u.Host)
		if err != nil {
			return err
		}
		e.Transport = rw
		e.runnables = append(e.runnables, rw)
	case "serial":
		rw, err := stream.Dial(e.Config.DeviceURL)
		if err != nil {
			return err
		}
		e.Transport = rw
	case "ws":
		srv, err := websocket.NewServer(u.Host)
		if err != nil {
			return err
		}
		e.Transport = srv.Endpoint
		e.runnables = append(e.runnables, srv)
	case "mqtt":
		q, err := mqtt.NewQueueFromURL(e.Config.DeviceURL)
		if err != nil {
			return err
		}
		token := q.Connect()
		token.Wait()
		if err = token.Error(); err != nil {
			return err
		}
		rw := mqtt.NewPacketReadWriter(q).ForController(strconv.Itoa(int(e.Config.ID)))
		e.Transport = rw
		e.runnables = append(e.runnables, rw)
	default:
		return fmt.Errorf("unknown device URL scheme: %q", u.Scheme)
	}
	return nil
}

// NewCore creates a module core bound to the env hardware and link.
func (e *Env) NewCore(typ, id byte) *module.Core {
	return module.NewCore(typ, id, e.Port, e.Board, e.Clock, e.Locks)
}

// NewKernel creates the kernel over the env link and wires it as the
// receive handler added to the loop by AddToLoop.
func (e *Env) NewKernel(mods ...module.Module) (*kernel.Kernel, error) {
	k, err := kernel.New(kernel.Config{
		ControllerID:      byte(e.Config.ID),
		Port:              e.Port,
		Board:             e.Board,
		Clock:             e.Clock,
		Locks:             e.Locks,
		KeepaliveInterval: e.Config.Keepalive,
		Modules:           mods,
	})
	if err != nil {
		return nil, err
	}
	pump := link.NewPump(e.Transport, k)
	pump.Faults = k
	e.runnables = append(e.runnables, pump)
	return k, nil
}

// MustNewKernel creates the kernel and fails on error.
func (e *Env) MustNewKernel(mods ...module.Module) *kernel.Kernel {
	k, err := e.NewKernel(mods...)
	if err != nil {
		log.Fatalln(err)
	}
	return k
}

// AddToLoop implements framework.LoopAdder. It adds the transport and
// receive pump runnables; the kernel adds its own loop controllers.
func (e *Env) AddToLoop(lp *fx.Loop) {
	lp.AddRunnable(e.runnables...)
}
