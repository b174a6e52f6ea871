// Package connector assembles the host-side environment reaching one
// controller over a device URL.
package connector

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strconv"

	"github.com/robotalks/mcu.go/pkg/env"
	fx "github.com/robotalks/mcu.go/pkg/framework"
	"github.com/robotalks/mcu.go/pkg/host"
	"github.com/robotalks/mcu.go/pkg/link"
	"github.com/robotalks/mcu.go/pkg/link/mqtt"
	"github.com/robotalks/mcu.go/pkg/link/stream"
	"github.com/robotalks/mcu.go/pkg/link/websocket"
)

// Config provides common options to reach a controller.
type Config struct {
	// DeviceURL locates the controller link.
	// e.g. tcp://host:port, ws://host:port/path,
	// mqtt://host:port/topic-prefix, serial:///dev/ttyUSB0?baud=115200
	DeviceURL string

	// ID addresses the controller. Only MQTT links use it, to select
	// the topic pair. Defaults to the id a controller on this machine
	// derives for itself.
	ID uint
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
	flag.StringVar(&defaultConfig.DeviceURL, "device", defaultConfig.DeviceURL, "Device link URL.")
	flag.UintVar(&defaultConfig.ID, "id", defaultConfig.ID, "Controller ID (0-255), selects MQTT topics.")
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

// Conn is a connected controller link: the client plus the runnables
// feeding it.
type Conn struct {
	Client    *host.Client
	Transport link.PacketReadWriter

	runnables []fx.Runnable
	closers   []io.Closer
}

// Connect dials the device URL and builds a client over it.
func (c *Config) Connect() (*Conn, error) {
	if c.ID > 0xff {
		return nil, fmt.Errorf("controller id out of range: %d", c.ID)
	}
	u, err := url.Parse(c.DeviceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid device URL: %v", err)
	}
	conn := &Conn{}
	switch u.Scheme {
	case "tcp", "serial":
		rw, err := stream.Dial(c.DeviceURL)
		if err != nil {
			return nil, err
		}
		conn.Transport = rw
		conn.closers = append(conn.closers, rw)
	case "ws":
		rw, err := websocket.Dial(c.DeviceURL)
		if err != nil {
			return nil, err
		}
		conn.Transport = rw
		conn.closers = append(conn.closers, rw)
	case "mqtt":
		q, err := mqtt.NewQueueFromURL(c.DeviceURL)
		if err != nil {
			return nil, err
		}
		token := q.Connect()
		token.Wait()
		if err = token.Error(); err != nil {
			return nil, err
		}
		rw := mqtt.NewPacketReadWriter(q).ForConnector(strconv.Itoa(int(c.ID)))
		conn.Transport = rw
		conn.runnables = append(conn.runnables, rw)
		conn.closers = append(conn.closers, q)
	default:
		return nil, fmt.Errorf("unknown device URL scheme: %q", u.Scheme)
	}
	conn.Client = host.NewClient(conn.Transport)
	conn.runnables = append(conn.runnables, conn.Client.Pump(conn.Transport))
	return conn, nil
}

// MustConnect connects and fails on error.
func (c *Config) MustConnect() *Conn {
	conn, err := c.Connect()
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// AddToLoop implements framework.LoopAdder.
func (c *Conn) AddToLoop(lp *fx.Loop) {
	lp.AddRunnable(c.runnables...)
}

// Close releases the transport.
func (c *Conn) Close() error {
	errs := &fx.AggregatedError{}
	for _, closer := range c.closers {
		errs.Add(closer.Close())
	}
	return errs.Aggregate()
}
