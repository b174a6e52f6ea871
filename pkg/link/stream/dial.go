package stream

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	serial "go.bug.st/serial.v1"
)

// DefaultBaudRate is used when a serial URL carries no baud parameter.
const DefaultBaudRate = 115200

// Dial connects a byte stream to a device. Supported URLs:
//
//	tcp://host:port
//	serial:///dev/ttyUSB0?baud=115200
func Dial(deviceURL string) (*ReadWriter, error) {
	u, err := url.Parse(deviceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid device URL: %v", err)
	}
	switch u.Scheme {
	case "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return New(conn), nil
	case "serial":
		if u.Path == "" {
			return nil, fmt.Errorf("no serial device in URL: %q", deviceURL)
		}
		mode := &serial.Mode{BaudRate: DefaultBaudRate}
		if val := u.Query().Get("baud"); val != "" {
			if mode.BaudRate, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud rate: %v", err)
			}
		}
		port, err := serial.Open(u.Path, mode)
		if err != nil {
			return nil, err
		}
		return New(port), nil
	default:
		return nil, fmt.Errorf("unknown device URL scheme: %q", u.Scheme)
	}
}
