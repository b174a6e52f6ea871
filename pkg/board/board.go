// Package board abstracts the hardware surface the runtime drives:
// digital/analog pins, the built-in LED and the microsecond time base.
package board

import "time"

// PinMode configures the direction of a pin.
type PinMode int

// Pin directions.
const (
	ModeInput PinMode = iota
	ModeOutput
)

// Board provides pin level hardware access.
type Board interface {
	// PinMode configures a pin direction.
	PinMode(pin byte, mode PinMode)
	// DigitalWrite drives a digital output pin.
	DigitalWrite(pin byte, high bool)
	// DigitalRead samples a digital input pin.
	DigitalRead(pin byte) bool
	// AnalogWrite drives a PWM capable pin with a duty cycle 0-255.
	AnalogWrite(pin byte, value byte)
	// AnalogRead samples an analog input pin.
	AnalogRead(pin byte) uint16
	// LED reports the built-in LED pin.
	LED() byte
}

// Clock provides the time base for command timers.
type Clock interface {
	// Micros reports microseconds since an arbitrary origin,
	// wrapping at the uint32 boundary.
	Micros() uint32
	// Sleep blocks the caller for the duration.
	Sleep(d time.Duration)
}

// WallClock implements Clock on the system timer.
type WallClock struct {
	origin time.Time
}

// NewWallClock creates a WallClock with the origin at now.
func NewWallClock() *WallClock {
	return &WallClock{origin: time.Now()}
}

// Micros implements Clock.
func (c *WallClock) Micros() uint32 {
	return uint32(time.Since(c.origin) / time.Microsecond)
}

// Sleep implements Clock.
func (c *WallClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
