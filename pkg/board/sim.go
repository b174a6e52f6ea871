package board

import (
	"sync"
	"time"
)

// DefaultLEDPin is the built-in LED pin of the simulated board.
const DefaultLEDPin byte = 13

// Sim is an in-memory board for tests and host-side runs. Input pins
// can be scripted with sample sequences; output pins can be inspected
// from another goroutine.
type Sim struct {
	LEDPin byte

	lock      sync.Mutex
	modes     map[byte]PinMode
	digital   map[byte]bool
	analog    map[byte]byte
	digitalIn map[byte][]bool
	analogIn  map[byte][]uint16
}

// NewSim creates a Sim with the default LED pin.
func NewSim() *Sim {
	return &Sim{
		LEDPin:    DefaultLEDPin,
		modes:     make(map[byte]PinMode),
		digital:   make(map[byte]bool),
		analog:    make(map[byte]byte),
		digitalIn: make(map[byte][]bool),
		analogIn:  make(map[byte][]uint16),
	}
}

// PinMode implements Board.
func (s *Sim) PinMode(pin byte, mode PinMode) {
	s.lock.Lock()
	s.modes[pin] = mode
	s.lock.Unlock()
}

// DigitalWrite implements Board.
func (s *Sim) DigitalWrite(pin byte, high bool) {
	s.lock.Lock()
	s.digital[pin] = high
	s.lock.Unlock()
}

// DigitalRead implements Board. Scripted samples are consumed first,
// the last one sticks; unscripted pins read their written state.
func (s *Sim) DigitalRead(pin byte) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if samples := s.digitalIn[pin]; len(samples) > 0 {
		v := samples[0]
		if len(samples) > 1 {
			s.digitalIn[pin] = samples[1:]
		}
		return v
	}
	return s.digital[pin]
}

// AnalogWrite implements Board.
func (s *Sim) AnalogWrite(pin byte, value byte) {
	s.lock.Lock()
	s.analog[pin] = value
	s.lock.Unlock()
}

// AnalogRead implements Board. Scripted samples are consumed first,
// the last one sticks; unscripted pins read zero.
func (s *Sim) AnalogRead(pin byte) uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	samples := s.analogIn[pin]
	if len(samples) == 0 {
		return 0
	}
	v := samples[0]
	if len(samples) > 1 {
		s.analogIn[pin] = samples[1:]
	}
	return v
}

// LED implements Board.
func (s *Sim) LED() byte {
	return s.LEDPin
}

// FeedDigital scripts a digital input pin with samples.
func (s *Sim) FeedDigital(pin byte, samples ...bool) {
	s.lock.Lock()
	s.digitalIn[pin] = append(s.digitalIn[pin], samples...)
	s.lock.Unlock()
}

// FeedAnalog scripts an analog input pin with samples.
func (s *Sim) FeedAnalog(pin byte, samples ...uint16) {
	s.lock.Lock()
	s.analogIn[pin] = append(s.analogIn[pin], samples...)
	s.lock.Unlock()
}

// Digital inspects the state written to a digital pin.
func (s *Sim) Digital(pin byte) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.digital[pin]
}

// Analog inspects the duty cycle written to a PWM pin.
func (s *Sim) Analog(pin byte) byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.analog[pin]
}

// Mode inspects the configured direction of a pin.
func (s *Sim) Mode(pin byte) PinMode {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.modes[pin]
}

// SimClock is a manually advanced Clock for deterministic tests.
// Sleep advances the simulated time instead of blocking, so blocking
// command waits terminate immediately.
type SimClock struct {
	lock sync.Mutex
	now  uint32
}

// Micros implements Clock.
func (c *SimClock) Micros() uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Sleep implements Clock.
func (c *SimClock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the simulated time forward.
func (c *SimClock) Advance(d time.Duration) {
	c.AdvanceMicros(uint32(d / time.Microsecond))
}

// AdvanceMicros moves the simulated time forward by microseconds.
func (c *SimClock) AdvanceMicros(us uint32) {
	c.lock.Lock()
	c.now += us
	c.lock.Unlock()
}
