package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// hardwarePin wraps a single rpio.Pin. go-rpio pins are already
// single-owner by BCM number; we just narrow the API to our Pin interface.
type hardwarePin struct {
	pin rpio.Pin
}

func (p hardwarePin) SetDirection(d Direction) {
	if d == Output {
		p.pin.Output()
	} else {
		p.pin.Input()
	}
}

func (p hardwarePin) SetPull(pull Pull) {
	switch pull {
	case PullUp:
		p.pin.PullUp()
	case PullDown:
		p.pin.PullDown()
	default:
		p.pin.PullOff()
	}
}

func (p hardwarePin) Write(l Level) {
	if l == High {
		p.pin.High()
	} else {
		p.pin.Low()
	}
}

func (p hardwarePin) Read() Level {
	if p.pin.Read() == rpio.High {
		return High
	}
	return Low
}

// Hardware is the real /dev/gpiomem-backed Chip.
type Hardware struct {
	mu     sync.Mutex
	opened bool
}

// OpenHardware maps /dev/gpiomem and returns a Chip on success, or
// ErrHardwareUnavailable (wrapping the underlying error) when no GPIO
// driver is present — e.g. running off-target during development.
func OpenHardware() (Chip, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
	}
	return &Hardware{opened: true}, nil
}

func (h *Hardware) Pin(bcm int) Pin {
	return hardwarePin{pin: rpio.Pin(bcm)}
}

func (h *Hardware) Available() bool { return true }

func (h *Hardware) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return nil
	}
	h.opened = false
	return rpio.Close()
}
