// Package gpio is the capability abstraction over digital pins: set
// direction/pull, write a level, read a level. It has exactly two concrete
// variants — Hardware and Simulation — selected once at startup, mirroring
// the Device/Mock split the teacher uses for its serial MCU link
// (github.com/itohio/golpm/pkg/lpm.Device / .Mock). The rest of the core
// is generic over the Chip interface; the one variant-dependent choice is
// the Controller's use of Available() to switch to synthesized
// thermocouple samples.
package gpio

import "errors"

// ErrHardwareUnavailable is returned by OpenHardware when no GPIO
// driver/device is present. The caller (the daemon's startup in cmd/kilnd)
// treats this as a signal to run in Simulation Mode rather than a fatal
// startup error.
var ErrHardwareUnavailable = errors.New("gpio: hardware unavailable")

// Direction is a pin's data direction.
type Direction int

const (
	Input Direction = iota
	Output
)

// Pull is a pin's pull resistor configuration.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Level is a digital pin level.
type Level int

const (
	Low Level = iota
	High
)

// Pin is a single GPIO line, owned exclusively by whichever driver opened
// it (an actuator driver or the thermocouple reader).
type Pin interface {
	SetDirection(Direction)
	SetPull(Pull)
	Write(Level)
	Read() Level
}

// Chip opens individual pins by BCM number. Implementations are either
// Hardware (backed by /dev/gpiomem via go-rpio) or Simulation (no-ops).
type Chip interface {
	Pin(bcm int) Pin
	// Available reports whether this Chip is backed by real hardware.
	// The Controller reflects this in every Snapshot as gpio_available.
	Available() bool
	// Close releases the underlying hardware handle, if any.
	Close() error
}
