// Package interlock reads the Door and Emergency inputs and exposes
// debounced booleans. Both inputs are active-low with pull-ups: Door level
// 0 means open, Emergency level 0 means pressed. Each Poll takes a
// two-of-two consecutive-sample reading, sub-tick spaced the way
// tcr.Channel.Read bit-bangs its clock, so a real assertion is visible
// within the same controller tick instead of carrying over to the next
// one; a single disagreeing sample is treated as a glitch and discarded.
package interlock

import (
	"time"

	"github.com/itohio/kilnctl/internal/gpio"
)

// sampleGap separates the two samples taken per Poll call. It only needs to
// clear contact bounce, not match the controller's tick period.
const sampleGap = 1 * time.Millisecond

// Monitor polls the door and emergency pins once per tick.
type Monitor struct {
	door      gpio.Pin
	emergency gpio.Pin
	sleep     func(time.Duration)

	doorStable      bool
	emergencyStable bool
}

// New wires a Monitor to the configured door/emergency BCM pins. sleep
// defaults to time.Sleep; tests inject a no-op sleep to avoid the real
// sub-millisecond settle delay.
func New(chip gpio.Chip, doorBCM, emergencyBCM int, sleep func(time.Duration)) *Monitor {
	door := chip.Pin(doorBCM)
	door.SetDirection(gpio.Input)
	door.SetPull(gpio.PullUp)

	emergency := chip.Pin(emergencyBCM)
	emergency.SetDirection(gpio.Input)
	emergency.SetPull(gpio.PullUp)

	if sleep == nil {
		sleep = time.Sleep
	}
	return &Monitor{door: door, emergency: emergency, sleep: sleep}
}

// Poll takes a two-of-two consecutive-sample reading of both inputs and
// advances the debounced state. Call exactly once per controller tick.
func (m *Monitor) Poll() {
	if asserted, ok := m.sampleTwice(m.door); ok {
		m.doorStable = asserted
	}
	if asserted, ok := m.sampleTwice(m.emergency); ok {
		m.emergencyStable = asserted
	}
}

// sampleTwice reads pin twice, sampleGap apart, and reports the level only
// when both samples agree; a disagreement is a glitch and ok is false,
// leaving the previously debounced state unchanged.
func (m *Monitor) sampleTwice(pin gpio.Pin) (asserted, ok bool) {
	first := pin.Read() == gpio.Low
	m.sleep(sampleGap)
	second := pin.Read() == gpio.Low
	return first, first == second
}

// DoorOpen reports the debounced door state.
func (m *Monitor) DoorOpen() bool { return m.doorStable }

// Emergency reports the debounced emergency-stop state.
func (m *Monitor) Emergency() bool { return m.emergencyStable }
