// Package actuator implements the three independently-driven outputs:
// Heater (duty-gated SSR), Vacuum (on/off with a synthetic pressure
// model), and Fan (plain on/off). Heater and Vacuum are unconditionally
// gated through the dominant interlock; Fan is not, since it is the
// cooling safety device commanded during emergency/fault cooldown.
package actuator

import (
	"time"

	"github.com/itohio/kilnctl/internal/gpio"
)

const heaterOnThreshold = 5.0 // percent; below this the SSR is held off

// Interlock is the read-only view of the dominant interlocks that Heater
// and Vacuum consult before every write.
type Interlock interface {
	Emergency() bool
	DoorOpen() bool
}

func gated(il Interlock) bool {
	return il.Emergency() || il.DoorOpen()
}

// Heater drives the SSR control line. Duty is recorded for display/safety
// checks even when a fuller PWM implementation isn't present: the stored
// duty is authoritative.
type Heater struct {
	pin  gpio.Pin
	duty float64
}

// NewHeater configures the SSR pin as output, initially off.
func NewHeater(chip gpio.Chip, bcm int) *Heater {
	pin := chip.Pin(bcm)
	pin.SetDirection(gpio.Output)
	pin.Write(gpio.Low)
	return &Heater{pin: pin}
}

// SetDuty requests a duty percentage in [0,100]. The interlock, if
// asserted, forces the output to 0 regardless of the requested value.
func (h *Heater) SetDuty(percent float64, il Interlock) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if gated(il) {
		percent = 0
	}

	h.duty = percent
	if percent < heaterOnThreshold {
		h.pin.Write(gpio.Low)
	} else {
		h.pin.Write(gpio.High)
	}
}

// Duty returns the last recorded duty, for Snapshot assembly.
func (h *Heater) Duty() float64 { return h.duty }

// Vacuum drives the pump pin and models a synthetic current pressure that
// asymptotes toward the requested target while enabled, and toward 0
// while disabled.
type Vacuum struct {
	pin       gpio.Pin
	enabled   bool
	targetKPa float64
	currentKPa float64
}

const vacuumRampKPaPerSec = 5.0

// NewVacuum configures the pump pin as output, initially off.
func NewVacuum(chip gpio.Chip, bcm int) *Vacuum {
	pin := chip.Pin(bcm)
	pin.SetDirection(gpio.Output)
	pin.Write(gpio.Low)
	return &Vacuum{pin: pin}
}

// Enable requests vacuum at targetKPa (magnitude, kPa), subject to
// interlock gating.
func (v *Vacuum) Enable(targetKPa float64, il Interlock) {
	if gated(il) {
		v.Disable()
		return
	}
	v.enabled = true
	v.targetKPa = targetKPa
	v.pin.Write(gpio.High)
}

// Disable turns the pump off; current pressure then decays toward 0 on
// subsequent Tick calls.
func (v *Vacuum) Disable() {
	v.enabled = false
	v.targetKPa = 0
	v.pin.Write(gpio.Low)
}

// Tick advances the synthetic current-pressure model by dt. Call once per
// controller tick after Enable/Disable has been applied for that tick.
func (v *Vacuum) Tick(dt time.Duration) {
	step := vacuumRampKPaPerSec * dt.Seconds()
	target := 0.0
	if v.enabled {
		target = v.targetKPa
	}
	if v.currentKPa < target {
		v.currentKPa += step
		if v.currentKPa > target {
			v.currentKPa = target
		}
	} else if v.currentKPa > target {
		v.currentKPa -= step
		if v.currentKPa < target {
			v.currentKPa = target
		}
	}
}

// State returns (enabled, targetKPa, currentKPa) for Snapshot assembly.
func (v *Vacuum) State() (bool, float64, float64) {
	return v.enabled, v.targetKPa, v.currentKPa
}

// Fan is a plain on/off cooling output with no interlock gating.
type Fan struct {
	pin gpio.Pin
	on  bool
}

// NewFan configures the fan pin as output, initially off.
func NewFan(chip gpio.Chip, bcm int) *Fan {
	pin := chip.Pin(bcm)
	pin.SetDirection(gpio.Output)
	pin.Write(gpio.Low)
	return &Fan{pin: pin}
}

// Set turns the fan on or off. Permitted and expected during
// emergency/fault cooldown — never gated.
func (f *Fan) Set(on bool) {
	f.on = on
	if on {
		f.pin.Write(gpio.High)
	} else {
		f.pin.Write(gpio.Low)
	}
}

// On reports the fan's last commanded state.
func (f *Fan) On() bool { return f.on }
