// Package pid implements the clamped PI-D regulator of spec §4.5: integral
// anti-windup clamp, optional proportional autotune, and a bounded
// diagnostic error history. Rounding/clamping arithmetic uses
// github.com/chewxy/math32, matching the teacher's float32 sensor-math
// idiom (pkg/sample's ADC/voltage conversions) now applied to the control
// arithmetic instead.
package pid

import (
	"github.com/chewxy/math32"

	"github.com/itohio/kilnctl/internal/clock"
)

const (
	DefaultKp = 3.2
	DefaultKi = 0.08
	DefaultKd = 1.5

	integralMin = -50.0
	integralMax = 50.0
	outputMin   = 0.0
	outputMax   = 100.0

	autotuneErrorHigh  = 50.0
	autotuneErrorLow   = 5.0
	autotuneDerivLow   = 1.0
	autotuneKpMax      = 5.0
	autotuneKpMin      = 2.0
	autotuneKpIncrease = 1.01
	autotuneKpDecrease = 0.99

	historyCap = 100
)

// Regulator holds the PID gains and internal state across ticks.
type Regulator struct {
	clk clock.Clock

	Kp, Ki, Kd float64
	integral   float64
	lastError  float64
	lastTickMs int64
	haveLast   bool

	AutotuneEnabled bool

	history []float64 // bounded diagnostic error history, oldest first
}

// New returns a Regulator with the spec's default gains.
func New(clk clock.Clock) *Regulator {
	return &Regulator{
		clk: clk,
		Kp:  DefaultKp,
		Ki:  DefaultKi,
		Kd:  DefaultKd,

		lastTickMs: clk.NowMs(),
	}
}

// Reset zeroes the integral and last-error terms and resets the tick
// reference to now. Called on program start, stop, emergency, or fault to
// prevent carry-over kicks between runs.
func (r *Regulator) Reset() {
	r.integral = 0
	r.lastError = 0
	r.lastTickMs = r.clk.NowMs()
	r.haveLast = false
}

// Tune updates the gains directly (pid/tune command).
func (r *Regulator) Tune(kp, ki, kd float64) {
	r.Kp, r.Ki, r.Kd = kp, ki, kd
}

// Calculate computes the next heater duty for the given setpoint/current
// pair. dt is derived from the clock, floored at 1ms.
func (r *Regulator) Calculate(setpoint, current float64) float64 {
	now := r.clk.NowMs()
	dtMs := now - r.lastTickMs
	if dtMs <= 0 {
		dtMs = 1
	}
	dt := float64(dtMs) / 1000.0
	if dt < 0.001 {
		dt = 0.001
	}

	errVal := setpoint - current

	r.integral += errVal * dt
	r.integral = clampF(r.integral, integralMin, integralMax)

	derivative := 0.0
	if r.haveLast {
		derivative = (errVal - r.lastError) / dt
	}

	output := r.Kp*errVal + r.Ki*r.integral + r.Kd*derivative
	output = clampF(output, outputMin, outputMax)
	output = roundTenth(output)

	if r.AutotuneEnabled {
		r.autotune(errVal, derivative)
	}

	r.lastError = errVal
	r.lastTickMs = now
	r.haveLast = true

	r.recordHistory(errVal)

	return output
}

func (r *Regulator) autotune(errVal, derivative float64) {
	absErr := math32.Abs(float32(errVal))
	switch {
	case float64(absErr) > autotuneErrorHigh:
		r.Kp = float64(math32.Min(float32(r.Kp)*autotuneKpIncrease, autotuneKpMax))
	case float64(absErr) < autotuneErrorLow && math32.Abs(float32(derivative)) < autotuneDerivLow:
		r.Kp = float64(math32.Max(float32(r.Kp)*autotuneKpDecrease, autotuneKpMin))
	}
}

func (r *Regulator) recordHistory(errVal float64) {
	r.history = append(r.history, errVal)
	if len(r.history) > historyCap {
		r.history = r.history[len(r.history)-historyCap:]
	}
}

// History returns a copy of the bounded diagnostic error history.
func (r *Regulator) History() []float64 {
	out := make([]float64, len(r.history))
	copy(out, r.history)
	return out
}

// Integral exposes the current anti-windup integral term for Snapshot
// assembly and tests.
func (r *Regulator) Integral() float64 { return r.integral }

func clampF(v, lo, hi float64) float64 {
	return float64(math32.Max(float32(lo), math32.Min(float32(hi), float32(v))))
}

func roundTenth(v float64) float64 {
	return float64(math32.Round(float32(v)*10) / 10)
}
