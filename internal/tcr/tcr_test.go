package tcr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/kilnctl/internal/model"
)

func TestDecodeAllOnesIsBusError(t *testing.T) {
	s := Decode(0xFFFF)
	assert.Equal(t, model.FaultBusError, s.Fault)
}

func TestDecodeAllZerosIsBusError(t *testing.T) {
	s := Decode(0x0000)
	assert.Equal(t, model.FaultBusError, s.Fault)
}

func TestDecodeOpenCircuitBit(t *testing.T) {
	// bit 2 set, otherwise a plausible frame.
	raw := uint16(0b0000001000000100)
	s := Decode(raw)
	assert.Equal(t, model.FaultOpenCircuit, s.Fault)
}

func TestDecodeValidTemperature(t *testing.T) {
	// 12-bit value 400 (0x190) shifted into bits 3..14 -> 400*0.25 = 100.0 °C
	raw := uint16(400) << 3
	s := Decode(raw)
	assert.True(t, s.OK())
	assert.InDelta(t, 100.0, float64(s.Temp), 0.01)
}

func TestDecodeMaxFrameStaysInRange(t *testing.T) {
	// 12-bit max (4095) * 0.25 = 1023.75, within range; push higher is
	// impossible with 12 bits, so exercise the negative/low side isn't
	// representable either (unsigned frame) — out-of-range is reached via
	// the Decode->Temperature.Valid() path when scaled value exceeds
	// TempMax; with 12 bits max 1023.75 never exceeds 1400, so this test
	// instead asserts the boundary is honored at the type level.
	raw := uint16(4095) << 3
	s := Decode(raw)
	assert.True(t, s.OK())
	assert.LessOrEqual(t, float64(s.Temp), model.TempMax)
}

func TestDecodeExhaustiveExactlyOneOutcome(t *testing.T) {
	for raw := 0; raw <= 0xFFFF; raw++ {
		s := Decode(uint16(raw))
		switch {
		case s.Fault == model.FaultBusError,
			s.Fault == model.FaultOpenCircuit,
			s.Fault == model.FaultOutOfRange,
			s.Fault == model.FaultBadFrame,
			s.OK():
			// exactly one of the documented outcomes
		default:
			t.Fatalf("raw=0x%04x produced unrecognized outcome %+v", raw, s)
		}
	}
}

func TestSimulatorRisesTowardTargetWhileActive(t *testing.T) {
	sim := NewSimulator(1)
	var last model.Temperature
	for i := 0; i < 50; i++ {
		tc1, _ := sim.Step(500*1e6, true, 200, 100)
		if tc1.OK() {
			last = tc1.Temp
		}
	}
	assert.Greater(t, float64(last), 20.0)
}

func TestSimulatorDecaysTowardAmbientWhenIdle(t *testing.T) {
	sim := &Simulator{current: 150}
	sim.rng = NewSimulator(1).rng
	// 3000 steps of 0.5s = 1500s; at decayRateC the 130 °C drop takes 1300s.
	for i := 0; i < 3000; i++ {
		sim.Step(500*1e6, false, 0, 0)
	}
	assert.InDelta(t, 20.0, float64(sim.current), 2.0)
}
