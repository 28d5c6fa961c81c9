// Package tcr implements the bit-banged MAX6675-class thermocouple reader:
// two channels sharing a clock line, read serially, decoded into a
// Temperature or a fault. A Simulation mode synthesizes samples so the
// rest of the control plane is testable without hardware.
package tcr

import (
	"time"

	"github.com/itohio/kilnctl/internal/gpio"
	"github.com/itohio/kilnctl/internal/model"
)

const (
	csSettleDelay = 5 * time.Millisecond
	halfCycle     = 1 * time.Millisecond
	frameBits     = 16
)

// Channel is one converter's pin set. CLK is shared across channels by the
// caller (same BCM number passed to both channels' Chip.Pin calls); reads
// must be serialized by the caller since the line is shared.
type Channel struct {
	cs  gpio.Pin
	clk gpio.Pin
	do  gpio.Pin
}

// NewChannel configures CS/CLK/DO for one converter.
func NewChannel(chip gpio.Chip, csBCM, clkBCM, doBCM int) Channel {
	cs := chip.Pin(csBCM)
	cs.SetDirection(gpio.Output)
	cs.Write(gpio.High)

	clk := chip.Pin(clkBCM)
	clk.SetDirection(gpio.Output)
	clk.Write(gpio.Low)

	do := chip.Pin(doBCM)
	do.SetDirection(gpio.Input)

	return Channel{cs: cs, clk: clk, do: do}
}

// Read performs one bit-banged 16-bit read and decodes it.
func (c Channel) Read(sleep func(time.Duration)) model.Sample {
	c.cs.Write(gpio.Low)
	sleep(csSettleDelay)

	var raw uint16
	for i := 0; i < frameBits; i++ {
		c.clk.Write(gpio.High)
		sleep(halfCycle)
		bit := uint16(0)
		if c.do.Read() == gpio.High {
			bit = 1
		}
		raw = (raw << 1) | bit
		c.clk.Write(gpio.Low)
		sleep(halfCycle)
	}

	c.cs.Write(gpio.High)

	return Decode(raw)
}

// Decode applies the MAX6675-class frame rules of spec §4.3:
//   - all-ones or all-zeros -> BusError
//   - bit 2 set -> OpenCircuit
//   - otherwise temp = ((raw>>3) & 0xFFF) * 0.25 °C, range-checked.
func Decode(raw uint16) model.Sample {
	if raw == 0x0000 || raw == 0xFFFF {
		return model.Sample{Fault: model.FaultBusError}
	}
	if raw&0x4 != 0 {
		return model.Sample{Fault: model.FaultOpenCircuit}
	}

	bits := (raw >> 3) & 0xFFF
	temp := model.Temperature(float64(float32(bits) * 0.25))
	if !temp.Valid() {
		return model.Sample{Fault: model.FaultOutOfRange}
	}
	return model.Sample{Temp: temp}
}

// Reader owns both channels and serializes access to the shared clock
// line: TC1 is fully read, then TC2.
type Reader struct {
	tc1, tc2 Channel
	sleep    func(time.Duration)
}

// New builds a Reader over the given channels. sleep defaults to
// time.Sleep; tests inject a no-op or instrumented sleep to avoid the real
// ~40ms/read protocol delay.
func New(tc1, tc2 Channel, sleep func(time.Duration)) *Reader {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Reader{tc1: tc1, tc2: tc2, sleep: sleep}
}

// ReadBoth reads TC1 then TC2, serialized over the shared CLK.
func (r *Reader) ReadBoth() (tc1, tc2 model.Sample) {
	tc1 = r.tc1.Read(r.sleep)
	tc2 = r.tc2.Read(r.sleep)
	return tc1, tc2
}
