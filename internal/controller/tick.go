package controller

import (
	"time"

	"github.com/itohio/kilnctl/internal/executor"
	"github.com/itohio/kilnctl/internal/model"
)

// sense reads both thermocouple channels, real hardware or synthesized,
// depending on whether the Controller is in Simulation Mode.
func (c *Controller) sense(now time.Time) (tc1, tc2 model.Sample) {
	if c.sim != nil {
		running := c.exec.State().Kind == model.RunRunning
		target := model.Temperature(0)
		if step, ok := c.exec.CurrentStep(); ok {
			target = step.TargetTemp
		}
		duty := c.heater.Duty()
		return c.sim.Step(c.period, running, target, duty)
	}
	return c.reader.ReadBoth()
}

// fuse applies the fusion policy of spec §4.3: mean of both valid
// samples, else the single valid one, else the previous current_temp
// (and lost=true to drive the sensor-loss fault counter).
func (c *Controller) fuse(tc1, tc2 model.Sample, prevCurrent model.Temperature) (model.Temperature, bool) {
	switch {
	case tc1.OK() && tc2.OK():
		return (tc1.Temp + tc2.Temp) / 2, false
	case tc1.OK():
		return tc1.Temp, false
	case tc2.OK():
		return tc2.Temp, false
	default:
		return prevCurrent, true
	}
}

// actuate drives Heater/Vacuum/Fan per the tick's run state and returns
// the effective target temperature (0 when not Running). Interlock
// gating is applied inside Heater.SetDuty/Vacuum.Enable via Controller's
// own Emergency()/DoorOpen(), so this method doesn't need those booleans
// directly.
func (c *Controller) actuate(current model.Temperature) model.Temperature {
	state := c.exec.State()

	if state.Kind != model.RunRunning {
		c.heater.SetDuty(0, c)
		c.vacuum.Disable()
		switch state.Kind {
		case model.RunCooldown, model.RunFault:
			c.fan.Set(true)
		case model.RunPaused:
			// fan state unchanged: spec doesn't force it off on pause.
		default:
			c.fan.Set(false)
		}
		return 0
	}

	step, ok := c.exec.CurrentStep()
	if !ok {
		c.heater.SetDuty(0, c)
		c.vacuum.Disable()
		return 0
	}

	duty := c.regul.Calculate(float64(step.TargetTemp), float64(current))
	c.heater.SetDuty(duty, c)

	if want, magnitude := step.VacuumRequested(); want {
		c.vacuum.Enable(magnitude, c)
	} else {
		c.vacuum.Disable()
	}

	return step.TargetTemp
}

// applyActions executes the executor's requested side effects for a
// transition that happened this tick (distinct from actuate's per-tick
// steady-state drive, which runs regardless of whether a transition
// occurred).
func (c *Controller) applyActions(a executor.Actions) {
	if a.HeaterOff {
		c.heater.SetDuty(0, c)
	}
	if a.VacuumOff {
		c.vacuum.Disable()
	}
	if a.FanOn {
		c.fan.Set(true)
	}
	if a.FanOff {
		c.fan.Set(false)
	}
	if a.ResetPID {
		c.regul.Reset()
	}
}
