package controller

import (
	"fmt"
	"time"

	"github.com/itohio/kilnctl/internal/executor"
	"github.com/itohio/kilnctl/internal/model"
)

// applyMailbox drains every command queued before this tick began and
// applies it, per spec §5: commands are applied at the start of the next
// tick, never mid-tick. It does not drain commands submitted during its
// own execution (those wait for the following tick).
func (c *Controller) applyMailbox(now time.Time) {
	pending := len(c.mailbox)
	for i := 0; i < pending; i++ {
		cmd := <-c.mailbox
		value, err := c.apply(cmd, now)
		if cmd.Result != nil {
			cmd.Result <- CommandResult{Value: value, Err: err}
		}
	}
}

func (c *Controller) apply(cmd Command, now time.Time) (interface{}, error) {
	switch cmd.Kind {
	case CmdStart:
		return c.applyStart(cmd, now)
	case CmdStop:
		c.exec.Stop(now)
		return map[string]bool{"stopped": true}, nil
	case CmdPause:
		if err := c.exec.TogglePause(now); err != nil {
			return nil, err
		}
		return map[string]string{"run_state": c.exec.State().Kind.String()}, nil
	case CmdResume:
		if err := c.exec.Resume(now); err != nil {
			return nil, err
		}
		return map[string]string{"run_state": c.exec.State().Kind.String()}, nil
	case CmdEmergencyStop:
		c.exec.EmergencyStop()
		c.regul.Reset()
		c.logError(now, model.ErrEmergency, "emergency command")
		return map[string]bool{"emergency_stopped": true}, nil
	case CmdTunePID:
		c.regul.Tune(cmd.Kp, cmd.Ki, cmd.Kd)
		return map[string]float64{"kp": cmd.Kp, "ki": cmd.Ki, "kd": cmd.Kd}, nil
	case CmdSaveUserProgram:
		p, err := c.cat.SaveUser(cmd.Name, cmd.Steps)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"id": p.ID, "program": p}, nil
	case CmdDeleteProgram:
		if err := c.cat.DeleteUser(cmd.ProgramID); err != nil {
			return nil, err
		}
		return map[string]bool{"deleted": true}, nil
	case CmdClearErrors:
		c.mu.Lock()
		c.errorLog = nil
		c.mu.Unlock()
		return map[string]bool{"ok": true}, nil
	case CmdTestHeater, CmdTestVacuum, CmdTestFan, CmdTestSensors:
		return c.applyTest(cmd, now)
	default:
		return nil, fmt.Errorf("unknown command kind %d", cmd.Kind)
	}
}

func (c *Controller) applyStart(cmd Command, now time.Time) (interface{}, error) {
	p, err := c.cat.Get(cmd.ProgramID)
	if err != nil {
		return nil, err
	}
	_, err = c.exec.Start(p, now, c.il.Emergency(), c.il.DoorOpen())
	if err != nil {
		if executor.IsInterlockActive(err) {
			return nil, fmt.Errorf("%s: %w", model.ErrInterlockActive.String(), err)
		}
		return nil, err
	}
	c.regul.Reset()
	return map[string]interface{}{
		"started":      true,
		"program_name": p.Name,
		"total_steps":  len(p.Steps),
		"first_target": p.Steps[0].TargetTemp,
	}, nil
}

// applyTest implements the `test/{heater,vacuum,fan,sensors}` commands:
// not allowed while Running, pulses the actuator or reads sensors once.
func (c *Controller) applyTest(cmd Command, now time.Time) (interface{}, error) {
	if c.exec.State().Kind == model.RunRunning {
		return nil, fmt.Errorf("test commands are not allowed while running")
	}
	switch cmd.Kind {
	case CmdTestHeater:
		c.heater.SetDuty(100, c)
		c.heater.SetDuty(0, c)
		return map[string]bool{"pulsed": true}, nil
	case CmdTestVacuum:
		c.vacuum.Enable(80, c)
		c.vacuum.Tick(c.period)
		c.vacuum.Disable()
		return map[string]bool{"pulsed": true}, nil
	case CmdTestFan:
		c.fan.Set(true)
		c.fan.Set(false)
		return map[string]bool{"pulsed": true}, nil
	case CmdTestSensors:
		tc1, tc2 := c.sense(now)
		return map[string]model.Sample{"tc1": tc1, "tc2": tc2}, nil
	}
	return nil, fmt.Errorf("unhandled test command")
}

// Programs exposes the catalog listing for the HTTP `GET programs`
// endpoint.
func (c *Controller) Programs() []model.Program { return c.cat.List() }
