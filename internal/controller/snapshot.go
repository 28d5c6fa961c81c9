package controller

import (
	"time"

	"github.com/itohio/kilnctl/internal/model"
)

// logError appends a bounded error-log entry, evicting the oldest when at
// capacity, and writes the same event through slog.
func (c *Controller) logError(at time.Time, kind model.ErrorKind, detail string) {
	c.mu.Lock()
	c.errorLog = append(c.errorLog, model.ErrorEntry{At: at, Kind: kind, Detail: detail})
	if len(c.errorLog) > errorLogCapacity {
		c.errorLog = c.errorLog[len(c.errorLog)-errorLogCapacity:]
	}
	c.mu.Unlock()

	c.logger.Warn("control plane error", "kind", kind.String(), "detail", detail)
}

func (c *Controller) assembleSnapshot(now time.Time, current model.Temperature, tc1, tc2 model.Sample, target model.Temperature, emergency, doorOpen bool) model.Snapshot {
	state := c.exec.State()

	totalSteps := 0
	programName := ""
	if p, ok := c.exec.Program(); ok {
		totalSteps = len(p.Steps)
		programName = p.Name
	}

	enabled, vacTarget, vacCurrent := c.vacuum.State()

	c.mu.RLock()
	errsCopy := make([]model.ErrorEntry, len(c.errorLog))
	copy(errsCopy, c.errorLog)
	c.mu.RUnlock()

	return model.Snapshot{
		RunState:    state,
		ProgramID:   state.ProgramID,
		ProgramName: programName,
		StepIdx:     state.StepIdx,
		TotalSteps:  totalSteps,
		ElapsedS:    c.exec.ElapsedSeconds(now),
		TC1:         tc1,
		TC2:         tc2,
		CurrentTemp: current,
		TargetTemp:  target,
		HeaterDuty:  c.heater.Duty(),
		Vacuum: model.VacuumState{
			Enabled:    enabled,
			TargetKPa:  vacTarget,
			CurrentKPa: vacCurrent,
		},
		FanOn:         c.fan.On(),
		DoorOpen:      doorOpen,
		Emergency:     emergency,
		Errors:        errsCopy,
		TickTimeMs:    c.clk.NowMs(),
		GPIOAvailable: c.chip.Available(),
		PID: model.PIDState{
			Kp: c.regul.Kp, Ki: c.regul.Ki, Kd: c.regul.Kd,
			Integral:        c.regul.Integral(),
			OutputMin:       0,
			OutputMax:       100,
			IntegralMin:     -50,
			IntegralMax:     50,
			AutotuneEnabled: c.regul.AutotuneEnabled,
		},
	}
}

// publish stores the snapshot as the latest and fans it out to
// subscribers, best-effort: a subscriber whose channel is full misses this
// snapshot rather than blocking the tick.
func (c *Controller) publish(snap model.Snapshot) {
	c.mu.Lock()
	c.lastSnapshot = snap
	c.mu.Unlock()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			c.logger.Debug("dropping snapshot for slow subscriber")
		}
	}
}
