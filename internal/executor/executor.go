// Package executor implements the Program Executor state machine of spec
// §4.6: it advances through a borrowed Program's steps, tracks the current
// target, and terminates normally (Cooldown -> Idle) or by fault.
package executor

import (
	"time"

	"github.com/itohio/kilnctl/internal/model"
)

// CooldownDuration is the fixed dwell in Cooldown before returning to Idle.
const CooldownDuration = 5 * time.Minute

// Actions is the set of actuator side effects the executor requests on a
// transition. The Controller loop is responsible for actually issuing
// them; the executor only decides what should happen.
type Actions struct {
	HeaterOff  bool
	VacuumOff  bool
	FanOn      bool
	FanOff     bool
	ResetPID   bool
}

// Executor owns RunState and the program it is currently running.
type Executor struct {
	state       model.RunState
	program     model.Program
	hasProgram  bool
	cooldownAt  time.Time
}

// New starts in Idle.
func New() *Executor {
	return &Executor{state: model.RunState{Kind: model.RunIdle}}
}

// State returns the current RunState.
func (e *Executor) State() model.RunState { return e.state }

// Program returns the program currently loaded, if any.
func (e *Executor) Program() (model.Program, bool) { return e.program, e.hasProgram }

// CurrentStep returns the active step, if Running or Paused.
func (e *Executor) CurrentStep() (model.Step, bool) {
	if !e.hasProgram {
		return model.Step{}, false
	}
	if e.state.Kind != model.RunRunning && e.state.Kind != model.RunPaused {
		return model.Step{}, false
	}
	if e.state.StepIdx < 0 || e.state.StepIdx >= len(e.program.Steps) {
		return model.Step{}, false
	}
	return e.program.Steps[e.state.StepIdx], true
}

// Start transitions Idle -> Running(0, now) if no interlock is active, or
// returns InterlockActive without mutating state.
func (e *Executor) Start(program model.Program, now time.Time, emergency, doorOpen bool) (Actions, error) {
	if e.state.Kind != model.RunIdle {
		return Actions{}, errNotIdle
	}
	if emergency || doorOpen {
		return Actions{}, errInterlockActive
	}

	e.program = program
	e.hasProgram = true
	e.state = model.RunState{Kind: model.RunRunning, ProgramID: program.ID, StepIdx: 0, StepStartedAt: now}
	return Actions{ResetPID: true}, nil
}

// Stop transitions to Cooldown from any non-Fault state. From Fault it
// returns directly to Idle instead: per spec §7, a fault is only cleared
// by an explicit Stop while Faulted, and "fault absorbs" means no further
// Cooldown dwell is owed.
func (e *Executor) Stop(now time.Time) Actions {
	if e.state.Kind == model.RunFault {
		e.state = model.RunState{Kind: model.RunIdle}
		e.hasProgram = false
		return Actions{HeaterOff: true, VacuumOff: true, FanOff: true}
	}
	e.state = model.RunState{Kind: model.RunCooldown, ProgramID: e.state.ProgramID}
	e.cooldownAt = now
	return Actions{HeaterOff: true, VacuumOff: true, FanOn: true}
}

// EmergencyStop transitions Running/Paused/any to Fault(Emergency).
func (e *Executor) EmergencyStop() Actions {
	e.state = model.RunState{Kind: model.RunFault, ProgramID: e.state.ProgramID, FaultKind: model.ErrEmergency}
	return Actions{HeaterOff: true, VacuumOff: true, FanOn: true, ResetPID: true}
}

// Fault transitions to Fault(kind) directly, e.g. on sensor loss.
func (e *Executor) Fault(kind model.ErrorKind) Actions {
	e.state = model.RunState{Kind: model.RunFault, ProgramID: e.state.ProgramID, FaultKind: kind}
	return Actions{HeaterOff: true, VacuumOff: true, FanOn: true}
}

// DoorOpened transitions Running -> Paused, preserving elapsed-in-step.
func (e *Executor) DoorOpened(now time.Time) Actions {
	if e.state.Kind != model.RunRunning {
		return Actions{}
	}
	elapsed := now.Sub(e.state.StepStartedAt)
	e.state = model.RunState{Kind: model.RunPaused, ProgramID: e.state.ProgramID, StepIdx: e.state.StepIdx, ElapsedInStep: elapsed}
	return Actions{HeaterOff: true, VacuumOff: true}
}

// Resume transitions Paused -> Running, adjusting StepStartedAt so that
// elapsed-in-step is preserved across the pause.
func (e *Executor) Resume(now time.Time) error {
	if e.state.Kind != model.RunPaused {
		return errNotPaused
	}
	e.state = model.RunState{
		Kind:          model.RunRunning,
		ProgramID:     e.state.ProgramID,
		StepIdx:       e.state.StepIdx,
		StepStartedAt: now.Add(-e.state.ElapsedInStep),
	}
	return nil
}

// TogglePause implements the pause/resume toggle of the `pause` command.
func (e *Executor) TogglePause(now time.Time) error {
	switch e.state.Kind {
	case model.RunRunning:
		e.DoorOpened(now) // same transition shape; door state is irrelevant to the toggle itself
		return nil
	case model.RunPaused:
		return e.Resume(now)
	default:
		return errNotRunning
	}
}

// Advance checks elapsed time against the current step's total duration
// and advances the step index, or transitions Running -> Cooldown on the
// last step, or Cooldown -> Idle after CooldownDuration. Call once per
// tick while Running or Cooldown.
func (e *Executor) Advance(now time.Time) Actions {
	switch e.state.Kind {
	case model.RunRunning:
		step, ok := e.CurrentStep()
		if !ok {
			return Actions{}
		}
		elapsed := now.Sub(e.state.StepStartedAt)
		if elapsed < step.TotalDuration() {
			return Actions{}
		}
		if e.state.StepIdx < len(e.program.Steps)-1 {
			e.state.StepIdx++
			e.state.StepStartedAt = now
			return Actions{}
		}
		e.state = model.RunState{Kind: model.RunCooldown, ProgramID: e.state.ProgramID}
		e.cooldownAt = now
		return Actions{HeaterOff: true, VacuumOff: true, FanOn: true}

	case model.RunCooldown:
		if now.Sub(e.cooldownAt) >= CooldownDuration {
			e.state = model.RunState{Kind: model.RunIdle}
			e.hasProgram = false
			return Actions{FanOff: true}
		}
		return Actions{}

	default:
		return Actions{}
	}
}

// ElapsedSeconds returns the elapsed time in the current run for Snapshot
// assembly: time-in-step while Running, preserved elapsed while Paused, 0
// otherwise.
func (e *Executor) ElapsedSeconds(now time.Time) float64 {
	switch e.state.Kind {
	case model.RunRunning:
		return now.Sub(e.state.StepStartedAt).Seconds()
	case model.RunPaused:
		return e.state.ElapsedInStep.Seconds()
	default:
		return 0
	}
}

var (
	errNotIdle          = executorError("start requires Idle")
	errInterlockActive  = executorError("interlock active")
	errNotPaused        = executorError("resume requires Paused")
	errNotRunning       = executorError("pause/resume requires Running or Paused")
)

type executorError string

func (e executorError) Error() string { return string(e) }

// IsInterlockActive reports whether err is the InterlockActive rejection.
func IsInterlockActive(err error) bool { return err == errInterlockActive }
