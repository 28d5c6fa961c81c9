// Package controller implements the Controller Loop of spec §4.7: the
// fixed-period tick that composes interlocks, thermocouple reads, PID,
// actuators, and the executor in a fixed order, then atomically publishes
// a Snapshot. It is the single writer of RunState, PIDState, and the last
// Snapshot, mirroring the teacher's context+cancel+channel goroutine
// ownership (github.com/itohio/golpm/pkg/lpm.Serial/.Mock) generalized
// from a serial-MCU link to the GPIO/TCR/actuator set of this domain.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/itohio/kilnctl/internal/actuator"
	"github.com/itohio/kilnctl/internal/catalog"
	"github.com/itohio/kilnctl/internal/clock"
	"github.com/itohio/kilnctl/internal/executor"
	"github.com/itohio/kilnctl/internal/gpio"
	"github.com/itohio/kilnctl/internal/interlock"
	"github.com/itohio/kilnctl/internal/model"
	"github.com/itohio/kilnctl/internal/pid"
	"github.com/itohio/kilnctl/internal/tcr"
)

const (
	DefaultTickPeriod = 500 * time.Millisecond
	errorLogCapacity  = 64
	sensorLostTicks   = 3
)

// Pins collects the BCM pin assignments of spec §6.
type Pins struct {
	HeaterSSR int
	TC1CS     int
	TC1CLK    int
	TC1DO     int
	TC2CS     int
	TC2DO     int
	Vacuum    int
	Fan       int
	Door      int
	Emergency int
}

// DefaultPins returns the Raspberry-Pi-style BCM defaults of spec §6.
func DefaultPins() Pins {
	return Pins{
		HeaterSSR: 17,
		TC1CS:     8, TC1CLK: 11, TC1DO: 9,
		TC2CS: 7, TC2DO: 10,
		Vacuum:    27,
		Fan:       22,
		Door:      18,
		Emergency: 25,
	}
}

// Mailbox is the bounded command intake: commands are applied at the
// start of the next tick, never mid-tick.
type Mailbox chan Command

// CommandKind enumerates the command surface of spec §6/§4.9.
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdStop
	CmdPause
	CmdResume
	CmdEmergencyStop
	CmdTunePID
	CmdSaveUserProgram
	CmdDeleteProgram
	CmdClearErrors
	CmdTestHeater
	CmdTestVacuum
	CmdTestFan
	CmdTestSensors
)

// Command is one validated intent handed to the Controller. After applying
// the command, the Controller sends exactly one CommandResult on Result
// (if non-nil), with either Value or Err set; Result is never closed.
type Command struct {
	Kind CommandKind

	ProgramID int
	Name      string
	Steps     []model.Step
	Kp, Ki, Kd float64

	Result chan CommandResult
}

// CommandResult carries back a command's outcome.
type CommandResult struct {
	Value interface{}
	Err   error
}

// Controller owns the tick loop and all its state.
type Controller struct {
	clk    clock.Clock
	logger *slog.Logger
	pins   Pins
	period time.Duration

	chip gpio.Chip

	heater *actuator.Heater
	vacuum *actuator.Vacuum
	fan    *actuator.Fan
	il     *interlock.Monitor
	reader *tcr.Reader
	regul  *pid.Regulator
	exec   *executor.Executor
	cat    *catalog.Catalog
	sim    *tcr.Simulator // non-nil only in Simulation Mode

	mailbox Mailbox

	mu           sync.RWMutex
	lastSnapshot model.Snapshot
	errorLog     []model.ErrorEntry
	consecutiveSensorLoss int
	prevEmergency bool
	prevDoorOpen  bool

	subscribers   map[chan model.Snapshot]struct{}
	subMu         sync.Mutex
}

// New assembles a Controller. If chip.Available() is false, the Controller
// runs in Simulation Mode: TCR samples are synthesized and gpio_available
// is reported false in every Snapshot.
func New(chip gpio.Chip, cat *catalog.Catalog, pins Pins, period time.Duration, clk clock.Clock, logger *slog.Logger) *Controller {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		clk:    clk,
		logger: logger,
		pins:   pins,
		period: period,
		chip:   chip,

		heater: actuator.NewHeater(chip, pins.HeaterSSR),
		vacuum: actuator.NewVacuum(chip, pins.Vacuum),
		fan:    actuator.NewFan(chip, pins.Fan),
		il:     interlock.New(chip, pins.Door, pins.Emergency, nil),
		reader: tcr.New(
			tcr.NewChannel(chip, pins.TC1CS, pins.TC1CLK, pins.TC1DO),
			tcr.NewChannel(chip, pins.TC2CS, pins.TC1CLK, pins.TC2DO),
			nil,
		),
		regul:   pid.New(clk),
		exec:    executor.New(),
		cat:     cat,
		mailbox: make(Mailbox, 16),

		subscribers: make(map[chan model.Snapshot]struct{}),
	}

	if !chip.Available() {
		c.sim = tcr.NewSimulator(1)
		c.logger.Warn("gpio hardware unavailable, running in simulation mode")
	}

	c.regul.Reset()
	return c
}

// Mailbox exposes the command intake channel for external adapters.
func (c *Controller) Mailbox() Mailbox { return c.mailbox }

// Submit enqueues a command and blocks for its result. Used by synchronous
// adapters (HTTP handlers); the mailbox itself never blocks the tick.
func (c *Controller) Submit(ctx context.Context, cmd Command) (interface{}, error) {
	cmd.Result = make(chan CommandResult, 1)
	select {
	case c.mailbox <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-cmd.Result:
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe returns a channel that receives a copy of every published
// Snapshot, best-effort: when the channel is full, that snapshot is
// skipped for this subscriber rather than blocking the tick; the
// subscriber stays registered. Call Unsubscribe to stop receiving.
func (c *Controller) Subscribe(buf int) chan model.Snapshot {
	ch := make(chan model.Snapshot, buf)
	c.subMu.Lock()
	c.subscribers[ch] = struct{}{}
	c.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (c *Controller) Unsubscribe(ch chan model.Snapshot) {
	c.subMu.Lock()
	delete(c.subscribers, ch)
	c.subMu.Unlock()
	close(ch)
}

// Latest returns an immutable copy of the most recently published
// Snapshot.
func (c *Controller) Latest() model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSnapshot
}

// Run drives the periodic tick until ctx is cancelled, then performs the
// graceful-shutdown sequence of spec §5: heater/vacuum/fan off, GPIO
// released.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Controller) shutdown() {
	c.drainMailbox()
	if c.exec.State().Kind == model.RunRunning || c.exec.State().Kind == model.RunPaused {
		c.exec.Stop(c.clk.Now())
	}
	c.heater.SetDuty(0, c)
	c.vacuum.Disable()
	c.fan.Set(false)
	if err := c.chip.Close(); err != nil {
		c.logger.Error("failed to release gpio", "error", err)
	}
}

func (c *Controller) drainMailbox() {
	for {
		select {
		case cmd := <-c.mailbox:
			if cmd.Result != nil {
				cmd.Result <- CommandResult{Err: context.Canceled}
			}
		default:
			return
		}
	}
}

// Emergency and DoorOpen implement actuator.Interlock: the Controller
// passes itself as the gate to Heater.SetDuty and Vacuum.Enable, and both
// methods report the monitor's debounced state.
func (c *Controller) Emergency() bool { return c.il.Emergency() }
func (c *Controller) DoorOpen() bool  { return c.il.DoorOpen() }

func (c *Controller) tick() {
	now := c.clk.Now()
	prevSnapshot := c.Latest()

	// 1. Apply at most the commands queued before this tick began.
	c.applyMailbox(now)

	// 2. Poll interlocks.
	c.il.Poll()
	emergency := c.il.Emergency()
	doorOpen := c.il.DoorOpen()

	// 3. Read TCR channel 1, then channel 2; fuse.
	tc1, tc2 := c.sense(now)
	current, lost := c.fuse(tc1, tc2, prevSnapshot.CurrentTemp)
	if lost {
		c.consecutiveSensorLoss++
	} else {
		c.consecutiveSensorLoss = 0
	}

	// 4. Emergency rising takes precedence over everything else this tick.
	if emergency && !c.prevEmergency {
		c.exec.EmergencyStop()
		c.regul.Reset()
		c.logError(now, model.ErrEmergency, "emergency input asserted")
	} else if doorOpen && !c.prevDoorOpen && c.exec.State().Kind == model.RunRunning {
		c.exec.DoorOpened(now)
		c.logError(now, model.ErrDoorOpenedDuringRun, "door opened during run")
	}
	c.prevEmergency = emergency
	c.prevDoorOpen = doorOpen

	if c.consecutiveSensorLoss >= sensorLostTicks && c.exec.State().Kind != model.RunFault {
		c.exec.Fault(model.ErrSensorLost)
		c.regul.Reset()
		c.logError(now, model.ErrSensorLost, "no valid sensor sample for 3 consecutive ticks")
	}

	// 5/6. Drive actuators for this tick's state, and advance the executor.
	target := c.actuate(current)
	actions := c.exec.Advance(now)
	c.applyActions(actions)

	c.vacuum.Tick(c.period)

	// 8. Assemble and publish.
	snap := c.assembleSnapshot(now, current, tc1, tc2, target, emergency, doorOpen)
	c.publish(snap)
}
