package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/kilnctl/internal/catalog"
	"github.com/itohio/kilnctl/internal/clock"
	"github.com/itohio/kilnctl/internal/gpio"
	"github.com/itohio/kilnctl/internal/model"
)

// fakeStore is an in-memory catalog.Store for tests that don't need disk
// persistence.
type fakeStore struct {
	data map[int]model.Program
}

func (s *fakeStore) Load() (map[int]model.Program, error) {
	if s.data == nil {
		s.data = make(map[int]model.Program)
	}
	return s.data, nil
}

func (s *fakeStore) Save(p map[int]model.Program) error {
	s.data = p
	return nil
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	c, err := catalog.New(&fakeStore{})
	require.NoError(t, err)
	return c
}

// sendCommand enqueues cmd and drives exactly one tick to process it,
// mirroring "commands are applied at the start of the next tick".
func sendCommand(c *Controller, cmd Command) CommandResult {
	cmd.Result = make(chan CommandResult, 1)
	c.mailbox <- cmd
	c.tick()
	return <-cmd.Result
}

// hwChip wraps a Simulation chip but reports Available()==true, so the
// Controller drives the real bit-banged tcr.Reader path (against simulated
// pins) instead of the synthetic plant model — used only where a test
// needs to force a specific thermocouple fault pattern.
type hwChip struct {
	*gpio.Simulation
}

func (hwChip) Available() bool { return true }

func TestHappyPathIPSEmaxReachesCooldownThenIdle(t *testing.T) {
	period := 60 * time.Second
	chip := gpio.NewSimulation()
	cat := newTestCatalog(t)
	clk := clock.NewFake(time.Now())
	c := New(chip, cat, DefaultPins(), period, clk, nil)

	res := sendCommand(c, Command{Kind: CmdStart, ProgramID: 1})
	require.NoError(t, res.Err)

	// Program 1 (IPS e.max Press): (0 ramp + 25 duration + 5 hold) * 60 = 1800s.
	reachedCooldown := false
	for i := 0; i < 60; i++ {
		clk.Advance(period)
		c.tick()
		if c.exec.State().Kind == model.RunCooldown {
			reachedCooldown = true
			break
		}
	}
	require.True(t, reachedCooldown, "must reach Cooldown")
	snap := c.Latest()
	assert.Equal(t, 0.0, snap.HeaterDuty)
	assert.True(t, snap.FanOn)

	reachedIdle := false
	for i := 0; i < 10; i++ {
		clk.Advance(period)
		c.tick()
		if c.exec.State().Kind == model.RunIdle {
			reachedIdle = true
			break
		}
	}
	require.True(t, reachedIdle, "must return to Idle after cooldown dwell")
	assert.False(t, c.Latest().FanOn)
}

func TestEmergencyDuringRunFaultsWithinOneTick(t *testing.T) {
	period := 500 * time.Millisecond
	chip := gpio.NewSimulation()
	cat := newTestCatalog(t)
	clk := clock.NewFake(time.Now())
	c := New(chip, cat, DefaultPins(), period, clk, nil)

	res := sendCommand(c, Command{Kind: CmdStart, ProgramID: 3})
	require.NoError(t, res.Err)

	// The interlock's own two-of-two debounce resolves sub-tick, so a
	// steady assertion must be visible after a single controller tick.
	chip.Inject(DefaultPins().Emergency, gpio.Low)
	clk.Advance(period)
	c.tick()

	assert.Equal(t, model.RunFault, c.exec.State().Kind)
	assert.Equal(t, model.ErrEmergency, c.exec.State().FaultKind)
	snap := c.Latest()
	assert.Equal(t, 0.0, snap.HeaterDuty)
	assert.True(t, snap.Emergency)
	assert.True(t, snap.FanOn)
}

func TestDoorOpenPausesAndResumePreservesElapsed(t *testing.T) {
	period := 500 * time.Millisecond
	chip := gpio.NewSimulation()
	cat := newTestCatalog(t)
	clk := clock.NewFake(time.Now())
	c := New(chip, cat, DefaultPins(), period, clk, nil)

	res := sendCommand(c, Command{Kind: CmdStart, ProgramID: 6})
	require.NoError(t, res.Err)

	chip.Inject(DefaultPins().Door, gpio.Low)
	clk.Advance(period)
	c.tick()
	require.Equal(t, model.RunPaused, c.exec.State().Kind)
	assert.Equal(t, 0.0, c.Latest().HeaterDuty)

	// Closing the door alone doesn't resume.
	chip.Inject(DefaultPins().Door, gpio.High)
	clk.Advance(period)
	c.tick()
	assert.Equal(t, model.RunPaused, c.exec.State().Kind)

	res = sendCommand(c, Command{Kind: CmdResume})
	require.NoError(t, res.Err)
	assert.Equal(t, model.RunRunning, c.exec.State().Kind)
	// The door opened 0.5s into the step; that elapsed time survives the pause.
	assert.InDelta(t, 0.5, c.Latest().ElapsedS, 0.001)
}

func TestSensorLossEscalatesToFault(t *testing.T) {
	chip := hwChip{Simulation: gpio.NewSimulation()}
	pins := DefaultPins()
	// Constant-high DO on both channels decodes to raw 0xFFFF: BusError.
	chip.Inject(pins.TC1DO, gpio.High)
	chip.Inject(pins.TC2DO, gpio.High)

	cat := newTestCatalog(t)
	clk := clock.NewFake(time.Now())
	c := New(chip, cat, pins, 500*time.Millisecond, clk, nil)

	res := sendCommand(c, Command{Kind: CmdStart, ProgramID: 1})
	require.NoError(t, res.Err)

	for i := 0; i < 3; i++ {
		clk.Advance(c.period)
		c.tick()
	}

	assert.Equal(t, model.RunFault, c.exec.State().Kind)
	assert.Equal(t, model.ErrSensorLost, c.exec.State().FaultKind)
	assert.Equal(t, 0.0, c.Latest().HeaterDuty)
	assert.True(t, c.Latest().FanOn)
}

func TestSaveUserProgramThenRunToCompletion(t *testing.T) {
	period := 60 * time.Second
	chip := gpio.NewSimulation()
	cat := newTestCatalog(t)
	clk := clock.NewFake(time.Now())
	c := New(chip, cat, DefaultPins(), period, clk, nil)

	saveRes := sendCommand(c, Command{
		Kind: CmdSaveUserProgram,
		Name: "Test",
		Steps: []model.Step{
			{TargetTemp: 700, DurationMin: 10, HoldMin: 2, RampMin: 5},
		},
	})
	require.NoError(t, saveRes.Err)
	saved := saveRes.Value.(map[string]interface{})
	id := saved["id"].(int)

	startRes := sendCommand(c, Command{Kind: CmdStart, ProgramID: id})
	require.NoError(t, startRes.Err)

	// 17 * 60 = 1020s.
	reachedCooldown := false
	for i := 0; i < 30; i++ {
		clk.Advance(period)
		c.tick()
		if c.exec.State().Kind == model.RunCooldown {
			reachedCooldown = true
			break
		}
	}
	assert.True(t, reachedCooldown)
}

func TestBuiltinProgramDeleteRefused(t *testing.T) {
	chip := gpio.NewSimulation()
	cat := newTestCatalog(t)
	clk := clock.NewFake(time.Now())
	c := New(chip, cat, DefaultPins(), DefaultTickPeriod, clk, nil)

	res := sendCommand(c, Command{Kind: CmdDeleteProgram, ProgramID: 1})
	assert.ErrorIs(t, res.Err, catalog.ErrNotDeletable)
}
