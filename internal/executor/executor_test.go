package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/kilnctl/internal/model"
)

func testProgram() model.Program {
	return model.Program{
		ID:   1,
		Name: "IPS e.max Press",
		Steps: []model.Step{
			{TargetTemp: 850, DurationMin: 25, HoldMin: 5, RampMin: 0},
		},
		Origin: model.OriginBuiltin,
	}
}

func TestStartRejectedWhenInterlockActive(t *testing.T) {
	e := New()
	now := time.Now()
	_, err := e.Start(testProgram(), now, true, false)
	assert.True(t, IsInterlockActive(err))
	assert.Equal(t, model.RunIdle, e.State().Kind)
}

func TestHappyPathReachesCooldownThenIdle(t *testing.T) {
	e := New()
	now := time.Now()
	_, err := e.Start(testProgram(), now, false, false)
	require.NoError(t, err)
	assert.Equal(t, model.RunRunning, e.State().Kind)

	// Not yet elapsed.
	mid := now.Add(1000 * time.Second)
	e.Advance(mid)
	assert.Equal(t, model.RunRunning, e.State().Kind, "must not reach Cooldown before total elapsed")

	// (0+25+5)*60 = 1800s elapsed.
	done := now.Add(1800 * time.Second)
	e.Advance(done)
	assert.Equal(t, model.RunCooldown, e.State().Kind)

	// Not yet 5 minutes into cooldown.
	e.Advance(done.Add(4 * time.Minute))
	assert.Equal(t, model.RunCooldown, e.State().Kind)

	e.Advance(done.Add(CooldownDuration))
	assert.Equal(t, model.RunIdle, e.State().Kind)
}

func TestEmergencyDuringRunFaultsImmediately(t *testing.T) {
	e := New()
	now := time.Now()
	_, err := e.Start(testProgram(), now, false, false)
	require.NoError(t, err)

	actions := e.EmergencyStop()
	assert.Equal(t, model.RunFault, e.State().Kind)
	assert.Equal(t, model.ErrEmergency, e.State().FaultKind)
	assert.True(t, actions.HeaterOff)
	assert.True(t, actions.FanOn)
}

func TestDoorOpenPausesAndResumePreservesElapsed(t *testing.T) {
	e := New()
	now := time.Now()
	_, err := e.Start(testProgram(), now, false, false)
	require.NoError(t, err)

	pauseAt := now.Add(5 * time.Second)
	e.DoorOpened(pauseAt)
	require.Equal(t, model.RunPaused, e.State().Kind)
	assert.Equal(t, 5*time.Second, e.State().ElapsedInStep)

	// Closing the door alone doesn't resume; only Resume() does.
	resumeAt := pauseAt.Add(3 * time.Second)
	require.NoError(t, e.Resume(resumeAt))
	assert.Equal(t, model.RunRunning, e.State().Kind)

	// step_started_at should be resumeAt - 5s, so ElapsedSeconds(resumeAt) == 5s.
	assert.InDelta(t, 5.0, e.ElapsedSeconds(resumeAt), 0.001)
}

func TestFaultAbsorbsUntilExplicitStop(t *testing.T) {
	e := New()
	now := time.Now()
	_, err := e.Start(testProgram(), now, false, false)
	require.NoError(t, err)
	e.EmergencyStop()

	actions := e.Advance(now.Add(time.Hour))
	assert.Equal(t, Actions{}, actions, "fault state issues no further actuation on Advance")
	assert.Equal(t, model.RunFault, e.State().Kind)

	stopActions := e.Stop(now.Add(time.Hour))
	assert.Equal(t, model.RunIdle, e.State().Kind)
	assert.True(t, stopActions.HeaterOff)
}

func TestUserProgramRunsToCompletion(t *testing.T) {
	e := New()
	p := model.Program{
		ID:   7,
		Name: "Test",
		Steps: []model.Step{
			{TargetTemp: 700, DurationMin: 10, HoldMin: 2, RampMin: 5},
		},
		Origin: model.OriginUser,
	}
	now := time.Now()
	_, err := e.Start(p, now, false, false)
	require.NoError(t, err)

	// 17*60 = 1020s
	e.Advance(now.Add(1020 * time.Second))
	assert.Equal(t, model.RunCooldown, e.State().Kind)
}
