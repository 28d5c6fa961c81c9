package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/kilnctl/internal/model"
)

func newTestStore(t *testing.T) *YAMLStore {
	dir := t.TempDir()
	return NewYAMLStore(filepath.Join(dir, "programs.yaml"), nil)
}

func TestBuiltinDeleteRefused(t *testing.T) {
	c, err := New(newTestStore(t))
	require.NoError(t, err)

	err = c.DeleteUser(1)
	assert.ErrorIs(t, err, ErrNotDeletable)
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	c, err := New(newTestStore(t))
	require.NoError(t, err)

	err = c.DeleteUser(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveUserThenGet(t *testing.T) {
	c, err := New(newTestStore(t))
	require.NoError(t, err)

	p, err := c.SaveUser("Test", []model.Step{
		{TargetTemp: 700, DurationMin: 10, HoldMin: 2, RampMin: 5, VacuumKPa: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, "Test", p.Name)
	assert.Equal(t, model.OriginUser, p.Origin)

	got, err := c.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestSaveUserRejectsEmptySteps(t *testing.T) {
	c, err := New(newTestStore(t))
	require.NoError(t, err)

	_, err = c.SaveUser("Empty", nil)
	assert.ErrorIs(t, err, ErrInvalidProgram)
}

func TestIDAllocationIsMaxPlusOne(t *testing.T) {
	c, err := New(newTestStore(t))
	require.NoError(t, err)

	step := []model.Step{{TargetTemp: 700, DurationMin: 1, RampMin: 1}}
	p1, err := c.SaveUser("A", step)
	require.NoError(t, err)
	p2, err := c.SaveUser("B", step)
	require.NoError(t, err)
	assert.Equal(t, p1.ID+1, p2.ID)
}

func TestPersistenceRoundTripsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "programs.yaml")

	store1 := NewYAMLStore(path, nil)
	c1, err := New(store1)
	require.NoError(t, err)

	steps := []model.Step{{TargetTemp: 700, DurationMin: 10, HoldMin: 2, RampMin: 5, VacuumKPa: -20}}
	saved, err := c1.SaveUser("Test", steps)
	require.NoError(t, err)

	// Simulate restart: fresh Catalog over the same on-disk store.
	store2 := NewYAMLStore(path, nil)
	c2, err := New(store2)
	require.NoError(t, err)

	got, err := c2.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Name, got.Name)
	assert.Equal(t, saved.Steps, got.Steps)
}

func TestLoadSkipsInvalidEntriesWithoutAbortingStartup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "programs.yaml")

	bad := `
programs:
  7:
    name: Bad
    steps:
      - temp: 99999
        time: 1
        vacuum: 0
        hold: 0
        ramp: 0
  8:
    name: Good
    steps:
      - temp: 700
        time: 10
        vacuum: 0
        hold: 2
        ramp: 5
`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	c, err := New(NewYAMLStore(path, nil))
	require.NoError(t, err)

	_, err = c.Get(7)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := c.Get(8)
	require.NoError(t, err)
	assert.Equal(t, "Good", p.Name)
}
