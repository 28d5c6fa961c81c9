package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/kilnctl/internal/controller"
	"github.com/itohio/kilnctl/internal/pid"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, controller.DefaultPins().HeaterSSR, cfg.Pins.HeaterSSR)
	assert.Equal(t, controller.DefaultTickPeriod, cfg.Control.TickPeriod)
	assert.Equal(t, pid.DefaultKp, cfg.PID.Kp)
	assert.Equal(t, pid.DefaultKi, cfg.PID.Ki)
	assert.Equal(t, pid.DefaultKd, cfg.PID.Kd)
	assert.Equal(t, "programs.yaml", cfg.Catalog.StorePath)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, Default().Control.TickPeriod, cfg.Control.TickPeriod)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
gpio:
  force_simulation: true

pins:
  heater_ssr: 4
  tc1_cs: 5
  tc1_clk: 6
  tc1_do: 7
  tc2_cs: 8
  tc2_do: 9
  vacuum: 10
  fan: 11
  door: 12
  emergency: 13

control:
  tick_period: 1s

pid:
  kp: 10.5
  ki: 0.2
  kd: 1.1

catalog:
  store_path: "/var/lib/kilnctl/programs.yaml"

http:
  addr: ":9090"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.True(t, cfg.GPIO.ForceSimulation)
	assert.Equal(t, 4, cfg.Pins.HeaterSSR)
	assert.Equal(t, 13, cfg.Pins.Emergency)
	assert.Equal(t, 1*time.Second, cfg.Control.TickPeriod)
	assert.Equal(t, 10.5, cfg.PID.Kp)
	assert.Equal(t, "/var/lib/kilnctl/programs.yaml", cfg.Catalog.StorePath)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
http:
  addr: ":9999"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Overridden field.
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	// Backfilled from Default via ensureDefaults.
	assert.Equal(t, controller.DefaultPins().HeaterSSR, cfg.Pins.HeaterSSR)
	assert.Equal(t, controller.DefaultTickPeriod, cfg.Control.TickPeriod)
	assert.Equal(t, pid.DefaultKp, cfg.PID.Kp)
	assert.Equal(t, "programs.yaml", cfg.Catalog.StorePath)
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Addr = ":7000"
	cfg.Pins.Door = 99

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, ":7000", loaded.HTTP.Addr)
	assert.Equal(t, 99, loaded.Pins.Door)
}
