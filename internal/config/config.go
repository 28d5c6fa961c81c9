// Package config loads process-level configuration: pin assignments, tick
// period, GPIO mode, catalog storage path, and PID defaults, mirroring the
// teacher's read-whole-file/write-whole-file YAML idiom and its
// ensureDefaults missing-field-backfill (github.com/itohio/golpm's
// pkg/config).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/kilnctl/internal/controller"
	"github.com/itohio/kilnctl/internal/pid"
)

// Config is the top-level process configuration.
type Config struct {
	GPIO    GPIOConfig    `yaml:"gpio"`
	Pins    PinsConfig    `yaml:"pins"`
	Control ControlConfig `yaml:"control"`
	PID     PIDConfig     `yaml:"pid"`
	Catalog CatalogConfig `yaml:"catalog"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// GPIOConfig selects the pin driver.
type GPIOConfig struct {
	// ForceSimulation runs in Simulation Mode even if hardware is available,
	// useful for development off-target.
	ForceSimulation bool `yaml:"force_simulation"`
}

// PinsConfig mirrors controller.Pins for YAML (de)serialization.
type PinsConfig struct {
	HeaterSSR int `yaml:"heater_ssr"`
	TC1CS     int `yaml:"tc1_cs"`
	TC1CLK    int `yaml:"tc1_clk"`
	TC1DO     int `yaml:"tc1_do"`
	TC2CS     int `yaml:"tc2_cs"`
	TC2DO     int `yaml:"tc2_do"`
	Vacuum    int `yaml:"vacuum"`
	Fan       int `yaml:"fan"`
	Door      int `yaml:"door"`
	Emergency int `yaml:"emergency"`
}

// ToControllerPins converts to the controller package's Pins type.
func (p PinsConfig) ToControllerPins() controller.Pins {
	return controller.Pins{
		HeaterSSR: p.HeaterSSR,
		TC1CS:     p.TC1CS, TC1CLK: p.TC1CLK, TC1DO: p.TC1DO,
		TC2CS: p.TC2CS, TC2DO: p.TC2DO,
		Vacuum:    p.Vacuum,
		Fan:       p.Fan,
		Door:      p.Door,
		Emergency: p.Emergency,
	}
}

func pinsFromController(p controller.Pins) PinsConfig {
	return PinsConfig{
		HeaterSSR: p.HeaterSSR,
		TC1CS:     p.TC1CS, TC1CLK: p.TC1CLK, TC1DO: p.TC1DO,
		TC2CS: p.TC2CS, TC2DO: p.TC2DO,
		Vacuum:    p.Vacuum,
		Fan:       p.Fan,
		Door:      p.Door,
		Emergency: p.Emergency,
	}
}

// ControlConfig holds the tick period.
type ControlConfig struct {
	TickPeriod time.Duration `yaml:"tick_period"`
}

// PIDConfig holds the regulator's initial gains.
type PIDConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// CatalogConfig holds the user-program persistence path.
type CatalogConfig struct {
	StorePath string `yaml:"store_path"`
}

// HTTPConfig holds the HTTP adapter's listen address.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration with the spec's documented defaults.
func Default() *Config {
	return &Config{
		Pins:    pinsFromController(controller.DefaultPins()),
		Control: ControlConfig{TickPeriod: controller.DefaultTickPeriod},
		PID: PIDConfig{
			Kp: pid.DefaultKp,
			Ki: pid.DefaultKi,
			Kd: pid.DefaultKd,
		},
		Catalog: CatalogConfig{StorePath: "programs.yaml"},
		HTTP:    HTTPConfig{Addr: ":8080"},
	}
}

// Load reads filename and returns a Config with missing fields backfilled
// from Default. A missing file is not an error: it yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filename, err)
	}

	cfg.ensureDefaults()
	return cfg, nil
}

// Save writes cfg to filename as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", filename, err)
	}
	return nil
}

// ensureDefaults backfills zero-valued fields with the documented defaults,
// so a partial YAML file (e.g. only overriding pins) still yields a
// complete, valid Config.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Pins == (PinsConfig{}) {
		c.Pins = def.Pins
	}
	if c.Control.TickPeriod == 0 {
		c.Control.TickPeriod = def.Control.TickPeriod
	}
	if c.PID.Kp == 0 && c.PID.Ki == 0 && c.PID.Kd == 0 {
		c.PID = def.PID
	}
	if c.Catalog.StorePath == "" {
		c.Catalog.StorePath = def.Catalog.StorePath
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = def.HTTP.Addr
	}
}
