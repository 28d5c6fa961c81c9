package catalog

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/itohio/kilnctl/internal/model"
)

// yamlProgram is the on-disk shape of a user program: temperatures in °C,
// times in minutes, vacuum in kPa (<=0), per spec §6's persisted-state
// description.
type yamlProgram struct {
	Name  string      `yaml:"name"`
	Steps []yamlStep  `yaml:"steps"`
}

type yamlStep struct {
	Temp   float64 `yaml:"temp"`
	Time   float64 `yaml:"time"`
	Vacuum float64 `yaml:"vacuum"`
	Hold   float64 `yaml:"hold"`
	Ramp   float64 `yaml:"ramp"`
}

type yamlDocument struct {
	Programs map[int]yamlProgram `yaml:"programs"`
}

// YAMLStore persists user programs to a single YAML document, reading and
// rewriting the whole file on every mutation — the teacher's
// pkg/config.Load/Save granularity, not an incremental WAL.
type YAMLStore struct {
	path   string
	logger *slog.Logger
}

// NewYAMLStore targets path as the single persisted document.
func NewYAMLStore(path string, logger *slog.Logger) *YAMLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &YAMLStore{path: path, logger: logger}
}

// Load reads the document. A missing file yields an empty, non-error
// result (first run). Individual malformed entries are skipped with a
// logged warning rather than aborting the whole load.
func (s *YAMLStore) Load() (map[int]model.Program, error) {
	out := make(map[int]model.Program)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return out, fmt.Errorf("parse %s: %w", s.path, err)
	}

	for id, yp := range doc.Programs {
		steps, err := fromYAMLSteps(yp.Steps)
		if err != nil {
			s.logger.Warn("skipping invalid persisted program", "id", id, "error", err)
			continue
		}
		out[id] = model.Program{ID: id, Name: yp.Name, Steps: steps, Origin: model.OriginUser}
	}
	return out, nil
}

// Save overwrites the document with the given user-program set.
func (s *YAMLStore) Save(programs map[int]model.Program) error {
	doc := yamlDocument{Programs: make(map[int]yamlProgram, len(programs))}
	for id, p := range programs {
		doc.Programs[id] = yamlProgram{Name: p.Name, Steps: toYAMLSteps(p.Steps)}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func toYAMLSteps(steps []model.Step) []yamlStep {
	out := make([]yamlStep, len(steps))
	for i, s := range steps {
		out[i] = yamlStep{
			Temp:   float64(s.TargetTemp),
			Time:   s.DurationMin,
			Vacuum: s.VacuumKPa,
			Hold:   s.HoldMin,
			Ramp:   s.RampMin,
		}
	}
	return out
}

func fromYAMLSteps(in []yamlStep) ([]model.Step, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("program has no steps")
	}
	out := make([]model.Step, len(in))
	for i, ys := range in {
		t := model.Temperature(ys.Temp)
		if !t.Valid() {
			return nil, fmt.Errorf("step %d temp %.1f out of range", i, ys.Temp)
		}
		if ys.Vacuum > 0 {
			return nil, fmt.Errorf("step %d vacuum %.1f must be <= 0", i, ys.Vacuum)
		}
		out[i] = model.Step{
			TargetTemp:  t,
			DurationMin: ys.Time,
			HoldMin:     ys.Hold,
			RampMin:     ys.Ramp,
			VacuumKPa:   ys.Vacuum,
		}
	}
	return out, nil
}
