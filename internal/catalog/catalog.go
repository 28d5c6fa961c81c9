// Package catalog implements the Program Catalog of spec §4.8: an
// immutable set of built-in programs plus a persisted set of user
// programs. User programs are persisted to a single YAML document using
// the teacher's whole-file Load/Save idiom (github.com/itohio/golpm's
// pkg/config), not an incremental WAL — matching the "single
// append-overwrite document" described in the spec.
package catalog

import (
	"fmt"
	"sort"

	"github.com/itohio/kilnctl/internal/model"
)

// ErrNotFound is returned by Get/Delete when the id doesn't exist.
var ErrNotFound = fmt.Errorf("catalog: program not found")

// ErrNotDeletable is returned when deleting a built-in program is attempted.
var ErrNotDeletable = fmt.Errorf("catalog: built-in programs cannot be deleted")

// Store is the persistence boundary the Catalog delegates to. A YAML-backed
// implementation lives in persist.go; tests can substitute an in-memory
// fake.
type Store interface {
	Load() (map[int]model.Program, error)
	Save(map[int]model.Program) error
}

// Catalog resolves program ids to step lists and manages the user-program
// subset. The Executor borrows (never mutates) the Program it returns.
type Catalog struct {
	builtin map[int]model.Program
	user    map[int]model.Program
	store   Store
}

// New loads persisted user programs through store and seeds the built-in
// set. A persistence error on load downgrades to an empty user set with
// the error returned to the caller for logging — it never aborts startup.
func New(store Store) (*Catalog, error) {
	c := &Catalog{
		builtin: builtinPrograms(),
		user:    make(map[int]model.Program),
		store:   store,
	}

	loaded, err := store.Load()
	if err != nil {
		return c, err
	}
	c.user = loaded
	return c, nil
}

// List returns all programs, built-in first, each ordered by id.
func (c *Catalog) List() []model.Program {
	out := make([]model.Program, 0, len(c.builtin)+len(c.user))
	out = append(out, sortedValues(c.builtin)...)
	out = append(out, sortedValues(c.user)...)
	return out
}

// Get resolves an id to a Program, or ErrNotFound.
func (c *Catalog) Get(id int) (model.Program, error) {
	if p, ok := c.builtin[id]; ok {
		return p, nil
	}
	if p, ok := c.user[id]; ok {
		return p, nil
	}
	return model.Program{}, ErrNotFound
}

// SaveUser validates and persists a new user program, allocating
// id = max(existing_ids) + 1, and returns the stored Program.
func (c *Catalog) SaveUser(name string, steps []model.Step) (model.Program, error) {
	if len(steps) == 0 {
		return model.Program{}, fmt.Errorf("%w: at least one step required", ErrInvalidProgram)
	}
	for i, s := range steps {
		if !s.TargetTemp.Valid() {
			return model.Program{}, fmt.Errorf("%w: step %d target_temp out of range", ErrInvalidProgram, i)
		}
		if s.VacuumKPa > 0 {
			return model.Program{}, fmt.Errorf("%w: step %d vacuum_kPa must be <= 0", ErrInvalidProgram, i)
		}
	}

	id := c.nextID()
	p := model.Program{ID: id, Name: name, Steps: steps, Origin: model.OriginUser}
	c.user[id] = p

	if err := c.store.Save(c.user); err != nil {
		delete(c.user, id)
		return model.Program{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return p, nil
}

// DeleteUser removes a user program. Built-in programs return
// ErrNotDeletable; unknown ids return ErrNotFound.
func (c *Catalog) DeleteUser(id int) error {
	if _, ok := c.builtin[id]; ok {
		return ErrNotDeletable
	}
	if _, ok := c.user[id]; !ok {
		return ErrNotFound
	}
	delete(c.user, id)
	if err := c.store.Save(c.user); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (c *Catalog) nextID() int {
	max := 0
	for id := range c.builtin {
		if id > max {
			max = id
		}
	}
	for id := range c.user {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func sortedValues(m map[int]model.Program) []model.Program {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]model.Program, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// ErrInvalidProgram and ErrPersistence wrap spec §7's InvalidProgram and
// PersistenceError error kinds for catalog-raised errors.
var (
	ErrInvalidProgram = fmt.Errorf("catalog: invalid program")
	ErrPersistence    = fmt.Errorf("catalog: persistence error")
)

// builtinPrograms seeds the immutable catalog. IDs 1-6 are reserved for
// built-ins so that user programs always start at 7 or above on a fresh
// catalog, matching the id=N examples in spec §8.
func builtinPrograms() map[int]model.Program {
	mk := func(id int, name string, steps ...model.Step) model.Program {
		return model.Program{ID: id, Name: name, Steps: steps, Origin: model.OriginBuiltin}
	}

	return map[int]model.Program{
		1: mk(1, "IPS e.max Press",
			model.Step{TargetTemp: 850, DurationMin: 25, HoldMin: 5, RampMin: 0, VacuumKPa: -80}),
		2: mk(2, "Feldspathic Porcelain Opaque",
			model.Step{TargetTemp: 960, DurationMin: 1, HoldMin: 1, RampMin: 6, VacuumKPa: -80}),
		3: mk(3, "Feldspathic Porcelain Body & Incisal",
			model.Step{TargetTemp: 930, DurationMin: 1, HoldMin: 1, RampMin: 6, VacuumKPa: -80}),
		4: mk(4, "Zirconia Liner",
			model.Step{TargetTemp: 960, DurationMin: 1, HoldMin: 2, RampMin: 5, VacuumKPa: 0}),
		5: mk(5, "Stain & Glaze",
			model.Step{TargetTemp: 780, DurationMin: 1, HoldMin: 0, RampMin: 4, VacuumKPa: 0}),
		6: mk(6, "Press-to-Zirconia Two-Step",
			model.Step{TargetTemp: 700, DurationMin: 2, HoldMin: 1, RampMin: 3, VacuumKPa: -80},
			model.Step{TargetTemp: 910, DurationMin: 20, HoldMin: 5, RampMin: 4, VacuumKPa: -80}),
	}
}
