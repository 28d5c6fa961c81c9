package gpio

import "sync"

// simPin is an in-memory pin: writes are recorded, reads return the last
// injected or written level. A pin configured with a pull-up before any
// level is set reads High (the interlocks are active-low with pull-ups, so
// "no finger on the button" reads High); any other pin defaults Low.
type simPin struct {
	chip *Simulation
	bcm  int
}

func (p simPin) SetDirection(d Direction) {
	p.chip.mu.Lock()
	defer p.chip.mu.Unlock()
	p.chip.dir[p.bcm] = d
}

func (p simPin) SetPull(pull Pull) {
	p.chip.mu.Lock()
	defer p.chip.mu.Unlock()
	p.chip.pull[p.bcm] = pull
	if _, ok := p.chip.level[p.bcm]; !ok {
		if pull == PullUp {
			p.chip.level[p.bcm] = High
		} else {
			p.chip.level[p.bcm] = Low
		}
	}
}

func (p simPin) Write(l Level) {
	p.chip.mu.Lock()
	defer p.chip.mu.Unlock()
	p.chip.level[p.bcm] = l
}

func (p simPin) Read() Level {
	p.chip.mu.Lock()
	defer p.chip.mu.Unlock()
	return p.chip.level[p.bcm]
}

// Simulation is the no-op Chip used when no hardware driver is present, or
// deliberately chosen for tests. All pin operations are recorded rather
// than touching real hardware; Inject lets a test drive input pin levels.
type Simulation struct {
	mu    sync.Mutex
	dir   map[int]Direction
	pull  map[int]Pull
	level map[int]Level
}

// NewSimulation returns a ready-to-use Simulation chip. All pins default
// to Low until SetPull or Inject sets them.
func NewSimulation() *Simulation {
	return &Simulation{
		dir:   make(map[int]Direction),
		pull:  make(map[int]Pull),
		level: make(map[int]Level),
	}
}

func (s *Simulation) Pin(bcm int) Pin {
	return simPin{chip: s, bcm: bcm}
}

func (s *Simulation) Available() bool { return false }

func (s *Simulation) Close() error { return nil }

// Inject sets the level a simulated input pin will read on its next Read
// call — used by tests to raise/lower the door and emergency lines.
func (s *Simulation) Inject(bcm int, l Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level[bcm] = l
}
