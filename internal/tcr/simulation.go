package tcr

import (
	"math"
	"math/rand"
	"time"

	"github.com/itohio/kilnctl/internal/model"
)

const (
	ambientTemp  = 20.0
	decayRateC   = 0.1 // °C/s toward ambient when not actively heating
	maxRiseRateC = 0.5 // °C/s at 100% heater duty
	noiseBandC   = 1.0 // +/-1 °C
)

// Simulator synthesizes thermocouple samples per spec §4.3: while running
// with target > current, current rises at up to maxRiseRateC scaled by
// heater duty, plus noise, clamped to target; otherwise it decays toward
// ambient. One Simulator instance stands in for the physical plant that
// both TC1 and TC2 would be reading from.
type Simulator struct {
	rng     *rand.Rand
	current model.Temperature
}

// NewSimulator starts the synthetic plant at ambient temperature.
func NewSimulator(seed int64) *Simulator {
	return &Simulator{
		rng:     rand.New(rand.NewSource(seed)),
		current: ambientTemp,
	}
}

// Step advances the synthetic plant by dt given whether the loop is
// actively driving toward target at the given heater duty (0..100), and
// returns the two channel samples, each carrying its own independent noise.
func (s *Simulator) Step(dt time.Duration, active bool, target model.Temperature, heaterDuty float64) (tc1, tc2 model.Sample) {
	secs := dt.Seconds()
	cur := float64(s.current)

	if active && float64(target) > cur {
		rise := maxRiseRateC * (heaterDuty / 100) * secs
		cur += rise
		if cur > float64(target) {
			cur = float64(target)
		}
	} else {
		delta := decayRateC * secs
		if cur > ambientTemp {
			cur -= delta
			if cur < ambientTemp {
				cur = ambientTemp
			}
		} else if cur < ambientTemp {
			cur += delta
			if cur > ambientTemp {
				cur = ambientTemp
			}
		}
	}

	s.current = model.Temperature(cur)

	noise1 := (s.rng.Float64()*2 - 1) * noiseBandC
	noise2 := (s.rng.Float64()*2 - 1) * noiseBandC

	return s.sample(cur + noise1), s.sample(cur + noise2)
}

func (s *Simulator) sample(v float64) model.Sample {
	t := model.Temperature(math.Round(v*10) / 10)
	if !t.Valid() {
		return model.Sample{Fault: model.FaultOutOfRange}
	}
	return model.Sample{Temp: t}
}
