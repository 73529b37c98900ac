package audit

import (
	"math/rand/v2"
	"sync"
)

// Sampler keeps a configurable fraction of events per action. Actions
// without an explicit rate are always kept.
type Sampler struct {
	mu           sync.RWMutex
	rateByAction map[Action]float64
	random       func() float64
}

// NewSampler returns a sampler that keeps everything.
func NewSampler() *Sampler {
	return &Sampler{
		rateByAction: make(map[Action]float64),
		random:       rand.Float64,
	}
}

// SetRate sets the kept fraction for action, clamped to [0, 1].
func (s *Sampler) SetRate(action Action, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clamp(rate)
}

// Keep reports whether an event with action should be kept.
func (s *Sampler) Keep(action Action) bool {
	s.mu.RLock()
	rate, ok := s.rateByAction[action]
	s.mu.RUnlock()
	switch {
	case !ok || rate >= 1:
		return true
	case rate <= 0:
		return false
	default:
		return s.random() < rate
	}
}

func clamp(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
