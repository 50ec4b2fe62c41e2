// Package game holds the rules of a revolver round that do not depend on room bookkeeping.
package game

import (
	"math/rand"
	"time"
)

// DefaultEliminationChance is the probability that a spin fires.
const DefaultEliminationChance = 1.0 / 3.0

// Source is the randomness a Spinner draws from. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// NewSource returns a time-seeded source. It is not safe for concurrent use;
// every room owns its own.
func NewSource() Source {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Outcome is the result of one spin over n players.
type Outcome struct {
	Target     int
	Eliminated bool
}

// Spinner picks a target uniformly and independently decides whether the shot fires.
type Spinner struct {
	source Source
	chance float64
}

func NewSpinner(source Source, chance float64) *Spinner {
	if source == nil {
		source = NewSource()
	}
	return &Spinner{source: source, chance: chance}
}

// Spin draws an outcome for n players. n must be positive.
func (s *Spinner) Spin(n int) Outcome {
	target := s.source.Intn(n)
	return Outcome{
		Target:     target,
		Eliminated: s.source.Float64() < s.chance,
	}
}

// Fixed is a Source that always returns the same draws; tests use it to force outcomes.
type Fixed struct {
	Target int
	Roll   float64
}

func (f Fixed) Intn(n int) int {
	if f.Target >= n {
		return n - 1
	}
	return f.Target
}

func (f Fixed) Float64() float64 { return f.Roll }

var (
	// AlwaysFire makes every spin eliminate the first player.
	AlwaysFire = Fixed{Target: 0, Roll: 0}
	// NeverFire makes every spin miss.
	NeverFire = Fixed{Target: 0, Roll: 1}
)
