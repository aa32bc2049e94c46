// Package demo is a small synthetic hierarchical machine used by tests and
// the cmd/keepaway demo binary in place of a real soccer-playing policy: a
// root "Pass or Hold" choice that, when it picks Pass, drops into a 3-way
// "Lead, Support or Cut" receiver sub-choice before the episode ends.
package demo

import "math/rand"

const (
	rootLabel = "root"
	passLabel = "root/pass/choose-receiver"
	holdLabel = "root/hold"
)

// Policy is a demo agent's local hierarchical machine. It is not
// thread-safe; one Policy belongs to exactly one agent goroutine.
type Policy struct {
	rng *rand.Rand

	stateDim int
	tick     int

	frame string
	done  bool

	lastChoice int
}

// NewPolicy returns a fresh demo policy seeded for reproducible traces.
func NewPolicy(seed int64, stateDim int) *Policy {
	return &Policy{
		rng:      rand.New(rand.NewSource(seed)),
		stateDim: stateDim,
		frame:    rootLabel,
	}
}

// ChoicePoint reports the current call-stack frame. The root frame offers 2
// alternatives (pass, hold); the pass sub-frame offers 3 (lead, support,
// cut); the hold frame is terminal and offers a single (dummy) alternative.
func (p *Policy) ChoicePoint() (string, int) {
	switch p.frame {
	case rootLabel:
		return rootLabel, 2
	case passLabel:
		return passLabel, 3
	default:
		return holdLabel, 1
	}
}

// State returns a synthetic continuous feature vector: the tick counter
// broadcast across every dimension, perturbed slightly so tile coding has
// something nontrivial to hash.
func (p *Policy) State() []float64 {
	s := make([]float64, p.stateDim)
	base := float64(p.tick)
	for i := range s {
		s[i] = base + float64(i)*0.1
	}
	return s
}

// Advance applies the selected alternative and moves to the next frame.
func (p *Policy) Advance(choice int) {
	p.lastChoice = choice
	p.tick++

	switch p.frame {
	case rootLabel:
		if choice == 0 {
			p.frame = passLabel
		} else {
			p.frame = holdLabel
			p.done = true
		}
	case passLabel:
		p.frame = holdLabel
		p.done = true
	default:
		p.done = true
	}
}

// Done reports whether this agent's episode has ended.
func (p *Policy) Done() bool { return p.done }

// Reset restarts the policy at the root frame for a new episode.
func (p *Policy) Reset() {
	p.frame = rootLabel
	p.done = false
}
