// Package machine is the thin runtime an agent's hierarchical policy plugs
// into: at each point in its call stack it reports a label and how many
// local alternatives it offers, and the engine tells it which one was
// chosen. The runtime itself carries no learning logic; all of that lives in
// the learner package.
package machine

import (
	"context"

	"keepaway/learner"
)

// Policy is one agent's hierarchical machine. ChoicePoint must return the
// same label and cardinality until Advance is called — the engine polls it
// repeatedly while the agent is a passive participant in a joint decision,
// and a label that changed underneath it would corrupt the joint-state
// bookkeeping.
type Policy interface {
	// ChoicePoint reports the current call-stack position and how many
	// local alternatives are available there (1 means no real choice).
	ChoicePoint() (label string, numChoices int)
	// State returns the continuous feature vector observed at the current
	// tick, shared by every agent's extractor at a given instant.
	State() []float64
	// Advance applies the selected local alternative and moves to the next
	// choice point.
	Advance(choice int)
	// Done reports whether this agent's episode has reached a terminal state.
	Done() bool
}

// Stepper is the subset of *learner.Engine a Runner needs, so tests can
// supply a fake rather than a full Engine.
type Stepper interface {
	Step(ctx context.Context, agentIdx int, refresh func() learner.ChoicePointInput) (int, error)
	EndEpisode(agentIdx int, tick int64) error
}

// Runner drives one agent's Policy against a Stepper until the policy
// reports Done, then ends the episode.
type Runner struct {
	AgentIdx int
	Policy   Policy
	Engine   Stepper
}

// RunEpisode advances the policy to completion, one decision at a time.
func (r *Runner) RunEpisode(ctx context.Context) error {
	var tick int64
	for !r.Policy.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		choice, err := r.Engine.Step(ctx, r.AgentIdx, func() learner.ChoicePointInput {
			label, numChoices := r.Policy.ChoicePoint()
			return learner.ChoicePointInput{
				Tick:       tick,
				Label:      label,
				NumChoices: numChoices,
				State:      r.Policy.State(),
			}
		})
		if err != nil {
			return err
		}
		r.Policy.Advance(choice)
		tick++
	}
	return r.Engine.EndEpisode(r.AgentIdx, tick)
}
