// Package dashboard serves a realtime websocket view of a running learner:
// episode count, the weight vector's L1 norm, eligibility-trace support
// size, and each agent's current hierarchical-machine label. It reuses the
// same fastview plumbing the training visualizer builds on, re-themed from
// grid cells to learner telemetry.
package dashboard

import (
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"keepaway/learner"
	"keepaway/weights"
)

// Snapshot is one telemetry frame handed to a view for rendering.
type Snapshot struct {
	EpisodeCount  int64
	Tick          int64
	MachineLabels []string
	Cardinalities []int
	LastQValue    float64
	NumNonzero    int
	MinimumTrace  float64
	WeightNorm    float64
}

// NewFeed merges per-episode Stats events from a learner with a periodic
// weight-norm sample and turns them into a single Snapshot stream. The
// weight norm is not part of Stats because summing the full weight vector
// is an O(numWeights) scan, too costly to take on every episode boundary;
// sampling it on its own timer keeps that cost off the training hot path.
func NewFeed(
	done <-chan struct{},
	stats <-chan learner.Stats,
	store *weights.Store,
	pollEvery time.Duration,
) <-chan Snapshot {
	out := make(chan Snapshot)

	go func() {
		defer close(out)

		var last Snapshot
		ticker := channerics.NewTicker(done, pollEvery)
		for {
			select {
			case <-done:
				return
			case s, ok := <-stats:
				if !ok {
					return
				}
				last = fromStats(s, last.WeightNorm)
			case <-ticker:
				last.WeightNorm = store.WeightNorm()
			}

			select {
			case out <- last:
			case <-done:
				return
			}
		}
	}()

	return out
}

func fromStats(s learner.Stats, weightNorm float64) Snapshot {
	return Snapshot{
		EpisodeCount:  s.EpisodeCount,
		Tick:          s.Tick,
		MachineLabels: s.MachineLabels,
		Cardinalities: s.Cardinalities,
		LastQValue:    s.LastQValue,
		NumNonzero:    s.NumNonzero,
		MinimumTrace:  s.MinimumTrace,
		WeightNorm:    weightNorm,
	}
}
