// Package learner is the core SMDP SARSA(lambda)/Q-learning engine: N agent
// goroutines publish their local choice points into a shared region, barrier
// together, and the leader (agent 0) runs one joint decision on everyone's
// behalf, selecting and learning over the Cartesian product of per-agent
// alternatives rather than a single flat action set.
package learner

import (
	"context"
	"math"
	"math/rand"

	"keepaway/barrier"
	"keepaway/choice"
	"keepaway/sharedstate"
	"keepaway/successor"
	"keepaway/tilecoder"
	"keepaway/weights"
)

// Config holds the hyperparameters and capacity bounds an Engine needs.
// Widths[v] scales continuous feature v before tile coding; Gamma == 1
// degenerates the SMDP return to the average-reward (undiscounted) case.
type Config struct {
	Learning  bool
	QLearning bool

	Alpha   float64
	Lambda  float64
	Epsilon float64
	Gamma   float64

	Widths []float64

	NumWeights    int
	MaxActions    int
	MaxNZ         int
	MaxNumTilings int
	InitialWeight float64
}

// ChoicePointInput is what an agent's hierarchical machine supplies at each
// decision round: its current call-stack label, how many local alternatives
// it offers (1 means no real choice), the shared state vector observed at
// this tick, and the tick itself.
type ChoicePointInput struct {
	Tick        int64
	Label       string
	NumChoices  int
	State       []float64
}

// Engine coordinates N agents over one joint action-value function. The
// zero value is not usable; construct with New.
type Engine struct {
	cfg Config

	region   *sharedstate.Region
	barrier  *barrier.Barrier
	registry *choice.Registry
	det      *successor.Cache
	store    *weights.Store
	table    *tilecoder.CollisionTable

	rng *rand.Rand

	tilesPerRow int

	// Leader-only scratch state (never touched by non-leader goroutines,
	// and only ever advanced between full barrier rounds).
	numChoicesMap    map[string][]int
	lastCommitLabels []string
	lastQValue       float64
	episodeCount     int64

	// saveFn, if set, is invoked by the leader roughly once every 1000
	// episodes to checkpoint weights without blocking every episode on disk I/O.
	saveFn func() error

	// stats, if set, receives one frame per completed episode. Only ever
	// sent to by agent 0, so no synchronization is needed beyond the
	// channel send itself.
	stats chan<- Stats
}

// Stats is one telemetry frame describing the state of a just-finished
// episode, sent on the channel registered with SetStats.
type Stats struct {
	EpisodeCount  int64
	Tick          int64
	MachineLabels []string
	Cardinalities []int
	LastQValue    float64
	NumNonzero    int
	MinimumTrace  float64
}

// SetStats registers ch to receive one Stats frame per episode end. Sends
// are non-blocking: a consumer that falls behind simply misses frames
// rather than stalling training.
func (e *Engine) SetStats(ch chan<- Stats) {
	e.stats = ch
}

// New allocates an Engine for n agents. table and store may be nil to have
// New allocate fresh ones (pass non-nil to resume from a loaded checkpoint).
func New(n int, cfg Config, table *tilecoder.CollisionTable, store *weights.Store, saveFn func() error) (*Engine, error) {
	tilesPerRow, err := tilecoder.NumTilings(len(cfg.Widths), cfg.MaxNumTilings)
	if err != nil {
		return nil, err
	}

	if table == nil {
		table = tilecoder.NewCollisionTable(nextPowerOfTwo(cfg.NumWeights))
	}
	if store == nil {
		store = weights.NewStore(cfg.NumWeights, cfg.MaxNZ, cfg.InitialWeight, cfg.Alpha)
	}

	return &Engine{
		cfg:           cfg,
		region:        sharedstate.NewRegion(n),
		barrier:       barrier.New(n),
		registry:      choice.NewRegistry(cfg.MaxActions),
		det:           successor.NewCache(),
		store:         store,
		table:         table,
		rng:           rand.New(rand.NewSource(1)),
		tilesPerRow:   tilesPerRow,
		numChoicesMap: make(map[string][]int),
		lastQValue:    0,
		saveFn:        saveFn,
	}, nil
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Store returns the underlying weight/trace store, for checkpointing.
func (e *Engine) Store() *weights.Store { return e.store }

// Table returns the underlying collision table, for checkpointing.
func (e *Engine) Table() *tilecoder.CollisionTable { return e.table }

// EpisodeCount returns the number of episodes EndEpisode has completed.
func (e *Engine) EpisodeCount() int64 { return e.episodeCount }

// Step runs one joint decision round for agentIdx. refresh supplies this
// agent's current choice point; it is called once per barrier round, so a
// passive agent (one whose own cardinality stays <= 1 while some other agent
// has a real decision) is re-polled every round until it has a real choice
// of its own, rather than returning control to its caller prematurely.
func (e *Engine) Step(ctx context.Context, agentIdx int, refresh func() ChoicePointInput) (int, error) {
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		in := refresh()
		e.region.PublishSlot(agentIdx, in.NumChoices, in.Label)
		e.barrier.Wait()

		actionState := e.region.ActionState()
		e.barrier.Wait()

		if actionState {
			return 0, nil
		}

		if agentIdx == 0 {
			jointLabels := e.region.JointLabels()
			k := e.region.Cardinalities()
			if err := e.leaderDecide(in.Tick, jointLabels, k, in.State); err != nil {
				return 0, err
			}
		}
		e.barrier.Wait()

		if in.NumChoices <= 1 {
			continue
		}
		return e.region.AgentComponent(agentIdx), nil
	}
}

// EndEpisode finalizes the episode for agentIdx. The leader applies the
// terminal SMDP update (there is no successor state to bootstrap from), then
// every agent barriers together and clears its published slot.
func (e *Engine) EndEpisode(agentIdx int, tick int64) error {
	var err error
	if agentIdx == 0 {
		if e.region.HasLastJoint() {
			lastTick, _ := e.region.LastCommittedAt()
			tau := float64(tick - lastTick)
			r := smdpReturn(tau, e.cfg.Gamma)
			delta := r - e.lastQValue
			if e.cfg.Learning {
				e.store.UpdateWeights(delta, e.tilesPerRow)
			}
		}
		if e.stats != nil {
			frame := Stats{
				EpisodeCount:  e.episodeCount + 1,
				Tick:          tick,
				MachineLabels: e.region.JointLabels(),
				Cardinalities: e.region.Cardinalities(),
				LastQValue:    e.lastQValue,
				NumNonzero:    e.store.NumNonzero(),
				MinimumTrace:  e.store.MinimumTrace(),
			}
			select {
			case e.stats <- frame:
			default:
			}
		}

		e.region.ClearJoint()
		e.lastCommitLabels = nil
		e.lastQValue = 0
		e.episodeCount++

		if e.cfg.Learning && e.saveFn != nil && e.rng.Intn(1000) == 0 {
			err = e.saveFn()
		}
	}
	e.barrier.Wait()
	e.region.PublishSlot(agentIdx, 0, "")
	return err
}

// leaderDecide runs the inner SARSA(lambda)/Q-learning step and commits the
// chosen joint action. Only ever called by agent 0.
func (e *Engine) leaderDecide(tick int64, jointLabels []string, k []int, state []float64) error {
	if err := e.rememberCardinalities(jointLabels, k); err != nil {
		return err
	}

	var zeroTau bool
	var prevLabels []string
	var prevIdx int
	if e.region.HasLastJoint() {
		prevTick, _ := e.region.LastCommittedAt()
		zeroTau = tick == prevTick
		prevLabels = e.lastCommitLabels
		prevIdx = e.region.LastJointIdx
	}

	choiceIdx, err := e.innerStep(tick, jointLabels, k, state)
	if err != nil {
		return err
	}

	tuples, err := e.registry.JointChoices(k)
	if err != nil {
		return err
	}
	e.region.CommitJoint(choiceIdx, tick, tuples[choiceIdx])
	e.lastCommitLabels = append([]string(nil), jointLabels...)

	if zeroTau {
		if err := e.det.Record(prevLabels, prevIdx, jointLabels); err != nil {
			return err
		}
	}
	return nil
}

// innerStep computes Q over every valid joint choice, selects one, and
// (when learning) applies the SARSA(lambda) or Q-learning TD update against
// the joint choice selected last round.
func (e *Engine) innerStep(tick int64, jointLabels []string, k []int, state []float64) (int, error) {
	valid, err := e.registry.ValidChoices(k)
	if err != nil {
		return 0, err
	}

	actionTiles := make(map[int][]int, len(valid))
	q := make(map[int]float64, len(valid))
	for _, a := range valid {
		tiles := make([]int, e.tilesPerRow)
		tilecoder.LoadAction(tiles, state, e.cfg.Widths, jointLabels, a, e.table)
		actionTiles[a] = tiles
		q[a] = e.qValueFromTiles(jointLabels, a, tiles, state)
	}

	var choiceIdx int
	if !e.region.HasLastJoint() {
		e.store.DecayTraces(0)
		choiceIdx = e.selectChoice(valid, q)
		e.setTraces(actionTiles[choiceIdx])
	} else {
		lastTick, _ := e.region.LastCommittedAt()
		tau := float64(tick - lastTick)
		r := smdpReturn(tau, e.cfg.Gamma)
		delta := r - e.lastQValue

		choiceIdx = e.selectChoice(valid, q)

		if e.cfg.Learning {
			if e.cfg.QLearning {
				delta += math.Pow(e.cfg.Gamma, tau) * maxOf(valid, q)
			} else {
				delta += math.Pow(e.cfg.Gamma, tau) * q[choiceIdx]
			}
			e.store.UpdateWeights(delta, e.tilesPerRow)
			q[choiceIdx] = e.qValueFromTiles(jointLabels, choiceIdx, actionTiles[choiceIdx], state)

			e.store.DecayTraces(e.cfg.Gamma * e.cfg.Lambda)
			for _, a := range valid {
				if a != choiceIdx {
					for _, f := range actionTiles[a] {
						e.store.ClearTrace(f)
					}
				}
			}
			e.setTraces(actionTiles[choiceIdx])
		}
	}

	e.lastQValue = q[choiceIdx]
	return choiceIdx, nil
}

func (e *Engine) setTraces(tiles []int) {
	for _, f := range tiles {
		e.store.SetTrace(f, 1.0)
	}
}

// qValueFromTiles returns the action value for (jointLabels, action), given
// its already-computed tile indices. If a deterministic successor is known
// for (jointLabels, action) the value bootstraps through V(successor)
// instead of summing the raw tile weights, letting a machine transition the
// learner has already proven deterministic skip straight to the next state's
// value.
func (e *Engine) qValueFromTiles(jointLabels []string, action int, tiles []int, state []float64) float64 {
	if succ, ok := e.det.Lookup(jointLabels, action); ok {
		return e.vValue(succ, state)
	}
	sum := 0.0
	for _, f := range tiles {
		sum += e.store.Theta(f)
	}
	return sum
}

// vValue returns max_a Q(M, a) for a joint machine state M whose cardinality
// vector has previously been observed. An M the deterministic cache points
// to but that was never itself observed as a current machine state can only
// arise from a machine that violates its own determinism contract; rather
// than treat that as fatal here (the contract violation, if any, was already
// reported to Record's caller), V is conservatively taken to be 0.
func (e *Engine) vValue(m []string, state []float64) float64 {
	k, ok := e.numChoicesMap[successor.JoinLabel(m)]
	if !ok {
		return 0
	}
	valid, err := e.registry.ValidChoices(k)
	if err != nil {
		return 0
	}

	best := math.Inf(-1)
	scratch := make([]int, e.tilesPerRow)
	for _, a := range valid {
		tilecoder.LoadAction(scratch, state, e.cfg.Widths, m, a, e.table)
		q := e.qValueFromTiles(m, a, scratch, state)
		if q > best {
			best = q
		}
	}
	if math.IsInf(best, -1) {
		return 0
	}
	return best
}

// selectChoice is epsilon-greedy with reservoir-sampled tie-breaking among
// maximal Q values; epsilon-exploration only applies while learning.
func (e *Engine) selectChoice(valid []int, q map[int]float64) int {
	if e.cfg.Learning && e.rng.Float64() <= e.cfg.Epsilon {
		return valid[e.rng.Intn(len(valid))]
	}

	best := valid[0]
	bestQ := q[valid[0]]
	ties := 1
	for _, a := range valid[1:] {
		switch {
		case q[a] > bestQ:
			best, bestQ, ties = a, q[a], 1
		case q[a] == bestQ:
			ties++
			if e.rng.Intn(ties) == 0 {
				best = a
			}
		}
	}
	return best
}

func maxOf(valid []int, q map[int]float64) float64 {
	best := math.Inf(-1)
	for _, a := range valid {
		if q[a] > best {
			best = q[a]
		}
	}
	return best
}

// ErrMachineStateMismatch is a fatal bookkeeping error: the same joint
// machine-state label was seen with two different cardinality vectors,
// meaning a hierarchical machine relabeled an existing call-stack state or
// two distinct states collided under the label scheme.
type ErrMachineStateMismatch struct {
	Labels   []string
	Previous []int
	Observed []int
}

func (e *ErrMachineStateMismatch) Error() string {
	return "learner: joint machine state observed with two different cardinality vectors"
}

func (e *Engine) rememberCardinalities(m []string, k []int) error {
	key := successor.JoinLabel(m)
	if existing, ok := e.numChoicesMap[key]; ok {
		if !intSliceEqual(existing, k) {
			return &ErrMachineStateMismatch{Labels: m, Previous: existing, Observed: k}
		}
		return nil
	}
	e.numChoicesMap[key] = append([]int(nil), k...)
	return nil
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// smdpReturn computes R(tau), the discounted reward of tau consecutive
// unit rewards: tau itself when gamma == 1, else the geometric sum
// (1 - gamma^tau) / (1 - gamma).
func smdpReturn(tau, gamma float64) float64 {
	if gamma == 1 {
		return tau
	}
	return (1 - math.Pow(gamma, tau)) / (1 - gamma)
}
