// Package sharedstate holds the region of learner state every agent must
// see. A faithful multi-process port would map this as one fixed-layout
// record into shared memory; here it is a single struct shared by goroutines
// in one process instead. Field access is partitioned entirely by the
// barrier's publish -> decide -> consume phases, so no mutex guards the
// region itself: Go's channel operations inside barrier.Barrier already
// establish the happens-before edges a memory fence would.
package sharedstate

// Region is the shared-memory-equivalent record visible to every agent.
// Only agent 0 (the leader) ever writes LastJointIdx, LastJointTime and
// LastJoint; every agent writes only its own index into NumChoices and
// MachineLabel.
type Region struct {
	N int

	// Per-agent published slots.
	NumChoices   []int
	MachineLabel []string

	// Joint-bookkeeping triple, leader-owned.
	LastJointIdx  int // -1 means "episode start"
	LastJointTime int64
	hasLastTime   bool
	LastJoint     []int // per-agent components of the committed joint choice
}

// NewRegion allocates a region for n agents, with the joint-bookkeeping
// triple in its "episode start" state.
func NewRegion(n int) *Region {
	return &Region{
		N:            n,
		NumChoices:   make([]int, n),
		MachineLabel: make([]string, n),
		LastJointIdx: -1,
		LastJoint:    make([]int, n),
	}
}

// PublishSlot is the only write any non-leader agent performs on the region:
// its own numChoices and machine-state label for this decision round.
func (r *Region) PublishSlot(agentIdx, numChoices int, label string) {
	r.NumChoices[agentIdx] = numChoices
	r.MachineLabel[agentIdx] = label
}

// Cardinalities returns a copy of the published per-agent choice counts.
func (r *Region) Cardinalities() []int {
	out := make([]int, r.N)
	copy(out, r.NumChoices)
	return out
}

// JointLabels returns a copy of the published per-agent machine-state
// labels, i.e. the joint machine state M.
func (r *Region) JointLabels() []string {
	out := make([]string, r.N)
	copy(out, r.MachineLabel)
	return out
}

// ActionState reports whether every agent's published cardinality is <= 1:
// a joint decision with no real alternatives for anyone.
func (r *Region) ActionState() bool {
	for _, k := range r.NumChoices {
		if k > 1 {
			return false
		}
	}
	return true
}

// HasLastJoint reports whether the joint-bookkeeping triple holds a
// previously committed decision (false at episode start).
func (r *Region) HasLastJoint() bool {
	return r.LastJointIdx >= 0
}

// CommitJoint is the leader's write of a freshly selected joint choice: the
// joint index, the tick it was committed at, and its per-agent decomposition.
func (r *Region) CommitJoint(idx int, tick int64, components []int) {
	r.LastJointIdx = idx
	r.LastJointTime = tick
	r.hasLastTime = true
	copy(r.LastJoint, components)
}

// LastCommittedAt returns the tick the current joint-bookkeeping triple was
// committed at, and whether one has ever been committed.
func (r *Region) LastCommittedAt() (int64, bool) {
	return r.LastJointTime, r.hasLastTime
}

// ClearJoint resets the joint-bookkeeping triple to its episode-start state,
// called once an episode ends.
func (r *Region) ClearJoint() {
	r.LastJointIdx = -1
	r.hasLastTime = false
	for i := range r.LastJoint {
		r.LastJoint[i] = 0
	}
}

// AgentComponent returns agent i's component of the currently committed
// joint choice.
func (r *Region) AgentComponent(i int) int {
	return r.LastJoint[i]
}
