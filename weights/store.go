// Package weights implements the dense weight array and sparse replacing
// eligibility-trace support the linear function approximator trains over.
package weights

import "math"

// Store holds the dense weight vector θ, its parallel eligibility trace e,
// and e's sparse support (nz / nzInv), maintaining the invariants:
//   - |e_f| < minimumTrace  =>  e_f == 0 and f is not in the support.
//   - len(support) <= maxNZ.
//   - when the support is full, minimumTrace grows 1.1x and is re-filtered.
type Store struct {
	theta []atomicFloat64
	trace []float64
	nz    []int // nz[0:numNonzero) holds feature indices with a tracked trace
	nzInv []int // nzInv[f] is nz's index for f, valid only while f is active

	numNonzero   int
	minimumTrace float64
	maxNZ        int
	alpha        float64
}

// defaultMinimumTrace is the initial trace-pruning threshold.
const defaultMinimumTrace = 0.01

// NewStore allocates a weight/trace store with numWeights entries, every
// theta initialized to initialWeight, a sparse trace support bounded at
// maxNZ, and step size alpha (used by UpdateWeights).
func NewStore(numWeights, maxNZ int, initialWeight, alpha float64) *Store {
	s := &Store{
		theta:        make([]atomicFloat64, numWeights),
		trace:        make([]float64, numWeights),
		nz:           make([]int, maxNZ),
		nzInv:        make([]int, numWeights),
		minimumTrace: defaultMinimumTrace,
		maxNZ:        maxNZ,
		alpha:        alpha,
	}
	for i := range s.theta {
		s.theta[i].set(initialWeight)
	}
	return s
}

// NumWeights returns the dense weight array's capacity.
func (s *Store) NumWeights() int { return len(s.theta) }

// Theta reads weight f.
func (s *Store) Theta(f int) float64 { return s.theta[f].read() }

// ThetaSlice copies the full weight vector out, for checkpointing.
func (s *Store) ThetaSlice() []float64 {
	out := make([]float64, len(s.theta))
	for i := range s.theta {
		out[i] = s.theta[i].read()
	}
	return out
}

// LoadTheta overwrites the weight vector from a previously saved slice; len
// must match NumWeights (checked by the checkpoint package's size check).
func (s *Store) LoadTheta(vals []float64) {
	for i, v := range vals {
		s.theta[i].set(v)
	}
}

// Trace reads the eligibility trace for feature f (0 if untracked).
func (s *Store) Trace(f int) float64 { return s.trace[f] }

// NumNonzero returns the sparse support's current size.
func (s *Store) NumNonzero() int { return s.numNonzero }

// MinimumTrace returns the current trace-pruning threshold.
func (s *Store) MinimumTrace() float64 { return s.minimumTrace }

// WeightNorm returns Sigma|theta_f| over the full weight vector. Every read
// goes through atomicFloat64, so this is safe to call concurrently with
// UpdateWeights from a telemetry goroutine without any additional locking.
func (s *Store) WeightNorm() float64 {
	sum := 0.0
	for i := range s.theta {
		sum += math.Abs(s.theta[i].read())
	}
	return sum
}

func (s *Store) isActive(f int) bool {
	idx := s.nzInv[f]
	return idx >= 0 && idx < s.numNonzero && s.nz[idx] == f
}

// SetTrace uses replacing-trace semantics: if f is already tracked, its
// value is simply overwritten; otherwise, growing the full support first
// increases minimumTrace (and re-filters), then f is inserted.
func (s *Store) SetTrace(f int, v float64) {
	if s.isActive(f) {
		s.trace[f] = v
		return
	}
	if s.numNonzero >= s.maxNZ {
		s.IncreaseMinTrace()
	}
	if s.numNonzero >= s.maxNZ {
		// Still full after a rescan: every tracked trace is above the new
		// threshold, so there is genuinely no room; drop the incoming
		// insert rather than corrupt the support.
		return
	}
	s.trace[f] = v
	s.nz[s.numNonzero] = f
	s.nzInv[f] = s.numNonzero
	s.numNonzero++
}

// removeAt evicts the support slot at index idx by swapping in the last
// active entry, preserving the invariant nz[nzInv[f]] == f for all active f.
func (s *Store) removeAt(idx int) {
	f := s.nz[idx]
	last := s.numNonzero - 1
	lastF := s.nz[last]
	s.nz[idx] = lastF
	s.nzInv[lastF] = idx
	s.trace[f] = 0
	s.numNonzero--
}

// ClearTrace removes f from the support if tracked, zeroing its trace.
func (s *Store) ClearTrace(f int) {
	if s.isActive(f) {
		s.removeAt(s.nzInv[f])
	}
}

// DecayTraces multiplies every tracked trace by rho, pruning any that drop
// below minimumTrace. rho == 0 empties the support outright, as at the
// start of an episode.
func (s *Store) DecayTraces(rho float64) {
	if rho == 0 {
		for i := 0; i < s.numNonzero; i++ {
			s.trace[s.nz[i]] = 0
		}
		s.numNonzero = 0
		return
	}

	i := 0
	for i < s.numNonzero {
		f := s.nz[i]
		s.trace[f] *= rho
		if math.Abs(s.trace[f]) < s.minimumTrace {
			s.removeAt(i)
			continue // re-check the entry swapped into slot i
		}
		i++
	}
}

// IncreaseMinTrace grows minimumTrace by 1.1x and re-filters the support,
// dropping any now-subthreshold entries.
func (s *Store) IncreaseMinTrace() {
	s.minimumTrace *= 1.1
	i := 0
	for i < s.numNonzero {
		f := s.nz[i]
		if math.Abs(s.trace[f]) < s.minimumTrace {
			s.removeAt(i)
			continue
		}
		i++
	}
}

// UpdateWeights applies the TD update θ_f += (delta*alpha/tilingsCount)*e_f
// to every tracked feature.
func (s *Store) UpdateWeights(delta float64, tilingsCount int) {
	if tilingsCount <= 0 {
		return
	}
	step := delta * s.alpha / float64(tilingsCount)
	for i := 0; i < s.numNonzero; i++ {
		f := s.nz[i]
		s.theta[f].add(step * s.trace[f])
	}
}
