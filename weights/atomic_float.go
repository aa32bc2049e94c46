package weights

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// atomicFloat64 encapsulates a float64 for lock-free atomic access. Weights
// are read by every agent goroutine every decision while only the leader
// ever writes them, a read-heavy/single-writer access pattern this type is
// built for.
type atomicFloat64 struct {
	val float64
}

// read atomically loads the float64, guaranteeing the value is not a stale
// local copy.
func (af *atomicFloat64) read() float64 {
	bits := atomic.LoadUint64((*uint64)(unsafe.Pointer(&af.val)))
	return math.Float64frombits(bits)
}

// add atomically adds addend, retrying until the compare-and-swap succeeds
// against whatever the current value is (unlike a naive CAS loop, each retry
// re-reads so an intervening writer's update contributes its own delta too).
func (af *atomicFloat64) add(addend float64) float64 {
	for {
		old := af.read()
		newVal := old + addend
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(&af.val)),
			math.Float64bits(old),
			math.Float64bits(newVal)) {
			return newVal
		}
	}
}

// set atomically stores newVal.
func (af *atomicFloat64) set(newVal float64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(&af.val)), math.Float64bits(newVal))
}
