package weights

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSetTrace(t *testing.T) {
	Convey("Given a fresh store", t, func() {
		s := NewStore(1024, 16, 0.0, 0.1)

		Convey("Replacing an existing trace overwrites it without growing the support", func() {
			s.SetTrace(5, 0.3)
			s.SetTrace(5, 0.5)
			So(s.Trace(5), ShouldEqual, 0.5)
			So(s.NumNonzero(), ShouldEqual, 1)
		})

		Convey("Distinct features each occupy their own support slot", func() {
			s.SetTrace(1, 1.0)
			s.SetTrace(2, 1.0)
			s.SetTrace(3, 1.0)
			So(s.NumNonzero(), ShouldEqual, 3)
		})
	})
}

func TestClearTrace(t *testing.T) {
	Convey("Given a store with one active trace", t, func() {
		s := NewStore(1024, 16, 0.0, 0.1)
		s.SetTrace(7, 1.0)

		Convey("Clearing it empties the support", func() {
			s.ClearTrace(7)
			So(s.Trace(7), ShouldEqual, 0)
			So(s.NumNonzero(), ShouldEqual, 0)
		})

		Convey("Clearing an untracked feature is a no-op", func() {
			s.ClearTrace(999)
			So(s.NumNonzero(), ShouldEqual, 1)
		})
	})
}

func TestDecayTraces(t *testing.T) {
	Convey("Given a store with several active traces", t, func() {
		s := NewStore(1024, 16, 0.0, 0.1)
		s.SetTrace(1, 1.0)
		s.SetTrace(2, 1.0)
		s.SetTrace(3, 1.0)

		Convey("Decaying by 0 empties the support entirely", func() {
			s.DecayTraces(0)
			So(s.NumNonzero(), ShouldEqual, 0)
			So(s.Trace(1), ShouldEqual, 0)
			So(s.Trace(2), ShouldEqual, 0)
			So(s.Trace(3), ShouldEqual, 0)
		})

		Convey("Decaying below minimumTrace prunes the entry", func() {
			s.DecayTraces(0.001)
			So(s.NumNonzero(), ShouldEqual, 0)
		})

		Convey("Decaying while staying above threshold keeps entries tracked", func() {
			s.DecayTraces(0.99)
			So(s.NumNonzero(), ShouldEqual, 3)
			So(s.Trace(1), ShouldAlmostEqual, 0.99, 1e-9)
		})
	})
}

func TestTraceOverflowGrowsMinimumTrace(t *testing.T) {
	Convey("Given a store whose support is much smaller than the feature space", t, func() {
		maxNZ := 64
		s := NewStore(1<<16, maxNZ, 0.0, 0.1)

		Convey("Inserting far more distinct traces than maxNZ keeps the support bounded", func() {
			for f := 0; f < maxNZ+100; f++ {
				s.SetTrace(f, 1.0)
			}
			So(s.NumNonzero(), ShouldBeLessThanOrEqualTo, maxNZ)
			So(s.MinimumTrace(), ShouldBeGreaterThan, defaultMinimumTrace)
		})
	})
}

func TestUpdateWeights(t *testing.T) {
	Convey("Given a store with a single active trace", t, func() {
		s := NewStore(1024, 16, 0.0, 0.5)
		s.SetTrace(3, 1.0)

		Convey("UpdateWeights applies delta*alpha/tilings to the tracked weight", func() {
			s.UpdateWeights(2.0, 4)
			// step = delta*alpha/tilings = 2.0*0.5/4 = 0.25, times trace 1.0
			So(math.Abs(s.Theta(3)-0.25), ShouldBeLessThan, 1e-12)
		})

		Convey("Untracked weights are left untouched", func() {
			s.UpdateWeights(2.0, 4)
			So(s.Theta(4), ShouldEqual, 0)
		})
	})
}
