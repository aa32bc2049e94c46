package demo

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPolicyHoldTerminates(t *testing.T) {
	Convey("Given a fresh demo policy", t, func() {
		p := NewPolicy(1, 4)

		Convey("Choosing hold at the root ends the episode in one step", func() {
			label, n := p.ChoicePoint()
			So(label, ShouldEqual, rootLabel)
			So(n, ShouldEqual, 2)

			p.Advance(1) // hold
			So(p.Done(), ShouldBeTrue)
		})

		Convey("Choosing pass descends into the receiver sub-choice before terminating", func() {
			p.Advance(0) // pass
			So(p.Done(), ShouldBeFalse)

			label, n := p.ChoicePoint()
			So(label, ShouldEqual, passLabel)
			So(n, ShouldEqual, 3)

			p.Advance(2) // cut
			So(p.Done(), ShouldBeTrue)
		})
	})
}

func TestPolicyStateGrowsWithTick(t *testing.T) {
	Convey("Given a policy that has advanced several times", t, func() {
		p := NewPolicy(2, 3)
		s0 := p.State()

		p.Advance(1)
		s1 := p.State()

		Convey("State reflects the advancing tick counter", func() {
			So(s1[0], ShouldBeGreaterThan, s0[0])
			So(len(s1), ShouldEqual, 3)
		})
	})
}

func TestPolicyReset(t *testing.T) {
	Convey("Given a policy that has reached a terminal frame", t, func() {
		p := NewPolicy(3, 2)
		p.Advance(1)
		So(p.Done(), ShouldBeTrue)

		Convey("Reset restarts it at the root, not done", func() {
			p.Reset()
			So(p.Done(), ShouldBeFalse)
			label, _ := p.ChoicePoint()
			So(label, ShouldEqual, rootLabel)
		})
	})
}
