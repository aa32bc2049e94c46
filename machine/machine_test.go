package machine

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"keepaway/learner"
)

// fakeStepper is a trivial Stepper that always returns choice 0 and counts
// how many times each method was called, so Runner's driving loop can be
// tested without a real Engine.
type fakeStepper struct {
	stepCalls int
	endCalls  int
}

func (f *fakeStepper) Step(ctx context.Context, agentIdx int, refresh func() learner.ChoicePointInput) (int, error) {
	f.stepCalls++
	_ = refresh()
	return 0, nil
}

func (f *fakeStepper) EndEpisode(agentIdx int, tick int64) error {
	f.endCalls++
	return nil
}

// fakePolicy terminates after a fixed number of Advance calls.
type fakePolicy struct {
	stepsLeft int
	advances  int
}

func (p *fakePolicy) ChoicePoint() (string, int) { return "root/decide", 2 }
func (p *fakePolicy) State() []float64           { return []float64{1, 2} }
func (p *fakePolicy) Advance(choice int) {
	p.advances++
	p.stepsLeft--
}
func (p *fakePolicy) Done() bool { return p.stepsLeft <= 0 }

func TestRunnerDrivesUntilDone(t *testing.T) {
	Convey("Given a policy that takes 3 decisions to finish", t, func() {
		stepper := &fakeStepper{}
		policy := &fakePolicy{stepsLeft: 3}
		runner := &Runner{AgentIdx: 0, Policy: policy, Engine: stepper}

		Convey("RunEpisode calls Step exactly 3 times then ends the episode once", func() {
			err := runner.RunEpisode(context.Background())
			So(err, ShouldBeNil)
			So(stepper.stepCalls, ShouldEqual, 3)
			So(stepper.endCalls, ShouldEqual, 1)
			So(policy.advances, ShouldEqual, 3)
		})
	})
}
