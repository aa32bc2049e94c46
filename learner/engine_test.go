package learner

import (
	"context"
	"math"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func testConfig() Config {
	return Config{
		Learning:      true,
		QLearning:     false,
		Alpha:         0.1,
		Lambda:        0.9,
		Epsilon:       0,
		Gamma:         0.9,
		Widths:        []float64{1, 1},
		NumWeights:    1 << 12,
		MaxActions:    64,
		MaxNZ:         1 << 8,
		MaxNumTilings: 32 * 8,
		InitialWeight: 0,
	}
}

func TestSmdpReturn(t *testing.T) {
	Convey("Given gamma == 1", t, func() {
		Convey("R(tau) is tau itself", func() {
			So(smdpReturn(5, 1), ShouldEqual, 5.0)
		})
	})

	Convey("Given gamma < 1", t, func() {
		Convey("R(tau) matches the closed-form geometric sum to high precision", func() {
			gamma := 0.9
			tau := 4.0
			want := 0.0
			for i := 0.0; i < tau; i++ {
				want += math.Pow(gamma, i)
			}
			got := smdpReturn(tau, gamma)
			So(math.Abs(got-want), ShouldBeLessThan, 1e-9)
		})
	})
}

func TestSingleAgentStepReturnsValidIndex(t *testing.T) {
	Convey("Given a single-agent engine with a 3-way choice", t, func() {
		e, err := New(1, testConfig(), nil, nil, nil)
		So(err, ShouldBeNil)

		Convey("Step returns an index within the published cardinality", func() {
			for tick := int64(0); tick < 5; tick++ {
				tick := tick
				idx, err := e.Step(context.Background(), 0, func() ChoicePointInput {
					return ChoicePointInput{
						Tick:       tick,
						Label:      "root/decide",
						NumChoices: 3,
						State:      []float64{float64(tick), 0.5},
					}
				})
				So(err, ShouldBeNil)
				So(idx, ShouldBeBetweenOrEqual, 0, 2)
			}
			So(e.EndEpisode(0, 5), ShouldBeNil)
			So(e.EpisodeCount(), ShouldEqual, int64(1))
		})
	})
}

func TestEndEpisodePublishesStats(t *testing.T) {
	Convey("Given an engine with a stats channel registered", t, func() {
		e, err := New(1, testConfig(), nil, nil, nil)
		So(err, ShouldBeNil)

		statsCh := make(chan Stats, 1)
		e.SetStats(statsCh)

		Convey("EndEpisode sends a frame describing the finished episode", func() {
			_, err := e.Step(context.Background(), 0, func() ChoicePointInput {
				return ChoicePointInput{Tick: 0, Label: "root/decide", NumChoices: 3, State: []float64{1, 2}}
			})
			So(err, ShouldBeNil)
			So(e.EndEpisode(0, 1), ShouldBeNil)

			select {
			case frame := <-statsCh:
				So(frame.EpisodeCount, ShouldEqual, int64(1))
				So(frame.MachineLabels, ShouldResemble, []string{"root/decide"})
			default:
				t.Fatal("expected a stats frame to have been published")
			}
		})
	})
}

func TestTwoAgentJointDecisionDecomposes(t *testing.T) {
	Convey("Given a two-agent engine where agent 0 has 2 choices and agent 1 has 3", t, func() {
		e, err := New(2, testConfig(), nil, nil, nil)
		So(err, ShouldBeNil)

		Convey("Each agent's returned component matches its own cardinality bound", func() {
			var wg sync.WaitGroup
			results := make([]int, 2)
			errs := make([]error, 2)

			wg.Add(2)
			go func() {
				defer wg.Done()
				results[0], errs[0] = e.Step(context.Background(), 0, func() ChoicePointInput {
					return ChoicePointInput{Tick: 1, Label: "root/pass", NumChoices: 2, State: []float64{1, 2}}
				})
			}()
			go func() {
				defer wg.Done()
				results[1], errs[1] = e.Step(context.Background(), 1, func() ChoicePointInput {
					return ChoicePointInput{Tick: 1, Label: "root/support", NumChoices: 3, State: []float64{1, 2}}
				})
			}()
			wg.Wait()

			So(errs[0], ShouldBeNil)
			So(errs[1], ShouldBeNil)
			So(results[0], ShouldBeBetweenOrEqual, 0, 1)
			So(results[1], ShouldBeBetweenOrEqual, 0, 2)
		})
	})
}

func TestPassiveAgentAwaitsRealChoice(t *testing.T) {
	Convey("Given agent 1 stays at a dummy single choice for two rounds then gets a real one", t, func() {
		e, err := New(2, testConfig(), nil, nil, nil)
		So(err, ShouldBeNil)

		Convey("Agent 1's single Step call only returns once its own cardinality becomes real, in step with agent 0's three rounds", func() {
			var wg sync.WaitGroup
			var agent1Result int
			var agent1Err error

			wg.Add(1)
			go func() {
				defer wg.Done()
				round := 0
				agent1Result, agent1Err = e.Step(context.Background(), 1, func() ChoicePointInput {
					round++
					label, numChoices := "root/idle", 1
					if round == 3 {
						label, numChoices = "root/receive", 2
					}
					return ChoicePointInput{Tick: int64(round), Label: label, NumChoices: numChoices, State: []float64{1, 2}}
				})
			}()

			// Agent 0 drives three successive rounds, each with a real choice
			// of its own, keeping pace with agent 1's internal passive loop.
			for round := 1; round <= 3; round++ {
				round := round
				_, err := e.Step(context.Background(), 0, func() ChoicePointInput {
					return ChoicePointInput{Tick: int64(round), Label: "root/pass", NumChoices: 2, State: []float64{1, 2}}
				})
				So(err, ShouldBeNil)
			}

			wg.Wait()
			So(agent1Err, ShouldBeNil)
			So(agent1Result, ShouldBeBetweenOrEqual, 0, 1)
		})
	})
}
