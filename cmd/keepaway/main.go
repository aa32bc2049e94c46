/*
keepaway runs N cooperating agents over a shared joint-action SMDP
SARSA(lambda)/Q-learning value function, each driven by its own
hierarchical decision machine, and serves a realtime telemetry dashboard
over websocket while training runs.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"keepaway/checkpoint"
	"keepaway/config"
	"keepaway/dashboard"
	"keepaway/learner"
	"keepaway/machine"
	"keepaway/machine/demo"
)

var configPath *string

func init() {
	configPath = flag.String("config", "./config.yaml", "path to the run's hyperparameter config")
	flag.Parse()
}

func runApp() error {
	cfg, err := config.FromYaml(*configPath)
	if err != nil {
		log.Printf("no usable config at %s (%v), running with defaults", *configPath, err)
		fallback := config.Default()
		cfg = &fallback
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	trainingCtx, trainingCancel, err := cfg.WithTrainingDeadline(appCtx)
	if err != nil {
		return fmt.Errorf("training deadline: %w", err)
	}
	defer trainingCancel()

	engineCfg := learner.Config{
		Learning:      cfg.Learning,
		QLearning:     cfg.QLearning,
		Alpha:         cfg.Alpha,
		Lambda:        cfg.Lambda,
		Epsilon:       cfg.Epsilon,
		Gamma:         cfg.Gamma,
		Widths:        cfg.Width,
		NumWeights:    cfg.NumWeights,
		MaxActions:    cfg.MaxActions,
		MaxNZ:         cfg.MaxNZ,
		MaxNumTilings: cfg.MaxNumTilings,
		InitialWeight: cfg.InitialWeight,
	}

	var engine *learner.Engine
	var saveFn func() error
	if cfg.SaveWeightsFile != "" {
		saveFn = func() error {
			return checkpoint.Save(cfg.SaveWeightsFile, engine.Store().ThetaSlice(), engine.Table())
		}
	}

	engine, err = learner.New(cfg.N, engineCfg, nil, nil, saveFn)
	if err != nil {
		return fmt.Errorf("engine init: %w", err)
	}

	if cfg.LoadWeightsFile != "" {
		theta := make([]float64, cfg.NumWeights)
		if err := checkpoint.Load(cfg.LoadWeightsFile, theta, engine.Table()); err != nil {
			return fmt.Errorf("load weights: %w", err)
		}
		engine.Store().LoadTheta(theta)
	}

	statsCh := make(chan learner.Stats, 8)
	engine.SetStats(statsCh)
	snapshots := dashboard.NewFeed(appCtx.Done(), statsCh, engine.Store(), time.Second)
	dash, err := dashboard.NewDashboard(appCtx, cfg.DashboardAddr, cfg.N, snapshots)
	if err != nil {
		return fmt.Errorf("dashboard init: %w", err)
	}

	go func() {
		if err := dash.Serve(); err != nil {
			log.Println("dashboard:", err)
		}
	}()

	runAgents(trainingCtx, cfg.N, len(cfg.Width), engine)

	if cfg.Learning && saveFn != nil {
		if err := saveFn(); err != nil {
			return fmt.Errorf("save weights: %w", err)
		}
	}
	return nil
}

// runAgents starts one goroutine per agent, each driving its own demo
// hierarchical policy through repeated episodes against the shared
// engine, until ctx is cancelled.
func runAgents(ctx context.Context, n, stateDim int, engine *learner.Engine) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			policy := demo.NewPolicy(int64(i+1), stateDim)
			runner := &machine.Runner{AgentIdx: i, Policy: policy, Engine: engine}
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if err := runner.RunEpisode(ctx); err != nil {
					if ctx.Err() == nil {
						log.Printf("agent %d: episode error: %v", i, err)
					}
					return
				}
				policy.Reset()
			}
		}()
	}
	wg.Wait()
}

func main() {
	if err := runApp(); err != nil {
		log.Fatal(err)
	}
}
