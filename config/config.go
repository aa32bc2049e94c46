// Package config loads run configuration from an outer {kind, def} envelope
// unmarshalled by Viper, then re-marshals and unmarshals the inner def into
// the typed RunConfig — an indirection that lets hyperparameter files later
// gain multiple "kinds" without changing the loader.
package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"keepaway/limits"
)

// outerConfig is the {kind, def} envelope every config file is wrapped in.
type outerConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// RunConfig is the configuration supplied when a run initializes.
type RunConfig struct {
	// N is the number of cooperating agents.
	N int `yaml:"agents"`
	// Learning enables TD updates and epsilon-exploration; when false the
	// greedy policy runs and weights are never modified.
	Learning bool `yaml:"learning"`
	// QLearning selects the off-policy max target over the on-policy SARSA
	// target.
	QLearning bool `yaml:"qLearning"`
	// Width holds the per-feature tile scaling widths, w[v].
	Width []float64 `yaml:"width"`
	// InitialWeight seeds every theta entry on a fresh run.
	InitialWeight float64 `yaml:"initialWeight"`
	// Alpha, Lambda, Epsilon, Gamma are the SMDP SARSA(lambda)/Q-learning
	// hyperparameters.
	Alpha   float64 `yaml:"alpha"`
	Lambda  float64 `yaml:"lambda"`
	Epsilon float64 `yaml:"epsilon"`
	Gamma   float64 `yaml:"gamma"`

	// NumWeights, MaxActions, MaxNZ, MaxNumTilings are explicit capacity
	// configuration, taken as parameters rather than compile-time macros.
	NumWeights    int `yaml:"numWeights"`
	MaxActions    int `yaml:"maxActions"`
	MaxNZ         int `yaml:"maxNZ"`
	MaxNumTilings int `yaml:"maxNumTilings"`

	// LoadWeightsFile, if non-empty, is read at startup.
	LoadWeightsFile string `yaml:"loadWeightsFile"`
	// SaveWeightsFile, if non-empty and Learning, is the periodic/shutdown
	// checkpoint destination.
	SaveWeightsFile string `yaml:"saveWeightsFile"`

	// TrainingDeadline, if set, bounds the run's wall-clock duration
	// ("duration" key, parsed by time.ParseDuration).
	TrainingDeadline map[string]string `yaml:"trainingDeadline"`

	// DashboardAddr, if non-empty, is the telemetry dashboard's listen address.
	DashboardAddr string `yaml:"dashboardAddr"`
}

// Default returns sane defaults so a config.yaml only needs to override what
// a run actually changes.
func Default() RunConfig {
	return RunConfig{
		N:             1,
		Learning:      true,
		QLearning:     false,
		Width:         []float64{1.0, 1.0},
		InitialWeight: 0,
		Alpha:         0.125,
		Lambda:        0,
		Epsilon:       0.01,
		Gamma:         0.9,
		NumWeights:    limits.DefaultNumWeights,
		MaxActions:    limits.DefaultMaxActions,
		MaxNZ:         limits.DefaultMaxNZ,
		MaxNumTilings: limits.DefaultMaxNumTilings,
		DashboardAddr: ":8080",
	}
}

// FromYaml loads a RunConfig from the {kind, def} envelope at path.
func FromYaml(path string) (*RunConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, err
	}

	spec, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(spec, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WithTrainingDeadline returns a context extended by the configured training
// deadline, if one is specified (mirrors TrainingConfig.WithTrainingDeadline).
func (cfg *RunConfig) WithTrainingDeadline(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, err
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}
