// Package config implements the hyperparameter record used to build and
// train multi-agent communication models. A Config is created once, before
// training, and is passed by value into every constructor so that no
// component reads ambient global state.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Family denotes which family of training algorithm a run uses
type Family int

const (
	// OnPolicy computes losses from the freshly collected batch every
	// step, optionally followed by replay rounds.
	OnPolicy Family = iota

	// OffPolicy skips the fresh-batch loss and performs replay rounds
	// only.
	OffPolicy
)

func (f Family) String() string {
	switch f {
	case OffPolicy:
		return "off_policy"
	default:
		return "on_policy"
	}
}

// Available optimizers
const (
	Adam    = "adam"
	RMSProp = "rmsprop"
	SGD     = "sgd"
)

// Config is a flat record of hyperparameters
type Config struct {
	// Network shape
	AgentNum          int     `json:"agent_num" yaml:"agent_num"`
	HidSize           int     `json:"hid_size" yaml:"hid_size"`
	ObsSize           int     `json:"obs_size" yaml:"obs_size"`
	ActionDim         int     `json:"action_dim" yaml:"action_dim"`
	Continuous        bool    `json:"continuous" yaml:"continuous"`
	CommIters         int     `json:"comm_iters" yaml:"comm_iters"`
	SharedCommWeights bool    `json:"shared_comm_weights" yaml:"shared_comm_weights"`
	InitStd           float64 `json:"init_std" yaml:"init_std"`

	// Optimisation
	Optimizer           string  `json:"optimizer" yaml:"optimizer"`
	PolicyLRate         float64 `json:"policy_lrate" yaml:"policy_lrate"`
	ValueLRate          float64 `json:"value_lrate" yaml:"value_lrate"`
	Gamma               float64 `json:"gamma" yaml:"gamma"`
	NormalizeAdvantages bool    `json:"normalize_advantages" yaml:"normalize_advantages"`
	Entr                float64 `json:"entr" yaml:"entr"`
	EntrInc             float64 `json:"entr_inc" yaml:"entr_inc"`
	GradClip            bool    `json:"grad_clip" yaml:"grad_clip"`

	// Rollouts
	MaxSteps  int `json:"max_steps" yaml:"max_steps"`
	EpochSize int `json:"epoch_size" yaml:"epoch_size"`

	// Algorithm family and experience replay
	Family           string `json:"family" yaml:"family"`
	Replay           bool   `json:"replay" yaml:"replay"`
	ReplayBufferSize int    `json:"replay_buffer_size" yaml:"replay_buffer_size"`
	ReplayWarmup     int    `json:"replay_warmup" yaml:"replay_warmup"`
	ReplayIters      int    `json:"replay_iters" yaml:"replay_iters"`

	// Target network
	Target           bool    `json:"target" yaml:"target"`
	TargetLR         float64 `json:"target_lr" yaml:"target_lr"`
	TargetUpdateFreq int     `json:"target_update_freq" yaml:"target_update_freq"`

	// Action selection
	GumbelSoftmax   bool    `json:"gumbel_softmax" yaml:"gumbel_softmax"`
	EpsilonSoftmax  bool    `json:"epsilon_softmax" yaml:"epsilon_softmax"`
	SoftmaxEpsInit  float64 `json:"softmax_eps_init" yaml:"softmax_eps_init"`
	SoftmaxEpsEnd   float64 `json:"softmax_eps_end" yaml:"softmax_eps_end"`
	SoftmaxEpsDecay int     `json:"softmax_eps_decay" yaml:"softmax_eps_decay"`

	// Environment
	AgentDropout float64 `json:"agent_dropout" yaml:"agent_dropout"`

	// Run
	Cuda          bool   `json:"cuda" yaml:"cuda"`
	Epochs        int    `json:"epochs" yaml:"epochs"`
	SaveModelFreq int    `json:"save_model_freq" yaml:"save_model_freq"`
	Seed          uint64 `json:"seed" yaml:"seed"`
	ModelPath     string `json:"model_path" yaml:"model_path"`
	StatsPath     string `json:"stats_path" yaml:"stats_path"`
}

// Default returns the default configuration, a 3 agent cooperative
// navigation setup.
func Default() Config {
	return Config{
		AgentNum:          3,
		HidSize:           128,
		ObsSize:           14,
		ActionDim:         5,
		CommIters:         2,
		SharedCommWeights: true,
		InitStd:           0.1,

		Optimizer:   Adam,
		PolicyLRate: 1e-4,
		ValueLRate:  1e-3,
		Gamma:       0.9,
		Entr:        1e-3,
		GradClip:    true,

		MaxSteps:  200,
		EpochSize: 32,

		Family:           OnPolicy.String(),
		ReplayBufferSize: 10_000,
		ReplayIters:      1,

		Target:           true,
		TargetLR:         1.0,
		TargetUpdateFreq: 200,

		SoftmaxEpsInit:  0.5,
		SoftmaxEpsEnd:   0.05,
		SoftmaxEpsDecay: 1000,

		Epochs:        1000,
		SaveModelFreq: 100,
		Seed:          192382,
		ModelPath:     "model.bin",
		StatsPath:     "stats.bin",
	}
}

// Load reads a configuration file and overlays it onto Default(). Files
// ending in .yaml or .yml are decoded as YAML; all others as JSON. The
// returned Config is validated.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "load: could not read config")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		err = json.Unmarshal(data, &c)
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "load: could not decode %v", path)
	}

	if err := c.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "load")
	}
	return c, nil
}

// Save writes the configuration as YAML
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "save: could not encode config")
	}
	return os.WriteFile(path, data, 0o644)
}

// AlgorithmFamily returns the algorithm family named by the Family field.
// The field must have been validated.
func (c Config) AlgorithmFamily() Family {
	if c.Family == OffPolicy.String() {
		return OffPolicy
	}
	return OnPolicy
}

// CommLayers returns the number of distinct communication transforms:
// one if weights are shared across rounds and CommIters otherwise.
func (c Config) CommLayers() int {
	if c.SharedCommWeights {
		return 1
	}
	return c.CommIters
}

// Validate checks the configuration for inconsistent or out of range
// values.
func (c Config) Validate() error {
	switch {
	case c.AgentNum < 2:
		return newError("agent_num", "need at least 2 agents to communicate, have %v", c.AgentNum)
	case c.HidSize < 1:
		return newError("hid_size", "must be positive, have %v", c.HidSize)
	case c.ObsSize < 1:
		return newError("obs_size", "must be positive, have %v", c.ObsSize)
	case c.ActionDim < 1:
		return newError("action_dim", "must be positive, have %v", c.ActionDim)
	case c.CommIters < 1:
		return newError("comm_iters", "must be positive, have %v", c.CommIters)
	case c.InitStd <= 0:
		return newError("init_std", "must be positive, have %v", c.InitStd)
	case c.PolicyLRate <= 0:
		return newError("policy_lrate", "must be positive, have %v", c.PolicyLRate)
	case c.ValueLRate <= 0:
		return newError("value_lrate", "must be positive, have %v", c.ValueLRate)
	case c.Gamma < 0 || c.Gamma > 1:
		return newError("gamma", "must be in [0, 1], have %v", c.Gamma)
	case c.Entr < 0:
		return newError("entr", "must be non-negative, have %v", c.Entr)
	case c.MaxSteps < 1:
		return newError("max_steps", "must be positive, have %v", c.MaxSteps)
	case c.EpochSize < 1:
		return newError("epoch_size", "must be positive, have %v", c.EpochSize)
	case c.TargetLR < 0 || c.TargetLR > 1:
		return newError("target_lr", "must be in [0, 1], have %v", c.TargetLR)
	case c.Target && c.TargetUpdateFreq < 1:
		return newError("target_update_freq", "must be positive, have %v", c.TargetUpdateFreq)
	case c.GumbelSoftmax && c.EpsilonSoftmax:
		return newError("gumbel_softmax", "cannot be combined with epsilon_softmax")
	case c.Continuous && (c.GumbelSoftmax || c.EpsilonSoftmax):
		return newError("continuous", "softmax action selection needs discrete actions")
	case c.AgentDropout < 0 || c.AgentDropout >= 1:
		return newError("agent_dropout", "must be in [0, 1), have %v", c.AgentDropout)
	}

	switch c.Optimizer {
	case Adam, RMSProp, SGD:
	default:
		return newError("optimizer", "unknown optimizer %q", c.Optimizer)
	}

	switch c.Family {
	case OnPolicy.String():
	case OffPolicy.String():
		if !c.Replay {
			return newError("family", "off_policy training needs replay enabled")
		}
	default:
		return newError("family", "unknown algorithm family %q", c.Family)
	}

	if c.Replay {
		if c.ReplayBufferSize < 1 {
			return newError("replay_buffer_size", "replay enabled with capacity %v", c.ReplayBufferSize)
		}
		if c.ReplayIters < 1 {
			return newError("replay_iters", "must be positive, have %v", c.ReplayIters)
		}
		if c.ReplayWarmup < 0 || c.ReplayWarmup > c.ReplayBufferSize {
			return newError("replay_warmup", "must be in [0, %v], have %v",
				c.ReplayBufferSize, c.ReplayWarmup)
		}
	}

	if c.EpsilonSoftmax {
		if c.SoftmaxEpsInit < 0 || c.SoftmaxEpsInit > 1 ||
			c.SoftmaxEpsEnd < 0 || c.SoftmaxEpsEnd > 1 {
			return newError("softmax_eps_init", "epsilon schedule must lie in [0, 1]")
		}
		if c.SoftmaxEpsDecay < 1 {
			return newError("softmax_eps_decay", "must be positive, have %v", c.SoftmaxEpsDecay)
		}
	}

	return nil
}

// ValidateSpec checks the configuration against the shape of an
// environment: its number of agents, its longest per-agent observation
// and its action size. Shorter observations are zero padded.
func (c Config) ValidateSpec(agents, obsSize, actionDim int, continuous bool) error {
	if agents != c.AgentNum {
		return newError("agent_num", "environment has %v agents, config has %v",
			agents, c.AgentNum)
	}
	if obsSize > c.ObsSize {
		return newError("obs_size", "environment observations have length %v, "+
			"longer than the padded size %v", obsSize, c.ObsSize)
	}
	if actionDim != c.ActionDim {
		return newError("action_dim", "environment actions have size %v, "+
			"config has %v", actionDim, c.ActionDim)
	}
	if continuous != c.Continuous {
		return newError("continuous", "environment continuous actions = %v, "+
			"config has %v", continuous, c.Continuous)
	}
	return nil
}
