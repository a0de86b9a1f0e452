// Package experiment implements the rollout driver and the trainer
// which together run a multi-agent training experiment
package experiment

import (
	"log"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/gomarl/agent"
	"github.com/samuelfneumann/gomarl/config"
	"github.com/samuelfneumann/gomarl/environment"
	"github.com/samuelfneumann/gomarl/timestep"
	"github.com/samuelfneumann/gomarl/utils/floatutils"
)

// Driver runs episodes of an environment under the current policy of a
// model. A Driver never retries a failed environment step.
type Driver struct {
	env    environment.Environment
	model  agent.Model
	policy agent.Policy

	agents   int
	obsSize  int
	maxSteps int
	actions  environment.Spec

	logger *log.Logger
	padded bool // Whether padding has been reported
}

// NewDriver returns a new Driver. The environment must agree with the
// configuration in its number of agents and action space, and its
// observations must fit in the configured observation size.
func NewDriver(env environment.Environment, model agent.Model,
	policy agent.Policy, c config.Config, logger *log.Logger) (*Driver,
	error) {
	actions := env.ActionSpec()
	err := c.ValidateSpec(env.Agents(), env.ObservationSpec().Shape,
		actions.Shape, actions.Cardinality == environment.Continuous)
	if err != nil {
		return nil, errors.Wrap(err, "newDriver")
	}
	if c.MaxSteps < 1 {
		return nil, errors.Errorf("newDriver: max steps must be positive, "+
			"have %v", c.MaxSteps)
	}

	if logger == nil {
		logger = log.Default()
	}

	return &Driver{
		env:      env,
		model:    model,
		policy:   policy,
		agents:   c.AgentNum,
		obsSize:  c.ObsSize,
		maxSteps: c.MaxSteps,
		actions:  actions,
		logger:   logger,
	}, nil
}

// Policy returns the action selection policy of the driver
func (d *Driver) Policy() agent.Policy {
	return d.policy
}

// checkInfo returns an error if the liveness mask reported by the
// environment does not have one entry per agent. A nil mask means all
// agents are alive.
func (d *Driver) checkInfo(info timestep.Info) error {
	if info.AliveMask != nil && len(info.AliveMask) != d.agents {
		return errors.Errorf("alive mask has %v entries for %v agents",
			len(info.AliveMask), d.agents)
	}
	return nil
}

// RunEpisode runs one episode, returning it along with the mean step
// reward and the number of steps taken. The episode ends at the first
// step on which any agent reports termination, or after the maximum
// number of steps.
func (d *Driver) RunEpisode() (*timestep.Episode, float64, int, error) {
	obs, info, err := d.env.Reset()
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "runEpisode: could not reset")
	}
	if err := d.checkInfo(info); err != nil {
		return nil, 0, 0, errors.Wrap(err, "runEpisode: reset")
	}
	state, err := d.observe(obs)
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "runEpisode: reset")
	}

	episode := timestep.NewEpisode(info, d.maxSteps)
	for t := 0; t < d.maxSteps; t++ {
		out, err := d.model.Policy(state, info)
		if err != nil {
			return nil, 0, 0, errors.Wrapf(err, "runEpisode: step %v", t)
		}
		actions, err := d.policy.Select(out)
		if err != nil {
			return nil, 0, 0, errors.Wrapf(err, "runEpisode: step %v", t)
		}
		envActions, err := d.envActions(actions)
		if err != nil {
			return nil, 0, 0, errors.Wrapf(err, "runEpisode: step %v", t)
		}

		nextObs, reward, dones, nextInfo, err := d.env.Step(envActions)
		if err != nil {
			return nil, 0, 0, errors.Wrapf(err, "runEpisode: step %v", t)
		}
		if len(reward) != d.agents {
			return nil, 0, 0, errors.Errorf("runEpisode: step %v: "+
				"environment returned %v rewards for %v agents", t,
				len(reward), d.agents)
		}
		if err := d.checkInfo(nextInfo); err != nil {
			return nil, 0, 0, errors.Wrapf(err, "runEpisode: step %v", t)
		}
		nextState, err := d.observe(nextObs)
		if err != nil {
			return nil, 0, 0, errors.Wrapf(err, "runEpisode: step %v", t)
		}

		done := environment.AnyDone(dones)
		transition := timestep.Transition{
			State:     state,
			Action:    actions,
			Reward:    append([]float64(nil), reward...),
			NextState: nextState,
			Done:      done,
			LastStep:  done || t == d.maxSteps-1,
		}
		if err := episode.Add(transition, nextInfo); err != nil {
			return nil, 0, 0, errors.Wrap(err, "runEpisode")
		}

		if transition.LastStep {
			break
		}
		state, info = nextState, nextInfo
	}
	d.policy.EndEpisode()

	steps := episode.Len()
	return episode, episode.Return() / float64(steps), steps, nil
}

// observe validates and pads the observations of all agents
func (d *Driver) observe(obs [][]float64) ([][]float64, error) {
	if len(obs) != d.agents {
		return nil, errors.Errorf("observe: environment returned %v "+
			"observations for %v agents", len(obs), d.agents)
	}
	if !d.padded {
		for _, o := range obs {
			if len(o) < d.obsSize {
				d.logger.Printf("observations of length %v zero padded to %v",
					len(o), d.obsSize)
				d.padded = true
				break
			}
		}
	}
	return environment.Pad(obs, d.obsSize)
}

// envActions converts actions in network space to the action space of
// the environment: discrete one-hot actions become action indices and
// continuous actions are clipped to [-1, 1] and rescaled to the action
// bounds
func (d *Driver) envActions(actions [][]float64) ([][]float64, error) {
	if len(actions) != d.agents {
		return nil, errors.Errorf("envActions: have %v actions for %v agents",
			len(actions), d.agents)
	}

	envActions := make([][]float64, len(actions))
	for i, a := range actions {
		if len(a) != d.actions.Shape {
			return nil, errors.Errorf("envActions: action of agent %v has "+
				"size %v, expected %v", i, len(a), d.actions.Shape)
		}

		if d.actions.Cardinality == environment.Discrete {
			envActions[i] = []float64{float64(floatutils.ArgMax(a))}
			continue
		}

		envActions[i] = make([]float64, len(a))
		for j, v := range a {
			if d.actions.Bounds == nil {
				envActions[i][j] = floatutils.Clip(v, -1, 1)
			} else {
				envActions[i][j] = floatutils.Rescale(v, d.actions.Bounds[j])
			}
		}
	}
	return envActions, nil
}
