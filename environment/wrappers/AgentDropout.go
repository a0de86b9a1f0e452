// Package wrappers implements environment wrappers that modify the
// interaction between agents and an environment
package wrappers

import (
	"fmt"

	"github.com/samuelfneumann/gomarl/environment"
	"github.com/samuelfneumann/gomarl/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinAlive is the number of agents AgentDropout always keeps alive.
// Communication needs at least two live agents.
const MinAlive = 2

// AgentDropout wraps an environment and kills each agent with a fixed
// probability at the start of every episode. Dead agents stay dead for
// the whole episode: their observations are zeroed, their actions are
// replaced by the zero action and the liveness mask is published in
// the info of every step. At least MinAlive agents are kept alive.
//
// AgentDropout itself implements the environment.Environment
// interface, and is therefore itself an Environment.
type AgentDropout struct {
	environment.Environment
	dropout distuv.Bernoulli
	rng     *rand.Rand

	alive []bool
}

// NewAgentDropout returns a new AgentDropout wrapping env which kills
// each agent with probability p
func NewAgentDropout(env environment.Environment, p float64,
	seed uint64) (*AgentDropout, error) {
	if p < 0 || p >= 1 {
		return nil, fmt.Errorf("newAgentDropout: dropout probability must "+
			"be in [0, 1), have %v", p)
	}
	if env.Agents() < MinAlive {
		return nil, fmt.Errorf("newAgentDropout: need at least %v agents, "+
			"have %v", MinAlive, env.Agents())
	}

	src := rand.NewSource(seed)
	return &AgentDropout{
		Environment: env,
		dropout:     distuv.Bernoulli{P: p, Src: src},
		rng:         rand.New(src),
		alive:       make([]bool, env.Agents()),
	}, nil
}

// Reset resets the wrapped environment and samples which agents are
// alive for the episode
func (a *AgentDropout) Reset() ([][]float64, timestep.Info, error) {
	obs, _, err := a.Environment.Reset()
	if err != nil {
		return nil, timestep.Info{}, fmt.Errorf("reset: %v", err)
	}

	alive := 0
	for i := range a.alive {
		a.alive[i] = a.dropout.Rand() == 0
		if a.alive[i] {
			alive++
		}
	}

	// Revive random dead agents until enough are alive
	for alive < MinAlive {
		i := a.rng.Intn(len(a.alive))
		if !a.alive[i] {
			a.alive[i] = true
			alive++
		}
	}

	return a.mask(obs), a.info(), nil
}

// Step steps the wrapped environment with dead agents taking the zero
// action
func (a *AgentDropout) Step(actions [][]float64) ([][]float64, []float64,
	[]bool, timestep.Info, error) {
	if len(actions) != len(a.alive) {
		return nil, nil, nil, timestep.Info{}, fmt.Errorf("step: have %v "+
			"actions for %v agents", len(actions), len(a.alive))
	}

	masked := make([][]float64, len(actions))
	for i, action := range actions {
		if a.alive[i] {
			masked[i] = action
		} else {
			masked[i] = make([]float64, len(action))
		}
	}

	obs, reward, done, _, err := a.Environment.Step(masked)
	if err != nil {
		return nil, nil, nil, timestep.Info{}, err
	}
	return a.mask(obs), reward, done, a.info(), nil
}

// Alive returns whether agent i is alive in the current episode
func (a *AgentDropout) Alive(i int) bool {
	return a.alive[i]
}

// mask zeroes the observations of dead agents
func (a *AgentDropout) mask(obs [][]float64) [][]float64 {
	for i := range obs {
		if !a.alive[i] {
			obs[i] = make([]float64, len(obs[i]))
		}
	}
	return obs
}

func (a *AgentDropout) info() timestep.Info {
	return timestep.Info{AliveMask: append([]bool(nil), a.alive...)}
}
