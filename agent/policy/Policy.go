// Package policy implements pluggable action selection over the
// per-agent outputs of a multi-agent model
package policy

import (
	"fmt"

	"github.com/samuelfneumann/gomarl/agent"
	"github.com/samuelfneumann/gomarl/config"
	"github.com/samuelfneumann/gomarl/network"
	"github.com/samuelfneumann/gomarl/utils/floatutils"
)

// New returns the action selection policy named by the configuration:
// Gaussian for continuous actions, otherwise Gumbel-softmax, epsilon
// softmax or plain softmax sampling.
func New(c config.Config, seed uint64) agent.Policy {
	switch {
	case c.Continuous:
		return NewGaussian(seed)
	case c.GumbelSoftmax:
		return NewGumbelSoftmax(seed)
	case c.EpsilonSoftmax:
		return NewEpsilonSoftmax(c.SoftmaxEpsInit, c.SoftmaxEpsEnd,
			c.SoftmaxEpsDecay, seed)
	}
	return NewSoftmax(seed)
}

// mode tracks whether a policy is in evaluation or training mode
type mode struct {
	eval bool
}

// Eval sets the policy to evaluation mode
func (m *mode) Eval() { m.eval = true }

// Train sets the policy to training mode
func (m *mode) Train() { m.eval = false }

// IsEval returns whether the policy is in evaluation mode
func (m *mode) IsEval() bool { return m.eval }

// EndEpisode does nothing for policies without schedules
func (m *mode) EndEpisode() {}

// Greedy implements a greedy policy: the most probable action for
// discrete actions and the mean for continuous actions
type Greedy struct {
	mode
}

// NewGreedy returns a new greedy policy
func NewGreedy() *Greedy {
	return &Greedy{}
}

// Select selects the greedy action of every agent
func (g *Greedy) Select(out network.ActionOutput) ([][]float64, error) {
	return greedy(out), nil
}

func greedy(out network.ActionOutput) [][]float64 {
	actions := make([][]float64, out.Agents())
	for i := range actions {
		if out.Continuous() {
			actions[i] = append([]float64(nil), out.Mean.RawRowView(i)...)
			continue
		}
		actions[i] = oneHot(floatutils.ArgMax(out.LogProbs.RawRowView(i)),
			len(out.LogProbs.RawRowView(i)))
	}
	return actions
}

func oneHot(index, size int) []float64 {
	v := make([]float64, size)
	v[index] = 1.0
	return v
}

func checkDiscrete(out network.ActionOutput) error {
	if out.Continuous() {
		return fmt.Errorf("select: categorical policy given continuous " +
			"action output")
	}
	return nil
}
