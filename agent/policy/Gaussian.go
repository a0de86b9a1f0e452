package policy

import (
	"fmt"

	"github.com/samuelfneumann/gomarl/network"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian samples each agent's continuous action from a diagonal
// gaussian with the network's mean and standard deviation
type Gaussian struct {
	mode
	normal distuv.Normal
}

// NewGaussian returns a new gaussian policy
func NewGaussian(seed uint64) *Gaussian {
	return &Gaussian{
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)},
	}
}

// Select samples one action per agent
func (g *Gaussian) Select(out network.ActionOutput) ([][]float64, error) {
	if !out.Continuous() {
		return nil, fmt.Errorf("select: gaussian policy given discrete " +
			"action output")
	}
	if g.IsEval() {
		return greedy(out), nil
	}

	actions := make([][]float64, out.Agents())
	for i := range actions {
		mean, std := out.Mean.RawRowView(i), out.Std.RawRowView(i)
		actions[i] = make([]float64, len(mean))
		for j := range mean {
			actions[i][j] = mean[j] + std[j]*g.normal.Rand()
		}
	}
	return actions, nil
}
