package policy

import (
	"math"

	"github.com/samuelfneumann/gomarl/network"
	"github.com/samuelfneumann/gomarl/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Softmax samples each agent's action from its categorical action
// distribution
type Softmax struct {
	mode
	src rand.Source
}

// NewSoftmax returns a new softmax sampling policy
func NewSoftmax(seed uint64) *Softmax {
	return &Softmax{src: rand.NewSource(seed)}
}

// Select samples one action per agent
func (s *Softmax) Select(out network.ActionOutput) ([][]float64, error) {
	if err := checkDiscrete(out); err != nil {
		return nil, err
	}
	if s.IsEval() {
		return greedy(out), nil
	}

	actions := make([][]float64, out.Agents())
	for i := range actions {
		probs := out.Probs(i)
		actions[i] = oneHot(sample(probs, s.src), len(probs))
	}
	return actions, nil
}

// EpsilonSoftmax samples from a mixture of each agent's action
// distribution and the uniform distribution. The uniform weight ε
// decays linearly per episode from its initial to its final value.
type EpsilonSoftmax struct {
	mode
	src rand.Source

	epsilon  float64
	end      float64
	decrease float64
}

// NewEpsilonSoftmax returns a new epsilon softmax policy whose epsilon
// decays from init to end over decay episodes
func NewEpsilonSoftmax(init, end float64, decay int,
	seed uint64) *EpsilonSoftmax {
	return &EpsilonSoftmax{
		src:      rand.NewSource(seed),
		epsilon:  init,
		end:      end,
		decrease: (init - end) / float64(decay),
	}
}

// Epsilon returns the current uniform weight
func (e *EpsilonSoftmax) Epsilon() float64 {
	return e.epsilon
}

// EndEpisode decays epsilon
func (e *EpsilonSoftmax) EndEpisode() {
	e.epsilon = math.Max(e.epsilon-e.decrease, e.end)
}

// Select samples one action per agent
func (e *EpsilonSoftmax) Select(out network.ActionOutput) ([][]float64,
	error) {
	if err := checkDiscrete(out); err != nil {
		return nil, err
	}
	if e.IsEval() {
		return greedy(out), nil
	}

	actions := make([][]float64, out.Agents())
	for i := range actions {
		probs := out.Probs(i)
		uniform := e.epsilon / float64(len(probs))
		for j := range probs {
			probs[j] = (1-e.epsilon)*probs[j] + uniform
		}
		actions[i] = oneHot(sample(probs, e.src), len(probs))
	}
	return actions, nil
}

// GumbelSoftmax selects each agent's action as the argmax of its
// log-probabilities perturbed by standard Gumbel noise, which is a
// sample of the categorical distribution returned as a hard one-hot
// vector
type GumbelSoftmax struct {
	mode
	gumbel distuv.GumbelRight
}

// NewGumbelSoftmax returns a new Gumbel-softmax policy
func NewGumbelSoftmax(seed uint64) *GumbelSoftmax {
	return &GumbelSoftmax{
		gumbel: distuv.GumbelRight{Mu: 0, Beta: 1, Src: rand.NewSource(seed)},
	}
}

// Select samples one action per agent
func (g *GumbelSoftmax) Select(out network.ActionOutput) ([][]float64,
	error) {
	if err := checkDiscrete(out); err != nil {
		return nil, err
	}
	if g.IsEval() {
		return greedy(out), nil
	}

	actions := make([][]float64, out.Agents())
	for i := range actions {
		perturbed := append([]float64(nil), out.LogProbs.RawRowView(i)...)
		for j := range perturbed {
			perturbed[j] += g.gumbel.Rand()
		}
		actions[i] = oneHot(floatutils.ArgMax(perturbed), len(perturbed))
	}
	return actions, nil
}

// sample draws an index from a categorical distribution
func sample(probs []float64, src rand.Source) int {
	dist := distuv.NewCategorical(probs, src)
	return int(dist.Rand())
}
