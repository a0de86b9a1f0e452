package network

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ActionOutput holds the per-agent outputs of a communication network.
// Discrete networks fill LogProbs; continuous networks fill Mean,
// LogStd and Std. Each matrix has one row per agent.
type ActionOutput struct {
	LogProbs *mat.Dense
	Mean     *mat.Dense
	LogStd   *mat.Dense
	Std      *mat.Dense
	Value    []float64
}

func newActionOutput(rows, actions int, continuous bool, action, logStd,
	value []float64) ActionOutput {
	out := ActionOutput{Value: append([]float64(nil), value...)}

	act := mat.NewDense(rows, actions, append([]float64(nil), action...))
	if !continuous {
		out.LogProbs = act
		return out
	}

	out.Mean = act
	out.LogStd = mat.NewDense(rows, actions, append([]float64(nil), logStd...))
	out.Std = mat.NewDense(rows, actions, nil)
	out.Std.Apply(func(_, _ int, v float64) float64 {
		return math.Exp(v)
	}, out.LogStd)
	return out
}

// Continuous returns whether the output describes continuous actions
func (a ActionOutput) Continuous() bool {
	return a.Mean != nil
}

// Agents returns the number of rows of the output
func (a ActionOutput) Agents() int {
	return len(a.Value)
}

// Probs returns the action probabilities of agent i
func (a ActionOutput) Probs(i int) []float64 {
	logProbs := mat.Row(nil, i, a.LogProbs)
	for j := range logProbs {
		logProbs[j] = math.Exp(logProbs[j])
	}
	return logProbs
}
