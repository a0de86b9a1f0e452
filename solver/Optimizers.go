package solver

import G "gorgonia.org/gorgonia"

// AdamConfig describes a configuration of the Adam solver
type AdamConfig struct {
	LearnRate float64
	Epsilon   float64
	Beta1     float64
	Beta2     float64
}

// DefaultAdam returns the Adam configuration with the usual moment
// decay rates
func DefaultAdam(learningRate float64) AdamConfig {
	return AdamConfig{
		LearnRate: learningRate,
		Epsilon:   1e-8,
		Beta1:     0.9,
		Beta2:     0.999,
	}
}

// Create returns a new Gorgonia Adam Solver
func (a AdamConfig) Create() G.Solver {
	return G.NewAdamSolver(
		G.WithLearnRate(a.LearnRate),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
		G.WithBatchSize(1),
	)
}

func (a AdamConfig) Type() Type            { return Adam }
func (a AdamConfig) LearningRate() float64 { return a.LearnRate }

// RMSPropConfig describes a configuration of the RMSProp solver
type RMSPropConfig struct {
	LearnRate float64
	Epsilon   float64
	Rho       float64 // Decay of the squared gradient average
}

// DefaultRMSProp returns the RMSProp configuration with a squared
// gradient decay of 0.99
func DefaultRMSProp(learningRate float64) RMSPropConfig {
	return RMSPropConfig{LearnRate: learningRate, Epsilon: 1e-8, Rho: 0.99}
}

// Create returns a new Gorgonia RMSProp Solver
func (r RMSPropConfig) Create() G.Solver {
	return G.NewRMSPropSolver(
		G.WithLearnRate(r.LearnRate),
		G.WithEps(r.Epsilon),
		G.WithRho(r.Rho),
		G.WithBatchSize(1),
	)
}

func (r RMSPropConfig) Type() Type            { return RMSProp }
func (r RMSPropConfig) LearningRate() float64 { return r.LearnRate }

// SGDConfig describes plain stochastic gradient descent
type SGDConfig struct {
	LearnRate float64
}

// Create returns a new Gorgonia Vanilla Solver
func (s SGDConfig) Create() G.Solver {
	return G.NewVanillaSolver(G.WithLearnRate(s.LearnRate),
		G.WithBatchSize(1))
}

func (s SGDConfig) Type() Type            { return SGD }
func (s SGDConfig) LearningRate() float64 { return s.LearnRate }
