// Package solver implements the optimizers that update the value and
// action parameter groups of a model, along with the gradient
// utilities used before each optimizer step.
package solver

import (
	"fmt"

	"github.com/samuelfneumann/gomarl/config"
	G "gorgonia.org/gorgonia"
)

// Type names an optimizer. Types match the optimizer names accepted by
// config.Config.
type Type string

// Available solver types
const (
	Adam    Type = config.Adam
	RMSProp Type = config.RMSProp
	SGD     Type = config.SGD
)

// Solver wraps a Gorgonia Solver together with the configuration that
// created it. Each parameter group is stepped by its own Solver so that
// optimizer state is never shared between groups.
type Solver struct {
	G.Solver
	Type   Type
	Config Config
}

// Config describes the hyperparameters of a Gorgonia Solver and
// creates the Solvers it describes
type Config interface {
	Create() G.Solver
	Type() Type
	LearningRate() float64
}

// New returns a new Solver described by c
func New(c Config) (*Solver, error) {
	if c.LearningRate() <= 0 {
		return nil, fmt.Errorf("new: %v learning rate must be positive, "+
			"have %v", c.Type(), c.LearningRate())
	}
	return &Solver{Solver: c.Create(), Type: c.Type(), Config: c}, nil
}

// FromConfig returns the solver named by a training configuration's
// optimizer field with the given learning rate. Losses are already
// averaged over their batch, so gradients are never rescaled by a
// solver batch size.
func FromConfig(optimizer string, learningRate float64) (*Solver, error) {
	var c Config
	switch Type(optimizer) {
	case Adam:
		c = DefaultAdam(learningRate)
	case RMSProp:
		c = DefaultRMSProp(learningRate)
	case SGD:
		c = SGDConfig{LearnRate: learningRate}
	default:
		return nil, fmt.Errorf("fromConfig: unknown optimizer %q", optimizer)
	}

	s, err := New(c)
	if err != nil {
		return nil, fmt.Errorf("fromConfig: %v", err)
	}
	return s, nil
}

func (s *Solver) String() string {
	return fmt.Sprintf("%v(lr=%v)", s.Type, s.Config.LearningRate())
}
