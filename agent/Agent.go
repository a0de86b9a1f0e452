// Package agent defines the capability sets shared by multi-agent
// models and action selection policies
package agent

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/gomarl/network"
	"github.com/samuelfneumann/gomarl/timestep"
	G "gorgonia.org/gorgonia"
)

// ErrNonFinite is returned when a loss evaluates to NaN or infinity
var ErrNonFinite = errors.New("non-finite loss")

// Model implements a multi-agent model that maps per-agent observations
// to per-agent action distributions and value estimates, and computes
// the losses used to train itself.
type Model interface {
	// Policy runs the model on the observations of a single step
	Policy(state [][]float64, info timestep.Info) (network.ActionOutput,
		error)

	// Loss computes the action and value losses of a batch along with
	// their gradients. The step is the training step counter, used for
	// scheduled coefficients.
	Loss(batch timestep.Batch, step int) (*Loss, error)

	// UpdateTarget synchronizes the target parameters with the online
	// parameters
	UpdateTarget() error

	// Save persists the online parameters to a file
	Save(path string) error
}

// Loss records the losses computed on a batch together with the
// gradients of each parameter group. The value group and the action
// group never share parameters.
type Loss struct {
	Action  float64
	Value   float64
	Entropy float64
	LogProb float64 // Mean log-probability of the taken actions

	ValueModel  []G.ValueGrad
	ActionModel []G.ValueGrad

	// CommitValue and CommitAction write the result of a solver step on
	// ValueModel and ActionModel back into the model. Either may be nil.
	CommitValue  func() error
	CommitAction func() error

	// Release frees the machines holding the gradients. It may be nil.
	Release func()
}

// Close releases the resources held by the loss
func (l *Loss) Close() {
	if l.Release != nil {
		l.Release()
	}
}

// Policy represents an action selection strategy over the outputs of a
// Model.
//
// Policies determine how concrete actions are chosen from per-agent
// action distributions. In evaluation mode a policy acts greedily.
type Policy interface {
	// Select returns one action per agent in network action space:
	// a one-hot vector for discrete actions or the raw sample for
	// continuous actions
	Select(out network.ActionOutput) ([][]float64, error)

	// EndEpisode updates any per-episode schedule
	EndEpisode()

	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}
