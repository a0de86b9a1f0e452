// Package environment outlines the interfaces and structs needed to
// implement concrete multi-agent environments
package environment

import (
	"github.com/samuelfneumann/gomarl/timestep"
)

// Environment implements a simulated multi-agent environment. All
// per-agent slices have one entry per agent, including agents that are
// currently not alive.
type Environment interface {
	// Agents returns the number of agent slots in the environment
	Agents() int

	// Reset starts a new episode, returning the initial per-agent
	// observations and the liveness of the agents
	Reset() ([][]float64, timestep.Info, error)

	// Step takes one action per agent in environment action space and
	// returns the next observations, per-agent rewards, per-agent
	// termination flags and the info of the next state
	Step(actions [][]float64) ([][]float64, []float64, []bool,
		timestep.Info, error)

	ObservationSpec() Spec
	ActionSpec() Spec
}

// Renderer is implemented by environments that can draw their current
// state to an image file
type Renderer interface {
	Render(filename string) error
}
