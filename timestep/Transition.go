// Package timestep implements the records of the multi-agent
// agent-environment interaction: transitions, episodes and batches.
package timestep

import (
	"fmt"
)

// Info carries auxiliary per-step information published by an
// environment. It is kept apart from Transition so that agents that are
// not alive still occupy a slot in every fixed-width record.
type Info struct {
	// AliveMask[i] reports whether agent i takes part in communication
	// and decision making. A nil mask means all agents are alive.
	AliveMask []bool
}

// Alive returns whether agent i is alive
func (i Info) Alive(agent int) bool {
	if i.AliveMask == nil {
		return true
	}
	return i.AliveMask[agent]
}

// NumAlive returns the number of live agents out of n
func (i Info) NumAlive(n int) int {
	if i.AliveMask == nil {
		return n
	}
	alive := 0
	for _, a := range i.AliveMask {
		if a {
			alive++
		}
	}
	return alive
}

// Mask returns the liveness mask of n agents as 0/1 floats
func (i Info) Mask(n int) []float64 {
	mask := make([]float64, n)
	for j := range mask {
		if i.Alive(j) {
			mask[j] = 1.0
		}
	}
	return mask
}

// Transition is a single step of the interaction between all agents
// and the environment. Every per-agent field has exactly one slot per
// agent.
type Transition struct {
	State     [][]float64 // Per-agent observations, zero padded
	Action    [][]float64 // Per-agent actions in network space
	Reward    []float64   // Per-agent rewards
	NextState [][]float64

	// Done reports whether the environment signalled termination
	Done bool

	// LastStep reports whether this is the final transition of its
	// episode, either because Done is set or because the step limit
	// was reached. Only Done stops bootstrapping.
	LastStep bool
}

// Agents returns the number of agents in the transition
func (t Transition) Agents() int {
	return len(t.State)
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Agents: %v  |  Reward: %.2f  |  "+
		"Done: %v  |  Last: %v", t.Agents(), t.Reward, t.Done, t.LastStep)
}

// Episode is an ordered sequence of transitions terminated by the first
// transition whose LastStep flag is set.
type Episode struct {
	Transitions []Transition

	// Info[k] describes the agents at Transitions[k].State, and
	// Info[len(Transitions)] describes them at the final NextState.
	Info []Info
}

// NewEpisode returns an empty episode whose first state has the given
// info.
func NewEpisode(first Info, maxSteps int) *Episode {
	infos := make([]Info, 1, maxSteps+1)
	infos[0] = first
	return &Episode{
		Transitions: make([]Transition, 0, maxSteps),
		Info:        infos,
	}
}

// Add appends a transition along with the info describing its next
// state. Adding to a finished episode is an error.
func (e *Episode) Add(t Transition, next Info) error {
	if e.Finished() {
		return fmt.Errorf("add: episode already finished after %v steps",
			e.Len())
	}
	e.Transitions = append(e.Transitions, t)
	e.Info = append(e.Info, next)
	return nil
}

// Len returns the number of transitions in the episode
func (e *Episode) Len() int {
	return len(e.Transitions)
}

// Finished returns whether the last transition ends the episode
func (e *Episode) Finished() bool {
	return e.Len() > 0 && e.Transitions[e.Len()-1].LastStep
}

// Return returns the sum over steps of the mean per-agent reward
func (e *Episode) Return() float64 {
	ret := 0.0
	for _, t := range e.Transitions {
		ret += mean(t.Reward)
	}
	return ret
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}
