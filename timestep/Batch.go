package timestep

import "fmt"

// Batch is the transposed view of a list of transitions: all states
// together, all actions together and so on. Index k of every field
// refers to the same transition.
type Batch struct {
	States     [][][]float64
	Actions    [][][]float64
	Rewards    [][]float64
	NextStates [][][]float64
	Dones      []bool
	LastSteps  []bool

	// Alive and NextAlive hold the liveness masks of the agents at
	// States[k] and NextStates[k].
	Alive     []Info
	NextAlive []Info
}

// NewBatch transposes the transitions of the given episodes into a
// single Batch. Episodes are never split.
func NewBatch(episodes ...*Episode) Batch {
	size := 0
	for _, e := range episodes {
		size += e.Len()
	}

	b := Batch{
		States:     make([][][]float64, 0, size),
		Actions:    make([][][]float64, 0, size),
		Rewards:    make([][]float64, 0, size),
		NextStates: make([][][]float64, 0, size),
		Dones:      make([]bool, 0, size),
		LastSteps:  make([]bool, 0, size),
		Alive:      make([]Info, 0, size),
		NextAlive:  make([]Info, 0, size),
	}

	for _, e := range episodes {
		for k, t := range e.Transitions {
			b.States = append(b.States, t.State)
			b.Actions = append(b.Actions, t.Action)
			b.Rewards = append(b.Rewards, t.Reward)
			b.NextStates = append(b.NextStates, t.NextState)
			b.Dones = append(b.Dones, t.Done)
			b.LastSteps = append(b.LastSteps, t.LastStep)
			b.Alive = append(b.Alive, e.infoAt(k))
			b.NextAlive = append(b.NextAlive, e.infoAt(k+1))
		}
	}
	return b
}

// infoAt returns the info of state k, defaulting to all alive for
// episodes built without info records.
func (e *Episode) infoAt(k int) Info {
	if k < len(e.Info) {
		return e.Info[k]
	}
	return Info{}
}

// Len returns the number of transitions in the batch
func (b Batch) Len() int {
	return len(b.States)
}

// Agents returns the number of agents per transition
func (b Batch) Agents() int {
	if b.Len() == 0 {
		return 0
	}
	return len(b.States[0])
}

// Validate checks that every transition has the same number of agent
// slots.
func (b Batch) Validate(agents int) error {
	for k := 0; k < b.Len(); k++ {
		if len(b.States[k]) != agents || len(b.NextStates[k]) != agents ||
			len(b.Actions[k]) != agents || len(b.Rewards[k]) != agents {
			return fmt.Errorf("validate: transition %v does not have %v "+
				"agent slots", k, agents)
		}
	}
	return nil
}
