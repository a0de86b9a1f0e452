// Package navigation implements the cooperative navigation
// environment: N agents must spread out to cover N landmarks while
// avoiding collisions with each other.
package navigation

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/gomarl/environment"
	"github.com/samuelfneumann/gomarl/timestep"
	"github.com/samuelfneumann/gomarl/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	Bound        float64 = 1.0  // Start positions lie in [-Bound, Bound]
	AgentSize    float64 = 0.15 // Radius of an agent
	LandmarkSize float64 = 0.05
	CoverRadius  float64 = 0.1 // Distance at which a landmark is covered

	Damping     float64 = 0.25
	Sensitivity float64 = 5.0 // Acceleration per unit of action force
	Dt          float64 = 0.1
	MaxSpeed    float64 = 1.0

	CollisionPenalty float64 = 1.0
)

// Discrete actions
const (
	NoOp int = iota
	Left
	Right
	Down
	Up

	NumDiscreteActions
)

// ContinuousActionDims is the dimension of continuous actions: the
// force along each axis
const ContinuousActionDims = 2

// Config configures a Navigation environment
type Config struct {
	Agents     int
	Continuous bool

	// Terminate ends an episode once every landmark is covered by some
	// agent
	Terminate bool
}

// ObsSize returns the length of the observation of each agent: its
// velocity and position, the relative positions of all landmarks and
// the relative positions of all other agents
func ObsSize(agents int) int {
	return 4 + 2*agents + 2*(agents-1)
}

// Navigation implements the cooperative navigation environment.
//
// Every agent observes its own velocity and position along with the
// positions of all landmarks and all other agents relative to itself.
// Rewards are shared: every agent receives the negative sum over
// landmarks of the distance to the closest agent, minus a penalty for
// every pair of colliding agents.
//
// Discrete actions are indices into (NoOp, Left, Right, Down, Up).
// Continuous actions are 2-dimensional forces in [-1, 1].
//
// Navigation implements the environment.Environment interface
type Navigation struct {
	Config
	start distuv.Uniform

	pos       []r2.Vec
	vel       []r2.Vec
	landmarks []r2.Vec
	steps     int
}

// New returns a new Navigation environment whose start states are
// sampled with the given seed
func New(c Config, seed uint64) (*Navigation, error) {
	if c.Agents < 1 {
		return nil, fmt.Errorf("new: need at least 1 agent, have %v",
			c.Agents)
	}
	return &Navigation{
		Config: c,
		start: distuv.Uniform{Min: -Bound, Max: Bound,
			Src: rand.NewSource(seed)},
		pos:       make([]r2.Vec, c.Agents),
		vel:       make([]r2.Vec, c.Agents),
		landmarks: make([]r2.Vec, c.Agents),
	}, nil
}

// Agents returns the number of agents
func (n *Navigation) Agents() int {
	return n.Config.Agents
}

// Reset places agents and landmarks uniformly at random and returns
// the first observations
func (n *Navigation) Reset() ([][]float64, timestep.Info, error) {
	for i := range n.pos {
		n.pos[i] = r2.Vec{X: n.start.Rand(), Y: n.start.Rand()}
		n.vel[i] = r2.Vec{}
	}
	for i := range n.landmarks {
		n.landmarks[i] = r2.Vec{X: n.start.Rand(), Y: n.start.Rand()}
	}
	n.steps = 0
	return n.observations(), environment.AllAlive(n.Config.Agents), nil
}

// Step moves every agent under its action
func (n *Navigation) Step(actions [][]float64) ([][]float64, []float64,
	[]bool, timestep.Info, error) {
	if len(actions) != n.Config.Agents {
		return nil, nil, nil, timestep.Info{}, fmt.Errorf("step: have %v "+
			"actions for %v agents", len(actions), n.Config.Agents)
	}

	for i, a := range actions {
		force, err := n.force(a)
		if err != nil {
			return nil, nil, nil, timestep.Info{}, fmt.Errorf("step: agent "+
				"%v: %v", i, err)
		}

		vel := n.vel[i].Scale(1 - Damping).Add(force.Scale(Sensitivity * Dt))
		if speed := norm(vel); speed > MaxSpeed {
			vel = vel.Scale(MaxSpeed / speed)
		}
		n.vel[i] = vel
		n.pos[i] = n.pos[i].Add(vel.Scale(Dt))
	}
	n.steps++

	reward := n.reward()
	rewards := make([]float64, n.Config.Agents)
	for i := range rewards {
		rewards[i] = reward
	}

	done := make([]bool, n.Config.Agents)
	if n.Terminate && n.covered() {
		for i := range done {
			done[i] = true
		}
	}

	return n.observations(), rewards, done,
		environment.AllAlive(n.Config.Agents), nil
}

// force returns the force applied by an action
func (n *Navigation) force(a []float64) (r2.Vec, error) {
	if n.Continuous {
		if len(a) != ContinuousActionDims {
			return r2.Vec{}, fmt.Errorf("continuous action must have %v "+
				"dimensions, have %v", ContinuousActionDims, len(a))
		}
		return r2.Vec{
			X: floatutils.Clip(a[0], -1, 1),
			Y: floatutils.Clip(a[1], -1, 1),
		}, nil
	}

	if len(a) != 1 {
		return r2.Vec{}, fmt.Errorf("discrete action must be a single "+
			"index, have %v", a)
	}
	switch int(a[0]) {
	case NoOp:
		return r2.Vec{}, nil
	case Left:
		return r2.Vec{X: -1}, nil
	case Right:
		return r2.Vec{X: 1}, nil
	case Down:
		return r2.Vec{Y: -1}, nil
	case Up:
		return r2.Vec{Y: 1}, nil
	}
	return r2.Vec{}, fmt.Errorf("illegal discrete action %v", a[0])
}

// reward returns the shared reward of the current positions
func (n *Navigation) reward() float64 {
	reward := 0.0
	for _, l := range n.landmarks {
		reward -= n.closest(l)
	}

	for i := range n.pos {
		for j := i + 1; j < len(n.pos); j++ {
			if norm(n.pos[i].Sub(n.pos[j])) < 2*AgentSize {
				reward -= CollisionPenalty
			}
		}
	}
	return reward
}

// closest returns the distance from l to the closest agent
func (n *Navigation) closest(l r2.Vec) float64 {
	dist := math.Inf(1)
	for _, p := range n.pos {
		dist = math.Min(dist, norm(p.Sub(l)))
	}
	return dist
}

// covered returns whether every landmark has an agent within
// CoverRadius
func (n *Navigation) covered() bool {
	for _, l := range n.landmarks {
		if n.closest(l) > CoverRadius {
			return false
		}
	}
	return true
}

func (n *Navigation) observations() [][]float64 {
	obs := make([][]float64, n.Config.Agents)
	for i := range obs {
		o := make([]float64, 0, ObsSize(n.Config.Agents))
		o = append(o, n.vel[i].X, n.vel[i].Y, n.pos[i].X, n.pos[i].Y)
		for _, l := range n.landmarks {
			rel := l.Sub(n.pos[i])
			o = append(o, rel.X, rel.Y)
		}
		for j, p := range n.pos {
			if j == i {
				continue
			}
			rel := p.Sub(n.pos[i])
			o = append(o, rel.X, rel.Y)
		}
		obs[i] = o
	}
	return obs
}

// ObservationSpec returns the per-agent observation specification
func (n *Navigation) ObservationSpec() environment.Spec {
	size := ObsSize(n.Config.Agents)
	bounds := make([]r1.Interval, size)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: math.Inf(-1), Max: math.Inf(1)}
	}
	return environment.NewSpec(size, environment.Observation, bounds,
		environment.Continuous)
}

// ActionSpec returns the per-agent action specification
func (n *Navigation) ActionSpec() environment.Spec {
	if !n.Continuous {
		return environment.NewSpec(NumDiscreteActions, environment.Action,
			[]r1.Interval{{Min: 0, Max: float64(NumDiscreteActions - 1)}},
			environment.Discrete)
	}
	bounds := []r1.Interval{{Min: -1, Max: 1}, {Min: -1, Max: 1}}
	return environment.NewSpec(ContinuousActionDims, environment.Action,
		bounds, environment.Continuous)
}

// Positions returns the positions of the agents
func (n *Navigation) Positions() []r2.Vec {
	return append([]r2.Vec(nil), n.pos...)
}

// Landmarks returns the positions of the landmarks
func (n *Navigation) Landmarks() []r2.Vec {
	return append([]r2.Vec(nil), n.landmarks...)
}

// SetPositions places the agents and landmarks, with zero velocity
func (n *Navigation) SetPositions(agents, landmarks []r2.Vec) error {
	if len(agents) != n.Config.Agents || len(landmarks) != n.Config.Agents {
		return fmt.Errorf("setPositions: need %v agents and landmarks, "+
			"have %v and %v", n.Config.Agents, len(agents), len(landmarks))
	}
	copy(n.pos, agents)
	copy(n.landmarks, landmarks)
	for i := range n.vel {
		n.vel[i] = r2.Vec{}
	}
	return nil
}

func norm(v r2.Vec) float64 {
	return math.Hypot(v.X, v.Y)
}
