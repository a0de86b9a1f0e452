package network

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/gomarl/timestep"
	"gonum.org/v1/gonum/mat"
)

// ErrTooFewAlive is returned when a communication round is requested
// with fewer than two live agents. Messages are averaged over the
// number of live agents minus one, so at least two must be alive.
var ErrTooFewAlive = errors.New("fewer than two live agents")

// CommMask holds the liveness masks of a single step of communication.
//
// The message received by agent i is
//
//	c_i = a_i / (k - 1) * Σ_{j≠i} a_j h_j
//
// where a is the 0/1 liveness mask and k the number of live agents.
// Source holds a_j and Scale holds a_i / (k - 1).
type CommMask struct {
	alive  int
	source []float64
	scale  []float64
}

// NewCommMask returns the mask for the given liveness flags. A nil
// mask of n agents should be given as n true flags.
func NewCommMask(alive []bool) (CommMask, error) {
	k := 0
	for _, a := range alive {
		if a {
			k++
		}
	}
	if k < 2 {
		return CommMask{}, errors.Wrapf(ErrTooFewAlive,
			"newCommMask: %v of %v agents alive", k, len(alive))
	}

	source := make([]float64, len(alive))
	scale := make([]float64, len(alive))
	for i, a := range alive {
		if a {
			source[i] = 1.0
			scale[i] = 1.0 / float64(k-1)
		}
	}
	return CommMask{alive: k, source: source, scale: scale}, nil
}

// Alive returns the number of live agents
func (c CommMask) Alive() int {
	return c.alive
}

// Source returns the per-agent source mask
func (c CommMask) Source() []float64 {
	return c.source
}

// Scale returns the per-agent receiving scale
func (c CommMask) Scale() []float64 {
	return c.scale
}

// Edges returns the n x n communication matrix W such that the
// messages of all agents are W h for the hidden states h stacked by
// row. The diagonal of W is always zero.
func (c CommMask) Edges() *mat.Dense {
	n := len(c.source)
	w := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				w.Set(i, j, c.scale[i]*c.source[j])
			}
		}
	}
	return w
}

// Messages returns the messages W h received by every agent given
// their hidden states stacked by row
func (c CommMask) Messages(hidden mat.Matrix) *mat.Dense {
	var msg mat.Dense
	msg.Mul(c.Edges(), hidden)
	return &msg
}

// maskColumns returns the stacked source and scale columns of a batch
// of steps, one row per agent per step.
func maskColumns(infos []timestep.Info, agents int) (source,
	scale []float64, err error) {
	source = make([]float64, 0, len(infos)*agents)
	scale = make([]float64, 0, len(infos)*agents)

	for k, info := range infos {
		alive := make([]bool, agents)
		for i := range alive {
			alive[i] = info.Alive(i)
		}

		mask, err := NewCommMask(alive)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "step %v", k)
		}
		source = append(source, mask.source...)
		scale = append(scale, mask.scale...)
	}
	return source, scale, nil
}
