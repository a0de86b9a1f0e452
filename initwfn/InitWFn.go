// Package initwfn draws seeded initial values for network weights
package initwfn

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Type names a weight distribution
type Type string

const (
	Gaussian Type = "Gaussian"
	Uniform  Type = "Uniform"
	Constant Type = "Constant"
)

// InitWFn draws weights from a fixed distribution. The same source seed
// always produces the same weights.
type InitWFn struct {
	kind   Type
	params [2]float64

	// draw returns a sampler of the distribution reading from src
	draw func(src rand.Source) func() float64
}

// NewGaussian returns an initializer drawing from N(mean, stddev^2)
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	if stddev < 0 {
		return nil, errors.Errorf("newGaussian: negative standard "+
			"deviation %v", stddev)
	}
	return &InitWFn{
		kind:   Gaussian,
		params: [2]float64{mean, stddev},
		draw: func(src rand.Source) func() float64 {
			return distuv.Normal{Mu: mean, Sigma: stddev, Src: src}.Rand
		},
	}, nil
}

// NewUniform returns an initializer drawing from U[low, high)
func NewUniform(low, high float64) (*InitWFn, error) {
	if low > high {
		return nil, errors.Errorf("newUniform: low %v > high %v", low, high)
	}
	return &InitWFn{
		kind:   Uniform,
		params: [2]float64{low, high},
		draw: func(src rand.Source) func() float64 {
			return distuv.Uniform{Min: low, Max: high, Src: src}.Rand
		},
	}, nil
}

// NewConstant returns an initializer that sets every weight to value
func NewConstant(value float64) *InitWFn {
	return &InitWFn{
		kind:   Constant,
		params: [2]float64{value, value},
		draw: func(rand.Source) func() float64 {
			return func() float64 { return value }
		},
	}
}

// Type returns the distribution the initializer draws from
func (w *InitWFn) Type() Type {
	return w.kind
}

// Values returns a row-major slice of weights for a tensor of the given
// shape, drawn from src
func (w *InitWFn) Values(src rand.Source, shape ...int) []float64 {
	n := 1
	for _, dim := range shape {
		n *= dim
	}

	next := w.draw(src)
	values := make([]float64, n)
	for i := range values {
		values[i] = next()
	}
	return values
}

func (w *InitWFn) String() string {
	switch w.kind {
	case Gaussian:
		return fmt.Sprintf("Gaussian(mean=%v, std=%v)", w.params[0],
			w.params[1])
	case Uniform:
		return fmt.Sprintf("Uniform[%v, %v)", w.params[0], w.params[1])
	default:
		return fmt.Sprintf("Constant(%v)", w.params[0])
	}
}
