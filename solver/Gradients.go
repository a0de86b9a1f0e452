package solver

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/gomarl/utils/floatutils"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
)

// Clip clips every gradient element to [-limit, limit] in place
func Clip(model []G.ValueGrad, limit float64) error {
	return apply(model, func(grad []float64) {
		floatutils.ClipSlice(grad, -limit, limit)
	})
}

// GradNorm returns the L2 norm of all gradients of the model taken
// together
func GradNorm(model []G.ValueGrad) (float64, error) {
	sumSq := 0.0
	err := apply(model, func(grad []float64) {
		n := floats.Norm(grad, 2)
		sumSq += n * n
	})
	return math.Sqrt(sumSq), err
}

// apply calls fn on the backing data of each gradient
func apply(model []G.ValueGrad, fn func([]float64)) error {
	for _, vg := range model {
		grad, err := vg.Grad()
		if err != nil {
			return fmt.Errorf("apply: could not get gradient: %v", err)
		}

		switch data := grad.Data().(type) {
		case []float64:
			fn(data)

		case float64:
			scalar := []float64{data}
			fn(scalar)
			if f, ok := grad.(*G.F64); ok {
				*f = G.F64(scalar[0])
			}

		default:
			return fmt.Errorf("apply: unsupported gradient type %T", data)
		}
	}
	return nil
}
