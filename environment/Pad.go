package environment

import (
	"fmt"

	"github.com/samuelfneumann/gomarl/timestep"
)

// Pad returns a copy of the per-agent observations zero padded at the
// end to the given size. Observations longer than size are an error.
func Pad(obs [][]float64, size int) ([][]float64, error) {
	padded := make([][]float64, len(obs))
	for i, o := range obs {
		if len(o) > size {
			return nil, fmt.Errorf("pad: observation of agent %v has "+
				"length %v > %v", i, len(o), size)
		}
		padded[i] = make([]float64, size)
		copy(padded[i], o)
	}
	return padded, nil
}

// AllAlive returns an info where all n agents are alive
func AllAlive(n int) timestep.Info {
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	return timestep.Info{AliveMask: mask}
}

// AnyDone returns the logical OR of per-agent termination flags
func AnyDone(done []bool) bool {
	for _, d := range done {
		if d {
			return true
		}
	}
	return false
}
