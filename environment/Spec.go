package environment

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"
)

// SpecType determines what kind of specification a Spec is
type SpecType int

const (
	Action SpecType = iota
	Observation
)

// Cardinality determines the cardinality of a number (discrete or
// continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// per-agent shape, and bounds of an action or observation.
//
// For discrete actions, Shape is the number of actions available and
// each agent takes a single index. For continuous actions, Shape is the
// dimension of the action vector and Bounds gives the range of each
// dimension.
type Spec struct {
	Shape  int
	Type   SpecType
	Bounds []r1.Interval
	Cardinality
}

// NewSpec constructs a new environment specification
func NewSpec(shape int, t SpecType, bounds []r1.Interval,
	cardinality Cardinality) Spec {
	if bounds != nil && len(bounds) != shape && cardinality == Continuous {
		panic(fmt.Sprintf("shape %v must match bounds length %v",
			shape, len(bounds)))
	}
	for _, b := range bounds {
		if b.Min > b.Max {
			panic(fmt.Sprintf("lower bound %v exceeds upper bound %v",
				b.Min, b.Max))
		}
	}
	return Spec{shape, t, bounds, cardinality}
}
