package network

import (
	G "gorgonia.org/gorgonia"
)

// activation is an elementwise nonlinearity. A nil activation is the
// identity.
type activation func(*G.Node) (*G.Node, error)

// fcLayer implements a fully connected layer xW + b whose weights and
// bias are parameter nodes of a communication graph
type fcLayer struct {
	weights *G.Node // (in, out)
	bias    *G.Node // (1, out)
	act     activation
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, err
	}

	// Broadcast the bias to all rows
	x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
	if err != nil {
		return nil, err
	}

	if f.act == nil {
		return x, nil
	}
	return f.act(x)
}
