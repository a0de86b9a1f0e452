package commnet

import (
	"fmt"

	"github.com/samuelfneumann/gomarl/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// valueGraph computes the value loss
//
//	Σ w ⊙ (V(s) - target)²
//
// and its gradient with respect to the value group only.
type valueGraph struct {
	net        *network.CommGraph
	targets    *G.Node
	weights    *G.Node
	learnables G.Nodes
	vm         G.VM

	lossVal G.Value
	predVal G.Value
}

func newValueGraph(arch network.Arch, batch int) (*valueGraph, error) {
	g := G.NewGraph()
	net, err := network.NewCommGraph(g, arch, batch)
	if err != nil {
		return nil, fmt.Errorf("newValueGraph: %v", err)
	}
	rows := net.Rows()

	v := &valueGraph{net: net}
	v.targets = G.NewVector(g, tensor.Float64, G.WithShape(rows),
		G.WithName("valueTargets"), G.WithInit(G.Zeroes()))
	v.weights = G.NewVector(g, tensor.Float64, G.WithShape(rows),
		G.WithName("valueWeights"), G.WithInit(G.Zeroes()))

	pred := G.Must(G.Reshape(net.Value(), tensor.Shape{rows}))
	sqErr := G.Must(G.Square(G.Must(G.Sub(pred, v.targets))))
	loss := G.Must(G.Sum(G.Must(G.HadamardProd(v.weights, sqErr))))
	G.Read(loss, &v.lossVal)
	G.Read(pred, &v.predVal)

	v.learnables = net.Learnables(network.ValueGroup)
	if _, err := G.Grad(loss, v.learnables...); err != nil {
		return nil, fmt.Errorf("newValueGraph: could not compute value "+
			"gradient: %v", err)
	}
	v.vm = G.NewTapeMachine(g, G.BindDualValues(v.learnables...))
	return v, nil
}

// actionGraph computes the action loss
//
//	-Σ w ⊙ log π(a|s) ⊙ A - β H
//
// and its gradient with respect to the action group only. The entropy
// bonus H applies to discrete actions only.
type actionGraph struct {
	net        *network.CommGraph
	actions    *G.Node
	advantages *G.Node
	weights    *G.Node
	entrCoef   *G.Node
	learnables G.Nodes
	vm         G.VM

	lossVal    G.Value
	logProbVal G.Value
	entropyVal G.Value
}

func newActionGraph(arch network.Arch, batch int) (*actionGraph, error) {
	g := G.NewGraph()
	net, err := network.NewCommGraph(g, arch, batch)
	if err != nil {
		return nil, fmt.Errorf("newActionGraph: %v", err)
	}
	rows := net.Rows()

	a := &actionGraph{net: net}
	a.actions = G.NewMatrix(g, tensor.Float64,
		G.WithShape(rows, arch.Actions), G.WithName("actions"),
		G.WithInit(G.Zeroes()))
	a.advantages = G.NewVector(g, tensor.Float64, G.WithShape(rows),
		G.WithName("advantages"), G.WithInit(G.Zeroes()))
	a.weights = G.NewVector(g, tensor.Float64, G.WithShape(rows),
		G.WithName("actionWeights"), G.WithInit(G.Zeroes()))
	a.entrCoef = G.NewScalar(g, tensor.Float64, G.WithName("entropyCoef"),
		G.WithValue(0.0))

	var logProb *G.Node
	if arch.Continuous {
		logProb = gaussianLogProb(a.actions, net.Mean(), net.LogStd())
	} else {
		logProb = G.Must(G.Sum(
			G.Must(G.HadamardProd(net.LogProbs(), a.actions)), 1))
	}

	weighted := G.Must(G.HadamardProd(a.weights, logProb))
	G.Read(G.Must(G.Sum(weighted)), &a.logProbVal)

	pg := G.Must(G.Sum(G.Must(G.HadamardProd(weighted, a.advantages))))
	loss := G.Must(G.Neg(pg))

	if !arch.Continuous {
		logProbs := net.LogProbs()
		probs := G.Must(G.Exp(logProbs))
		entropy := G.Must(G.Neg(G.Must(G.Sum(
			G.Must(G.HadamardProd(probs, logProbs)), 1))))
		entropy = G.Must(G.Sum(G.Must(G.HadamardProd(a.weights, entropy))))
		G.Read(entropy, &a.entropyVal)

		loss = G.Must(G.Sub(loss, G.Must(G.Mul(a.entrCoef, entropy))))
	}
	G.Read(loss, &a.lossVal)

	a.learnables = net.Learnables(network.ActionGroup)
	if _, err := G.Grad(loss, a.learnables...); err != nil {
		return nil, fmt.Errorf("newActionGraph: could not compute policy "+
			"gradient: %v", err)
	}
	a.vm = G.NewTapeMachine(g, G.BindDualValues(a.learnables...))
	return a, nil
}

// gaussianLogProb returns the per-row log density of actions under a
// diagonal gaussian, omitting the constant term
func gaussianLogProb(actions, mean, logStd *G.Node) *G.Node {
	z := G.Must(G.HadamardDiv(G.Must(G.Sub(actions, mean)),
		G.Must(G.Exp(logStd))))

	half := G.NewConstant(0.5)
	logProb := G.Must(G.Neg(G.Must(G.Mul(G.Must(G.Square(z)), half))))
	logProb = G.Must(G.Sub(logProb, logStd))

	return G.Must(G.Sum(logProb, 1))
}

// lossGraphs holds the graphs used to compute the losses of one batch
// size
type lossGraphs struct {
	next   *forward
	value  *valueGraph
	action *actionGraph
}

func newLossGraphs(arch network.Arch, batch int) (*lossGraphs, error) {
	next, err := newForward(arch, batch)
	if err != nil {
		return nil, err
	}
	value, err := newValueGraph(arch, batch)
	if err != nil {
		return nil, err
	}
	action, err := newActionGraph(arch, batch)
	if err != nil {
		return nil, err
	}
	return &lossGraphs{next: next, value: value, action: action}, nil
}

func (l *lossGraphs) close() {
	l.next.close()
	l.value.vm.Close()
	l.action.vm.Close()
}

func toModel(nodes G.Nodes) []G.ValueGrad {
	model := make([]G.ValueGrad, len(nodes))
	for i, node := range nodes {
		model[i] = node
	}
	return model
}
