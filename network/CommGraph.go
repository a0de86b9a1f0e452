// Package network implements the communication network: a parameter
// store split into value and action groups, and the computational
// graph of masked iterative message passing between agents.
package network

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/gomarl/timestep"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// CommGraph is the computational graph of a communication network over
// a batch of steps. Every step contributes one row per agent, so all
// per-agent nodes have batch*agents rows, ordered by step then agent.
//
// Communication rounds operate on explicit shapes:
//
//	hidden      (batch*agents, hidden)
//	source mask (batch*agents, 1)
//	flattened   (batch, agents*hidden)
//	edges       (agents*hidden, agents*hidden) = (1 - I) ⊗ I
//	scale mask  (batch*agents, 1)
type CommGraph struct {
	arch  Arch
	batch int
	rows  int
	g     *G.ExprGraph

	obs         *G.Node
	source      *G.Node
	scale       *G.Node
	zeroMessage *G.Node
	edges       *G.Node
	ones        *G.Node

	names  []string
	groups map[string]Group
	params map[string]*G.Node

	hidden *G.Node
	value  *G.Node
	action *G.Node // Log-probabilities, or the mean if continuous
	logStd *G.Node // Continuous only

	valueVal  G.Value
	actionVal G.Value
	logStdVal G.Value
}

// NewCommGraph adds a communication network over batch steps to the
// graph g. Parameter nodes are bound to values with BindParams and
// inputs with SetInput before each run.
func NewCommGraph(g *G.ExprGraph, arch Arch, batch int) (*CommGraph, error) {
	if err := arch.validate(); err != nil {
		return nil, fmt.Errorf("newCommGraph: %v", err)
	}
	if batch < 1 {
		return nil, fmt.Errorf("newCommGraph: batch must be positive, "+
			"have %v", batch)
	}

	rows := batch * arch.Agents
	c := &CommGraph{
		arch:   arch,
		batch:  batch,
		rows:   rows,
		g:      g,
		groups: make(map[string]Group),
		params: make(map[string]*G.Node),
	}

	c.obs = G.NewMatrix(g, tensor.Float64, G.WithShape(rows, arch.Obs),
		G.WithName("obs"), G.WithInit(G.Zeroes()))
	c.source = G.NewMatrix(g, tensor.Float64, G.WithShape(rows, 1),
		G.WithName("source"), G.WithInit(G.Zeroes()))
	c.scale = G.NewMatrix(g, tensor.Float64, G.WithShape(rows, 1),
		G.WithName("scale"), G.WithInit(G.Zeroes()))
	c.zeroMessage = G.NewMatrix(g, tensor.Float64,
		G.WithShape(rows, arch.Hidden), G.WithName("zeroMessage"),
		G.WithInit(G.Zeroes()))
	c.edges = G.NewMatrix(g, tensor.Float64,
		G.WithShape(arch.Agents*arch.Hidden, arch.Agents*arch.Hidden),
		G.WithName("edges"), G.WithValue(edges(arch.Agents, arch.Hidden)))
	c.ones = G.NewMatrix(g, tensor.Float64, G.WithShape(rows, 1),
		G.WithName("ones"), G.WithInit(G.Ones()))

	for _, spec := range paramSpecs(arch) {
		c.names = append(c.names, spec.name)
		c.groups[spec.name] = spec.group
		c.params[spec.name] = G.NewMatrix(g, tensor.Float64,
			G.WithShape(spec.rows, spec.cols), G.WithName(spec.name),
			G.WithInit(G.Zeroes()))
	}

	if err := c.fwd(); err != nil {
		return nil, fmt.Errorf("newCommGraph: could not compute forward "+
			"pass: %v", err)
	}
	return c, nil
}

// edges returns the Kronecker product (1 - I_agents) ⊗ I_hidden, which
// sums the hidden states of all other agents when right-multiplying
// the flattened hidden states of a step.
func edges(agents, hidden int) *tensor.Dense {
	size := agents * hidden
	backing := make([]float64, size*size)
	for j := 0; j < agents; j++ {
		for i := 0; i < agents; i++ {
			if i == j {
				continue
			}
			for d := 0; d < hidden; d++ {
				backing[(j*hidden+d)*size+i*hidden+d] = 1.0
			}
		}
	}
	return tensor.New(tensor.WithShape(size, size),
		tensor.WithBacking(backing))
}

func (c *CommGraph) layer(weights, bias string, act activation) *fcLayer {
	return &fcLayer{
		weights: c.params[weights],
		bias:    c.params[bias],
		act:     act,
	}
}

// fwd adds the forward pass of the network to the graph
func (c *CommGraph) fwd() error {
	h, err := c.layer(EncoderWeights, EncoderBias, G.Tanh).fwd(c.obs)
	if err != nil {
		return fmt.Errorf("fwd: encoder: %v", err)
	}

	for r := 0; r < c.arch.CommIters; r++ {
		msg := c.zeroMessage
		if r > 0 {
			msg = c.message(h)
		}

		l := c.arch.commLayer(r)
		f, err := c.layer(FWeights(l), FBias(l), nil).fwd(h)
		if err != nil {
			return fmt.Errorf("fwd: round %v: %v", r, err)
		}
		m, err := c.layer(CWeights(l), CBias(l), nil).fwd(msg)
		if err != nil {
			return fmt.Errorf("fwd: round %v: %v", r, err)
		}

		if h, err = G.Tanh(G.Must(G.Add(f, m))); err != nil {
			return fmt.Errorf("fwd: round %v: %v", r, err)
		}
	}
	c.hidden = h

	c.value, err = c.layer(ValueWeights, ValueBias, nil).fwd(h)
	if err != nil {
		return fmt.Errorf("fwd: value head: %v", err)
	}

	out, err := c.layer(ActionWeights, ActionBias, nil).fwd(h)
	if err != nil {
		return fmt.Errorf("fwd: action head: %v", err)
	}
	if c.arch.Continuous {
		c.action = out
		c.logStd = G.Must(G.Mul(c.ones, c.params[ActionLogStd]))
		G.Read(c.logStd, &c.logStdVal)
	} else {
		c.action = LogSoftmax(out)
	}

	G.Read(c.value, &c.valueVal)
	G.Read(c.action, &c.actionVal)
	return nil
}

// message returns the message received by every agent in every step
func (c *CommGraph) message(h *G.Node) *G.Node {
	n, hid := c.arch.Agents, c.arch.Hidden

	src := G.Must(G.BroadcastHadamardProd(h, c.source, nil, []byte{1}))
	flat := G.Must(G.Reshape(src, tensor.Shape{c.batch, n * hid}))
	others := G.Must(G.Mul(flat, c.edges))
	others = G.Must(G.Reshape(others, tensor.Shape{c.rows, hid}))

	return G.Must(G.BroadcastHadamardProd(others, c.scale, nil, []byte{1}))
}

// LogSoftmax returns the row-wise log-softmax of a matrix of logits
func LogSoftmax(logits *G.Node) *G.Node {
	rows := logits.Shape()[0]
	lse := G.Must(G.Reshape(LogSumExp(logits, 1), tensor.Shape{rows, 1}))
	return G.Must(G.BroadcastSub(logits, lse, nil, []byte{1}))
}

// LogSumExp computes log(Σ exp(logits)) along an axis, shifting by the
// maximum for numerical stability
func LogSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))
	shape := logits.Shape().Clone()
	shape[along] = 1
	maxCol := G.Must(G.Reshape(max, shape))

	exponent := G.Must(G.BroadcastSub(logits, maxCol, nil, []byte{byte(along)}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	return G.Must(G.Add(max, G.Must(G.Log(sum))))
}

// SetInput sets the observations and liveness of every step. states[k]
// holds one observation of length Obs per agent.
func (c *CommGraph) SetInput(states [][][]float64,
	infos []timestep.Info) error {
	if len(states) != c.batch || len(infos) != c.batch {
		return fmt.Errorf("setInput: invalid batch \n\twant(%v) "+
			"\n\thave(%v states, %v infos)", c.batch, len(states), len(infos))
	}

	obs := make([]float64, 0, c.rows*c.arch.Obs)
	for k, state := range states {
		if len(state) != c.arch.Agents {
			return fmt.Errorf("setInput: step %v has %v agents, expected %v",
				k, len(state), c.arch.Agents)
		}
		for i, o := range state {
			if len(o) != c.arch.Obs {
				return fmt.Errorf("setInput: step %v agent %v observation "+
					"length %v, expected %v", k, i, len(o), c.arch.Obs)
			}
			obs = append(obs, o...)
		}
	}

	source, scale, err := maskColumns(infos, c.arch.Agents)
	if err != nil {
		return errors.Wrap(err, "setInput")
	}

	if err := G.Let(c.obs, tensor.New(tensor.WithShape(c.rows, c.arch.Obs),
		tensor.WithBacking(obs))); err != nil {
		return fmt.Errorf("setInput: %v", err)
	}
	if err := G.Let(c.source, tensor.New(tensor.WithShape(c.rows, 1),
		tensor.WithBacking(source))); err != nil {
		return fmt.Errorf("setInput: %v", err)
	}
	if err := G.Let(c.scale, tensor.New(tensor.WithShape(c.rows, 1),
		tensor.WithBacking(scale))); err != nil {
		return fmt.Errorf("setInput: %v", err)
	}
	return nil
}

// BindParams binds every parameter node to its canonical tensor in p
func (c *CommGraph) BindParams(p *Params) error {
	if p.Arch() != c.arch {
		return fmt.Errorf("bindParams: architectures differ \n\twant(%+v) "+
			"\n\thave(%+v)", c.arch, p.Arch())
	}
	for _, name := range c.names {
		if err := G.Let(c.params[name], p.Value(name)); err != nil {
			return fmt.Errorf("bindParams: %v: %v", name, err)
		}
	}
	return nil
}

// Commit copies the values of the parameter nodes in group g into p.
// Solvers may replace a node's value rather than update it in place.
func (c *CommGraph) Commit(p *Params, g Group) error {
	for _, name := range c.names {
		if c.groups[name] != g {
			continue
		}
		value, ok := c.params[name].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("commit: %v has no tensor value", name)
		}
		if value == p.Value(name) {
			continue
		}
		copy(p.Data(name), value.Data().([]float64))
	}
	return nil
}

// Learnables returns the parameter nodes of group g
func (c *CommGraph) Learnables(g Group) G.Nodes {
	nodes := make(G.Nodes, 0, len(c.names))
	for _, name := range c.names {
		if c.groups[name] == g {
			nodes = append(nodes, c.params[name])
		}
	}
	return nodes
}

// Param returns the node of a named parameter
func (c *CommGraph) Param(name string) *G.Node {
	return c.params[name]
}

// Graph returns the computational graph
func (c *CommGraph) Graph() *G.ExprGraph {
	return c.g
}

// Batch returns the number of steps in the graph
func (c *CommGraph) Batch() int {
	return c.batch
}

// Rows returns the number of per-agent rows, batch*agents
func (c *CommGraph) Rows() int {
	return c.rows
}

// Arch returns the architecture of the network
func (c *CommGraph) Arch() Arch {
	return c.arch
}

// Hidden returns the node of the final hidden states
func (c *CommGraph) Hidden() *G.Node {
	return c.hidden
}

// Value returns the node of per-agent value estimates, (rows, 1)
func (c *CommGraph) Value() *G.Node {
	return c.value
}

// LogProbs returns the node of per-agent action log-probabilities,
// (rows, actions). It is nil for continuous actions.
func (c *CommGraph) LogProbs() *G.Node {
	if c.arch.Continuous {
		return nil
	}
	return c.action
}

// Mean returns the node of per-agent action means. It is nil for
// discrete actions.
func (c *CommGraph) Mean() *G.Node {
	if !c.arch.Continuous {
		return nil
	}
	return c.action
}

// LogStd returns the node of the action log standard deviation
// repeated for every row. It is nil for discrete actions.
func (c *CommGraph) LogStd() *G.Node {
	return c.logStd
}

// Output returns the outputs of the last run of the graph
func (c *CommGraph) Output() (ActionOutput, error) {
	if c.valueVal == nil || c.actionVal == nil {
		return ActionOutput{}, fmt.Errorf("output: graph has not been run")
	}

	var logStd []float64
	if c.arch.Continuous {
		logStd = c.logStdVal.Data().([]float64)
	}
	return newActionOutput(c.rows, c.arch.Actions, c.arch.Continuous,
		c.actionVal.Data().([]float64), logStd,
		c.valueVal.Data().([]float64)), nil
}
