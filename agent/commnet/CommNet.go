// Package commnet implements the communication network model: an
// actor-critic over a CommNet policy whose agents exchange averaged
// hidden states before acting.
package commnet

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/gomarl/agent"
	"github.com/samuelfneumann/gomarl/config"
	"github.com/samuelfneumann/gomarl/initwfn"
	"github.com/samuelfneumann/gomarl/network"
	"github.com/samuelfneumann/gomarl/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// maxCachedGraphs bounds the number of batch sizes with cached loss
// graphs. Batch sizes vary with episode lengths.
const maxCachedGraphs = 8

// CommNet implements agent.Model with a communication network. The
// online parameters are split into a value group and an action group;
// a separate set of target parameters provides bootstrapped value
// targets when enabled.
type CommNet struct {
	cfg  config.Config
	arch network.Arch

	params *network.Params
	target *network.Params // nil if target parameters are disabled

	policy *forward
	graphs map[int]*lossGraphs
	recent []int // Cached batch sizes, least recently used first
}

// New returns a new CommNet with parameters initialized from a zero
// mean gaussian with standard deviation cfg.InitStd
func New(cfg config.Config, seed uint64) (*CommNet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "new")
	}
	arch := network.ArchFromConfig(cfg)

	init, err := initwfn.NewGaussian(0, cfg.InitStd)
	if err != nil {
		return nil, errors.Wrap(err, "new")
	}
	params, err := network.NewParams(arch, init, rand.NewSource(seed))
	if err != nil {
		return nil, errors.Wrap(err, "new")
	}

	var target *network.Params
	if cfg.Target {
		target = params.Clone()
	}

	policy, err := newForward(arch, 1)
	if err != nil {
		return nil, errors.Wrap(err, "new")
	}

	return &CommNet{
		cfg:    cfg,
		arch:   arch,
		params: params,
		target: target,
		policy: policy,
		graphs: make(map[int]*lossGraphs),
	}, nil
}

// Load returns a CommNet whose online and target parameters are read
// from a file written by Save
func Load(cfg config.Config, path string) (*CommNet, error) {
	c, err := New(cfg, cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}
	defer file.Close()

	var params network.Params
	if err := gob.NewDecoder(file).Decode(&params); err != nil {
		return nil, errors.Wrapf(err, "load: could not decode %v", path)
	}
	if err := c.params.Set(&params); err != nil {
		return nil, errors.Wrap(err, "load")
	}
	if c.target != nil {
		if err := c.target.Set(&params); err != nil {
			return nil, errors.Wrap(err, "load")
		}
	}
	return c, nil
}

// Save gob-encodes the online parameters to a file
func (c *CommNet) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "save")
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.params); err != nil {
		return errors.Wrapf(err, "save: could not encode parameters to %v",
			path)
	}
	return nil
}

// Params returns the online parameters
func (c *CommNet) Params() *network.Params {
	return c.params
}

// Target returns the parameters used for bootstrapped value targets,
// which are the online parameters if target parameters are disabled
func (c *CommNet) Target() *network.Params {
	if c.target == nil {
		return c.params
	}
	return c.target
}

// Policy runs the network on the observations of a single step.
// Observations must already be padded to the observation size.
func (c *CommNet) Policy(state [][]float64,
	info timestep.Info) (network.ActionOutput, error) {
	out, err := c.policy.run(c.params, [][][]float64{state},
		[]timestep.Info{info})
	if err != nil {
		return network.ActionOutput{}, errors.Wrap(err, "policy")
	}
	return out, nil
}

// UpdateTarget synchronizes the target parameters with the online
// parameters: a full copy if the target rate is 0 or 1, otherwise a
// polyak average at the target rate. It does nothing if target
// parameters are disabled.
func (c *CommNet) UpdateTarget() error {
	if c.target == nil {
		return nil
	}

	tau := c.cfg.TargetLR
	if tau == 0 || tau == 1 {
		return c.target.Set(c.params)
	}
	return c.target.Polyak(c.params, tau)
}

// Close releases the machines of all cached graphs
func (c *CommNet) Close() error {
	for batch, graphs := range c.graphs {
		graphs.close()
		delete(c.graphs, batch)
	}
	c.recent = nil
	return c.policy.close()
}

// graphsFor returns the loss graphs of a batch size, building them if
// needed
func (c *CommNet) graphsFor(batch int) (*lossGraphs, error) {
	if graphs, ok := c.graphs[batch]; ok {
		c.touch(batch)
		return graphs, nil
	}
	if len(c.graphs) >= maxCachedGraphs {
		oldest := c.recent[0]
		c.graphs[oldest].close()
		delete(c.graphs, oldest)
		c.recent = c.recent[1:]
	}

	graphs, err := newLossGraphs(c.arch, batch)
	if err != nil {
		return nil, err
	}
	c.graphs[batch] = graphs
	c.recent = append(c.recent, batch)
	return graphs, nil
}

// touch marks the graphs of a cached batch size as most recently used
func (c *CommNet) touch(batch int) {
	for i, size := range c.recent {
		if size == batch {
			copy(c.recent[i:], c.recent[i+1:])
			c.recent[len(c.recent)-1] = batch
			return
		}
	}
}

// EntropyCoef returns the entropy coefficient at a training step
func (c *CommNet) EntropyCoef(step int) float64 {
	if c.arch.Continuous {
		return 0
	}
	return c.cfg.Entr + c.cfg.EntrInc*float64(step)
}

// Loss computes the value and action losses of a batch. Value targets
// are r + γ V'(s') (1 - done) with V' from the target parameters, and
// advantages are target - V(s). Rows of dead agents carry zero weight
// and the remaining rows are weighted equally.
//
// The gradients of both losses are held by the returned loss until it
// is closed.
func (c *CommNet) Loss(batch timestep.Batch, step int) (*agent.Loss, error) {
	size := batch.Len()
	if size == 0 {
		return nil, errors.New("loss: empty batch")
	}
	if err := batch.Validate(c.arch.Agents); err != nil {
		return nil, errors.Wrap(err, "loss")
	}

	graphs, err := c.graphsFor(size)
	if err != nil {
		return nil, errors.Wrap(err, "loss")
	}

	// Terminal next states are never bootstrapped, so their liveness is
	// irrelevant
	nextInfos := make([]timestep.Info, size)
	for k := range nextInfos {
		if !batch.Dones[k] {
			nextInfos[k] = batch.NextAlive[k]
		}
	}
	next, err := graphs.next.run(c.Target(), batch.NextStates, nextInfos)
	if err != nil {
		return nil, errors.Wrap(err, "loss: next state values")
	}

	n := c.arch.Agents
	rows := size * n
	targets := make([]float64, rows)
	mask := make([]float64, rows)
	for k := 0; k < size; k++ {
		continuation := 1.0
		if batch.Dones[k] {
			continuation = 0.0
		}
		for i := 0; i < n; i++ {
			row := k*n + i
			targets[row] = batch.Rewards[k][i] +
				c.cfg.Gamma*next.Value[row]*continuation
			if batch.Alive[k].Alive(i) {
				mask[row] = 1.0
			}
		}
	}
	weights := make([]float64, rows)
	floats.ScaleTo(weights, 1/floats.Sum(mask), mask)

	values, valueLoss, err := c.runValue(graphs.value, batch, targets,
		weights)
	if err != nil {
		return nil, err
	}

	advantages := make([]float64, rows)
	floats.SubTo(advantages, targets, values)
	if c.cfg.NormalizeAdvantages {
		mean, std := stat.MeanStdDev(advantages, mask)
		for i := range advantages {
			advantages[i] = (advantages[i] - mean) / (std + 1e-8)
		}
	}

	loss, err := c.runAction(graphs.action, batch, advantages, weights, step)
	if err != nil {
		graphs.value.vm.Reset()
		return nil, err
	}

	loss.Value = valueLoss
	loss.ValueModel = toModel(graphs.value.learnables)
	loss.CommitValue = func() error {
		return graphs.value.net.Commit(c.params, network.ValueGroup)
	}
	loss.Release = func() {
		graphs.value.vm.Reset()
		graphs.action.vm.Reset()
	}
	return loss, nil
}

// runValue runs the value graph, leaving its gradients in place. It
// returns the predicted values and the value loss.
func (c *CommNet) runValue(v *valueGraph, batch timestep.Batch, targets,
	weights []float64) ([]float64, float64, error) {
	if err := v.net.BindParams(c.params); err != nil {
		return nil, 0, errors.Wrap(err, "loss")
	}
	if err := v.net.SetInput(batch.States, batch.Alive); err != nil {
		return nil, 0, errors.Wrap(err, "loss")
	}
	if err := letVector(v.targets, targets); err != nil {
		return nil, 0, errors.Wrap(err, "loss")
	}
	if err := letVector(v.weights, weights); err != nil {
		return nil, 0, errors.Wrap(err, "loss")
	}

	if err := v.vm.RunAll(); err != nil {
		v.vm.Reset()
		return nil, 0, errors.Wrap(err, "loss: value")
	}

	lossVal := scalar(v.lossVal)
	if math.IsNaN(lossVal) || math.IsInf(lossVal, 0) {
		v.vm.Reset()
		return nil, 0, errors.Wrapf(agent.ErrNonFinite, "loss: value loss %v",
			lossVal)
	}
	values := append([]float64(nil), v.predVal.Data().([]float64)...)
	return values, lossVal, nil
}

// runAction runs the action graph, leaving its gradients in place
func (c *CommNet) runAction(a *actionGraph, batch timestep.Batch,
	advantages, weights []float64, step int) (*agent.Loss, error) {
	if err := a.net.BindParams(c.params); err != nil {
		return nil, errors.Wrap(err, "loss")
	}
	if err := a.net.SetInput(batch.States, batch.Alive); err != nil {
		return nil, errors.Wrap(err, "loss")
	}

	actions := make([]float64, 0, len(advantages)*c.arch.Actions)
	for k, stepActions := range batch.Actions {
		for i, action := range stepActions {
			if len(action) != c.arch.Actions {
				return nil, fmt.Errorf("loss: step %v agent %v has action "+
					"length %v, expected %v", k, i, len(action),
					c.arch.Actions)
			}
			actions = append(actions, action...)
		}
	}
	err := G.Let(a.actions, tensor.New(
		tensor.WithShape(len(advantages), c.arch.Actions),
		tensor.WithBacking(actions),
	))
	if err != nil {
		return nil, errors.Wrap(err, "loss")
	}
	if err := letVector(a.advantages, advantages); err != nil {
		return nil, errors.Wrap(err, "loss")
	}
	if err := letVector(a.weights, weights); err != nil {
		return nil, errors.Wrap(err, "loss")
	}
	if err := G.Let(a.entrCoef, G.NewF64(c.EntropyCoef(step))); err != nil {
		return nil, errors.Wrap(err, "loss")
	}

	if err := a.vm.RunAll(); err != nil {
		a.vm.Reset()
		return nil, errors.Wrap(err, "loss: action")
	}

	lossVal := scalar(a.lossVal)
	if math.IsNaN(lossVal) || math.IsInf(lossVal, 0) {
		a.vm.Reset()
		return nil, errors.Wrapf(agent.ErrNonFinite,
			"loss: action loss %v", lossVal)
	}

	var entropy float64
	if c.arch.Continuous {
		entropy = c.gaussianEntropy()
	} else {
		entropy = scalar(a.entropyVal)
	}

	return &agent.Loss{
		Action:      lossVal,
		Entropy:     entropy,
		LogProb:     scalar(a.logProbVal),
		ActionModel: toModel(a.learnables),
		CommitAction: func() error {
			return a.net.Commit(c.params, network.ActionGroup)
		},
	}, nil
}

// gaussianEntropy returns the entropy of the state-independent
// gaussian action distribution of a single agent
func (c *CommNet) gaussianEntropy() float64 {
	logStd := c.params.Data(network.ActionLogStd)
	return floats.Sum(logStd) +
		0.5*float64(len(logStd))*(1+math.Log(2*math.Pi))
}

func letVector(node *G.Node, data []float64) error {
	return G.Let(node, tensor.New(tensor.WithShape(len(data)),
		tensor.WithBacking(data)))
}

func scalar(v G.Value) float64 {
	if v == nil {
		return math.NaN()
	}
	switch data := v.Data().(type) {
	case float64:
		return data
	case []float64:
		return data[0]
	}
	return math.NaN()
}
