package network

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"github.com/samuelfneumann/gomarl/config"
	"github.com/samuelfneumann/gomarl/initwfn"
	"golang.org/x/exp/rand"
	"gorgonia.org/tensor"
)

// Group names one of the two disjoint parameter groups of a
// communication network. Each group is updated by its own optimizer.
type Group string

const (
	// ValueGroup holds the value head
	ValueGroup Group = "value"

	// ActionGroup holds the encoder, the communication transforms and
	// the action head
	ActionGroup Group = "action"
)

// Arch describes the shapes of a communication network
type Arch struct {
	Agents     int
	Obs        int
	Hidden     int
	Actions    int
	CommIters  int
	Shared     bool // Share communication transforms across rounds
	Continuous bool
}

// ArchFromConfig returns the architecture described by a configuration
func ArchFromConfig(c config.Config) Arch {
	return Arch{
		Agents:     c.AgentNum,
		Obs:        c.ObsSize,
		Hidden:     c.HidSize,
		Actions:    c.ActionDim,
		CommIters:  c.CommIters,
		Shared:     c.SharedCommWeights,
		Continuous: c.Continuous,
	}
}

// CommLayers returns the number of distinct communication transforms
func (a Arch) CommLayers() int {
	if a.Shared {
		return 1
	}
	return a.CommIters
}

// commLayer returns the transform used at communication round r
func (a Arch) commLayer(r int) int {
	if a.Shared {
		return 0
	}
	return r
}

func (a Arch) validate() error {
	if a.Agents < 2 || a.Obs < 1 || a.Hidden < 1 || a.Actions < 1 ||
		a.CommIters < 1 {
		return fmt.Errorf("invalid architecture %+v", a)
	}
	return nil
}

// Parameter names
const (
	EncoderWeights = "encoder/weights"
	EncoderBias    = "encoder/bias"
	ValueWeights   = "value/weights"
	ValueBias      = "value/bias"
	ActionWeights  = "action/weights"
	ActionBias     = "action/bias"
	ActionLogStd   = "action/logstd"
)

// FWeights returns the name of the hidden state transform weights of
// communication layer l. FBias, CWeights and CBias name the remaining
// parameters of the layer.
func FWeights(l int) string { return fmt.Sprintf("comm%d/f/weights", l) }
func FBias(l int) string    { return fmt.Sprintf("comm%d/f/bias", l) }
func CWeights(l int) string { return fmt.Sprintf("comm%d/c/weights", l) }
func CBias(l int) string    { return fmt.Sprintf("comm%d/c/bias", l) }

// paramSpec describes a single parameter tensor
type paramSpec struct {
	name       string
	group      Group
	rows, cols int
	weights    bool // Initialized from the weight initializer, else zero
}

func paramSpecs(a Arch) []paramSpec {
	specs := []paramSpec{
		{EncoderWeights, ActionGroup, a.Obs, a.Hidden, true},
		{EncoderBias, ActionGroup, 1, a.Hidden, false},
	}
	for l := 0; l < a.CommLayers(); l++ {
		specs = append(specs,
			paramSpec{FWeights(l), ActionGroup, a.Hidden, a.Hidden, true},
			paramSpec{FBias(l), ActionGroup, 1, a.Hidden, false},
			paramSpec{CWeights(l), ActionGroup, a.Hidden, a.Hidden, true},
			paramSpec{CBias(l), ActionGroup, 1, a.Hidden, false},
		)
	}
	specs = append(specs,
		paramSpec{ActionWeights, ActionGroup, a.Hidden, a.Actions, true},
		paramSpec{ActionBias, ActionGroup, 1, a.Actions, false},
	)
	if a.Continuous {
		specs = append(specs,
			paramSpec{ActionLogStd, ActionGroup, 1, a.Actions, false})
	}
	return append(specs,
		paramSpec{ValueWeights, ValueGroup, a.Hidden, 1, true},
		paramSpec{ValueBias, ValueGroup, 1, 1, false},
	)
}

// Params stores the canonical values of every parameter of a
// communication network. Computational graphs bind their parameter
// nodes to these tensors before each run.
type Params struct {
	arch   Arch
	names  []string
	groups map[string]Group
	values map[string]*tensor.Dense
}

// NewParams returns a new set of parameters for the architecture.
// Weights are drawn from init using src; biases and the log standard
// deviation start at zero.
func NewParams(arch Arch, init *initwfn.InitWFn,
	src rand.Source) (*Params, error) {
	if err := arch.validate(); err != nil {
		return nil, fmt.Errorf("newParams: %v", err)
	}

	p := newEmptyParams(arch)
	for _, spec := range paramSpecs(arch) {
		var backing []float64
		if spec.weights {
			backing = init.Values(src, spec.rows, spec.cols)
		} else {
			backing = make([]float64, spec.rows*spec.cols)
		}
		p.values[spec.name] = tensor.New(
			tensor.WithShape(spec.rows, spec.cols),
			tensor.WithBacking(backing),
		)
	}
	return p, nil
}

func newEmptyParams(arch Arch) *Params {
	specs := paramSpecs(arch)
	p := &Params{
		arch:   arch,
		names:  make([]string, len(specs)),
		groups: make(map[string]Group, len(specs)),
		values: make(map[string]*tensor.Dense, len(specs)),
	}
	for i, spec := range specs {
		p.names[i] = spec.name
		p.groups[spec.name] = spec.group
	}
	return p
}

// Arch returns the architecture the parameters describe
func (p *Params) Arch() Arch {
	return p.arch
}

// Names returns the names of all parameters in a fixed order
func (p *Params) Names() []string {
	return p.names
}

// GroupNames returns the names of the parameters in group g
func (p *Params) GroupNames(g Group) []string {
	names := make([]string, 0, len(p.names))
	for _, name := range p.names {
		if p.groups[name] == g {
			names = append(names, name)
		}
	}
	return names
}

// Group returns the group of a parameter
func (p *Params) Group(name string) Group {
	return p.groups[name]
}

// Value returns the canonical tensor of a parameter
func (p *Params) Value(name string) *tensor.Dense {
	return p.values[name]
}

// Data returns the backing data of a parameter
func (p *Params) Data(name string) []float64 {
	return p.values[name].Data().([]float64)
}

// Clone returns a deep copy of the parameters
func (p *Params) Clone() *Params {
	clone := newEmptyParams(p.arch)
	for name, value := range p.values {
		clone.values[name] = value.Clone().(*tensor.Dense)
	}
	return clone
}

// Set sets the parameters to be equal to those of source
func (p *Params) Set(source *Params) error {
	return p.Polyak(source, 1.0)
}

// Polyak sets the parameters to a polyak average between their
// current values and those of source: p ← (1-tau) p + tau source.
func (p *Params) Polyak(source *Params, tau float64) error {
	if p.arch != source.arch {
		return fmt.Errorf("polyak: architectures differ \n\twant(%+v) "+
			"\n\thave(%+v)", p.arch, source.arch)
	}
	for _, name := range p.names {
		dst, src := p.Data(name), source.Data(name)
		if tau == 1.0 {
			copy(dst, src)
			continue
		}
		for i := range dst {
			dst[i] = (1-tau)*dst[i] + tau*src[i]
		}
	}
	return nil
}

// Equal returns whether all parameters equal those of other
func (p *Params) Equal(other *Params) bool {
	if p.arch != other.arch {
		return false
	}
	for _, name := range p.names {
		a, b := p.Data(name), other.Data(name)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// IsFinite returns whether no parameter is NaN or infinite
func (p *Params) IsFinite() bool {
	for _, name := range p.names {
		for _, v := range p.Data(name) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// GobEncode implements the gob.GobEncoder interface
func (p *Params) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(p.arch); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode architecture: %v",
			err)
	}
	for _, name := range p.names {
		if err := enc.Encode(p.Data(name)); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode %v: %v",
				name, err)
		}
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (p *Params) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var arch Arch
	if err := dec.Decode(&arch); err != nil {
		return fmt.Errorf("gobdecode: could not decode architecture: %v", err)
	}
	decoded := newEmptyParams(arch)

	for _, spec := range paramSpecs(arch) {
		var backing []float64
		if err := dec.Decode(&backing); err != nil {
			return fmt.Errorf("gobdecode: could not decode %v: %v",
				spec.name, err)
		}
		if len(backing) != spec.rows*spec.cols {
			return fmt.Errorf("gobdecode: %v has %v values, expected %v",
				spec.name, len(backing), spec.rows*spec.cols)
		}
		decoded.values[spec.name] = tensor.New(
			tensor.WithShape(spec.rows, spec.cols),
			tensor.WithBacking(backing),
		)
	}

	*p = *decoded
	return nil
}
