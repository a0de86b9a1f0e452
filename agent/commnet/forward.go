package commnet

import (
	"fmt"

	"github.com/samuelfneumann/gomarl/network"
	"github.com/samuelfneumann/gomarl/timestep"
	G "gorgonia.org/gorgonia"
)

// forward is a communication graph with a machine that only runs the
// forward pass
type forward struct {
	net *network.CommGraph
	vm  G.VM
}

func newForward(arch network.Arch, batch int) (*forward, error) {
	g := G.NewGraph()
	net, err := network.NewCommGraph(g, arch, batch)
	if err != nil {
		return nil, fmt.Errorf("newForward: %v", err)
	}
	return &forward{net: net, vm: G.NewTapeMachine(g)}, nil
}

// run returns the outputs of the network with parameters p
func (f *forward) run(p *network.Params, states [][][]float64,
	infos []timestep.Info) (network.ActionOutput, error) {
	if err := f.net.BindParams(p); err != nil {
		return network.ActionOutput{}, err
	}
	if err := f.net.SetInput(states, infos); err != nil {
		return network.ActionOutput{}, err
	}

	defer f.vm.Reset()
	if err := f.vm.RunAll(); err != nil {
		return network.ActionOutput{}, fmt.Errorf("run: %v", err)
	}
	return f.net.Output()
}

func (f *forward) close() error {
	return f.vm.Close()
}
