package network

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/gomarl/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// reference computes the forward pass of a single step with gonum
func reference(p *Params, obs [][]float64, alive []bool) (*mat.Dense,
	*mat.VecDense) {
	arch := p.Arch()
	param := func(name string) *mat.Dense {
		shape := p.Value(name).Shape()
		return mat.NewDense(shape[0], shape[1], p.Data(name))
	}
	linear := func(x *mat.Dense, w, b string) *mat.Dense {
		var out mat.Dense
		out.Mul(x, param(w))
		bias := param(b)
		out.Apply(func(_, j int, v float64) float64 {
			return v + bias.At(0, j)
		}, &out)
		return &out
	}
	tanh := func(x *mat.Dense) *mat.Dense {
		x.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, x)
		return x
	}

	x := mat.NewDense(arch.Agents, arch.Obs, nil)
	for i, o := range obs {
		x.SetRow(i, o)
	}
	h := tanh(linear(x, EncoderWeights, EncoderBias))

	mask, _ := NewCommMask(alive)
	for r := 0; r < arch.CommIters; r++ {
		msg := mat.NewDense(arch.Agents, arch.Hidden, nil)
		if r > 0 {
			msg = mask.Messages(h)
		}
		l := arch.commLayer(r)
		var sum mat.Dense
		sum.Add(linear(h, FWeights(l), FBias(l)), linear(msg, CWeights(l), CBias(l)))
		h = tanh(&sum)
	}

	value := linear(h, ValueWeights, ValueBias)
	out := linear(h, ActionWeights, ActionBias)
	if !arch.Continuous {
		for i := 0; i < arch.Agents; i++ {
			row := out.RawRowView(i)
			lse := floats.LogSumExp(row)
			for j := range row {
				row[j] -= lse
			}
		}
	}
	return out, mat.NewVecDense(arch.Agents, mat.Col(nil, 0, value))
}

func randomObs(rng *rand.Rand, agents, size int) [][]float64 {
	obs := make([][]float64, agents)
	for i := range obs {
		obs[i] = make([]float64, size)
		for j := range obs[i] {
			obs[i][j] = rng.NormFloat64()
		}
	}
	return obs
}

func runGraph(t *testing.T, p *Params, states [][][]float64,
	infos []timestep.Info) ActionOutput {
	t.Helper()
	g := G.NewGraph()
	c, err := NewCommGraph(g, p.Arch(), len(states))
	if err != nil {
		t.Fatalf("newCommGraph: %v", err)
	}
	if err := c.BindParams(p); err != nil {
		t.Fatal(err)
	}
	if err := c.SetInput(states, infos); err != nil {
		t.Fatal(err)
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, err := c.Output()
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestCommGraphMatchesReference(t *testing.T) {
	const tol = 1e-9
	rng := rand.New(rand.NewSource(11))
	masks := [][]bool{
		{true, true, true},
		{true, false, true},
		{false, true, true},
	}

	for _, shared := range []bool{true, false} {
		for _, continuous := range []bool{false, true} {
			arch := testArch(continuous, shared)
			p := newTestParams(t, arch, 5)
			if continuous {
				p.Data(ActionLogStd)[1] = -0.5
			}

			states := make([][][]float64, len(masks))
			infos := make([]timestep.Info, len(masks))
			for k := range masks {
				states[k] = randomObs(rng, arch.Agents, arch.Obs)
				infos[k] = timestep.Info{AliveMask: masks[k]}
			}
			out := runGraph(t, p, states, infos)

			action := out.LogProbs
			if continuous {
				action = out.Mean
			}
			for k := range masks {
				wantAction, wantValue := reference(p, states[k], masks[k])
				for i := 0; i < arch.Agents; i++ {
					row := k*arch.Agents + i
					if math.Abs(out.Value[row]-wantValue.AtVec(i)) > tol {
						t.Errorf("shared=%v continuous=%v value[%v] "+
							"\n\twant(%v) \n\thave(%v)", shared, continuous,
							row, wantValue.AtVec(i), out.Value[row])
					}
					for j := 0; j < arch.Actions; j++ {
						if math.Abs(action.At(row, j)-wantAction.At(i, j)) > tol {
							t.Errorf("shared=%v continuous=%v action[%v][%v] "+
								"\n\twant(%v) \n\thave(%v)", shared, continuous,
								row, j, wantAction.At(i, j), action.At(row, j))
						}
					}
				}
			}

			if continuous {
				if out.LogStd.At(4, 1) != -0.5 {
					t.Errorf("log std \n\twant(-0.5) \n\thave(%v)",
						out.LogStd.At(4, 1))
				}
				if math.Abs(out.Std.At(0, 1)-math.Exp(-0.5)) > tol {
					t.Errorf("std \n\twant(%v) \n\thave(%v)", math.Exp(-0.5),
						out.Std.At(0, 1))
				}
			} else {
				for row := 0; row < out.Agents(); row++ {
					if sum := floats.Sum(out.Probs(row)); math.Abs(sum-1) > tol {
						t.Errorf("probabilities of row %v sum to %v", row, sum)
					}
				}
			}
		}
	}
}

func TestCommGraphDeadAgentIsolated(t *testing.T) {
	arch := testArch(false, true)
	p := newTestParams(t, arch, 3)
	rng := rand.New(rand.NewSource(2))
	info := timestep.Info{AliveMask: []bool{true, true, false}}

	obs := randomObs(rng, arch.Agents, arch.Obs)
	before := runGraph(t, p, [][][]float64{obs}, []timestep.Info{info})

	// A dead agent's observation must not reach live agents
	obs[2] = []float64{100, -100, 100, -100}
	after := runGraph(t, p, [][][]float64{obs}, []timestep.Info{info})

	for i := 0; i < 2; i++ {
		if !mat.Equal(before.LogProbs.RowView(i), after.LogProbs.RowView(i)) {
			t.Errorf("agent %v depends on the dead agent", i)
		}
	}
}

func TestCommGraphTooFewAlive(t *testing.T) {
	arch := testArch(false, true)
	c, err := NewCommGraph(G.NewGraph(), arch, 1)
	if err != nil {
		t.Fatal(err)
	}

	obs := randomObs(rand.New(rand.NewSource(1)), arch.Agents, arch.Obs)
	info := timestep.Info{AliveMask: []bool{false, true, false}}
	err = c.SetInput([][][]float64{obs}, []timestep.Info{info})
	if !errors.Is(err, ErrTooFewAlive) {
		t.Errorf("setInput \n\twant(%v) \n\thave(%v)", ErrTooFewAlive, err)
	}

	obs[0] = obs[0][:2]
	if err := c.SetInput([][][]float64{obs}, []timestep.Info{{}}); err == nil {
		t.Error("short observations should fail")
	}
}
