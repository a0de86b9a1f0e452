package solver

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

type valueGrad struct {
	value, grad *tensor.Dense
}

func (v valueGrad) Value() G.Value          { return v.value }
func (v valueGrad) Grad() (G.Value, error) { return v.grad, nil }

func newValueGrad(grad ...float64) valueGrad {
	return valueGrad{
		value: tensor.New(tensor.WithShape(len(grad)),
			tensor.WithBacking(make([]float64, len(grad)))),
		grad: tensor.New(tensor.WithShape(len(grad)),
			tensor.WithBacking(grad)),
	}
}

func TestClip(t *testing.T) {
	model := []G.ValueGrad{
		newValueGrad(-3, 0.5, 2),
		newValueGrad(1.5, -0.25),
	}
	if err := Clip(model, 1.0); err != nil {
		t.Fatalf("clip: %v", err)
	}

	want := [][]float64{{-1, 0.5, 1}, {1, -0.25}}
	for i, vg := range model {
		grad, _ := vg.Grad()
		data := grad.Data().([]float64)
		for j := range want[i] {
			if data[j] != want[i][j] {
				t.Errorf("grad[%v][%v] \n\twant(%v) \n\thave(%v)", i, j,
					want[i][j], data[j])
			}
		}
	}
}

func TestGradNorm(t *testing.T) {
	model := []G.ValueGrad{newValueGrad(3, 0), newValueGrad(4)}
	norm, err := GradNorm(model)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(norm-5) > 1e-12 {
		t.Errorf("norm \n\twant(5) \n\thave(%v)", norm)
	}

	norm, _ = GradNorm(nil)
	if norm != 0 {
		t.Errorf("empty norm \n\twant(0) \n\thave(%v)", norm)
	}
}

func TestFromConfig(t *testing.T) {
	for _, name := range []string{"adam", "rmsprop", "sgd"} {
		s, err := FromConfig(name, 1e-3)
		if err != nil {
			t.Errorf("fromConfig(%v): %v", name, err)
			continue
		}
		if s.Solver == nil {
			t.Errorf("fromConfig(%v): nil solver", name)
		}
		if string(s.Type) != name || s.Config.LearningRate() != 1e-3 {
			t.Errorf("fromConfig(%v) \n\twant(%v) \n\thave(%v)", name,
				name, s)
		}
	}
	if _, err := FromConfig("lbfgs", 1e-3); err == nil {
		t.Error("unknown optimizer should fail")
	}
	if _, err := FromConfig("adam", 0); err == nil {
		t.Error("zero learning rate should fail")
	}
}

func TestStepMovesAgainstGradient(t *testing.T) {
	s, err := FromConfig("sgd", 0.5)
	if err != nil {
		t.Fatal(err)
	}

	g := G.NewGraph()
	x := G.NewVector(g, tensor.Float64, G.WithShape(2), G.WithName("x"),
		G.WithValue(tensor.New(tensor.WithBacking([]float64{1, 2}))))
	cost := G.Must(G.Sum(G.Must(G.Square(x))))
	if _, err := G.Grad(cost, x); err != nil {
		t.Fatal(err)
	}

	vm := G.NewTapeMachine(g, G.BindDualValues(x))
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}
	if err := s.Step([]G.ValueGrad{x}); err != nil {
		t.Fatal(err)
	}

	// d/dx x² = 2x, so x ← x - 0.5 * 2x = 0
	for i, v := range x.Value().Data().([]float64) {
		if math.Abs(v) > 1e-12 {
			t.Errorf("x[%v] \n\twant(0) \n\thave(%v)", i, v)
		}
	}
}
