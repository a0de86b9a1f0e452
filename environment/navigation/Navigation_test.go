package navigation

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func newNavigation(t *testing.T, c Config) *Navigation {
	t.Helper()
	n, err := New(c, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := n.Reset(); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestObservationShape(t *testing.T) {
	n := newNavigation(t, Config{Agents: 3})
	obs, info, err := n.Reset()
	if err != nil {
		t.Fatal(err)
	}

	if len(obs) != 3 {
		t.Fatalf("observations \n\twant(%v) \n\thave(%v)", 3, len(obs))
	}
	for i, o := range obs {
		if len(o) != 14 || len(o) != n.ObservationSpec().Shape {
			t.Errorf("observation %v length \n\twant(%v) \n\thave(%v)", i, 14,
				len(o))
		}
	}
	if info.NumAlive(3) != 3 {
		t.Errorf("alive \n\twant(%v) \n\thave(%v)", 3, info.NumAlive(3))
	}
}

func TestResetWithinBounds(t *testing.T) {
	n := newNavigation(t, Config{Agents: 4})
	for _, p := range append(n.Positions(), n.Landmarks()...) {
		if math.Abs(p.X) > Bound || math.Abs(p.Y) > Bound {
			t.Errorf("start position \n\twant(within %v) \n\thave(%v)", Bound,
				p)
		}
	}
}

func TestDiscreteMovement(t *testing.T) {
	n := newNavigation(t, Config{Agents: 2})
	agents := []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 1}}
	if err := n.SetPositions(agents, agents); err != nil {
		t.Fatal(err)
	}

	_, _, _, _, err := n.Step([][]float64{{float64(Right)},
		{float64(Down)}})
	if err != nil {
		t.Fatal(err)
	}

	pos := n.Positions()
	if pos[0].X <= 0 || pos[0].Y != 0 {
		t.Errorf("agent moving right \n\twant(%v) \n\thave(%v)", "x > 0", pos[0])
	}
	if pos[1].Y >= 1 || pos[1].X != 1 {
		t.Errorf("agent moving down \n\twant(%v) \n\thave(%v)", "y < 1", pos[1])
	}

	_, _, _, _, err = n.Step([][]float64{{float64(NumDiscreteActions)},
		{0}})
	if err == nil {
		t.Errorf("illegal action \n\twant(error) \n\thave(%v)", err)
	}
}

func TestContinuousMovement(t *testing.T) {
	n := newNavigation(t, Config{Agents: 2, Continuous: true})
	agents := []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 1}}
	if err := n.SetPositions(agents, agents); err != nil {
		t.Fatal(err)
	}

	if _, _, _, _, err := n.Step([][]float64{{-1, 0}, {0, 0}}); err != nil {
		t.Fatal(err)
	}
	pos := n.Positions()
	if pos[0].X >= 0 {
		t.Errorf("agent pushed left \n\twant(%v) \n\thave(%v)", "x < 0",
			pos[0])
	}
	if pos[1] != agents[1] {
		t.Errorf("agent without force \n\twant(%v) \n\thave(%v)", agents[1],
			pos[1])
	}
}

func TestRewardAndTermination(t *testing.T) {
	n := newNavigation(t, Config{Agents: 2, Terminate: true})
	agents := []r2.Vec{{X: -1, Y: 0}, {X: 1, Y: 0}}
	landmarks := []r2.Vec{{X: -1, Y: 0}, {X: 1, Y: 0.5}}
	if err := n.SetPositions(agents, landmarks); err != nil {
		t.Fatal(err)
	}

	_, rewards, done, _, err := n.Step([][]float64{{0}, {0}})
	if err != nil {
		t.Fatal(err)
	}
	if rewards[0] != rewards[1] || math.Abs(rewards[0]+0.5) > 1e-12 {
		t.Errorf("rewards \n\twant(%v) \n\thave(%v)", []float64{-0.5, -0.5},
			rewards)
	}
	if done[0] {
		t.Errorf("done with uncovered landmark \n\twant(%v) \n\thave(%v)",
			false, done[0])
	}

	if err := n.SetPositions(agents, agents); err != nil {
		t.Fatal(err)
	}
	_, rewards, done, _, err = n.Step([][]float64{{0}, {0}})
	if err != nil {
		t.Fatal(err)
	}
	if rewards[0] != 0 || !done[0] || !done[1] {
		t.Errorf("covered landmarks \n\twant(%v) \n\thave(%v, %v)",
			"zero reward and done", rewards, done)
	}
}

func TestCollisionPenalty(t *testing.T) {
	n := newNavigation(t, Config{Agents: 2})
	agents := []r2.Vec{{X: 0, Y: 0}, {X: 0.1, Y: 0}}
	if err := n.SetPositions(agents, agents); err != nil {
		t.Fatal(err)
	}

	_, rewards, _, _, err := n.Step([][]float64{{0}, {0}})
	if err != nil {
		t.Fatal(err)
	}
	if rewards[0] != -CollisionPenalty {
		t.Errorf("colliding agents \n\twant(%v) \n\thave(%v)",
			-CollisionPenalty, rewards[0])
	}
}

func TestRender(t *testing.T) {
	n := newNavigation(t, Config{Agents: 3})
	filename := filepath.Join(t.TempDir(), "frame.png")
	if err := n.Render(filename); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(filename); err != nil || info.Size() == 0 {
		t.Errorf("render \n\twant(%v) \n\thave(%v)", "non-empty png", err)
	}
}
