package network

import (
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func TestCommMaskSelfExclusion(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const agents, hidden = 5, 4

	for trial := 0; trial < 50; trial++ {
		alive := make([]bool, agents)
		alive[0], alive[1] = true, true
		for i := 2; i < agents; i++ {
			alive[i] = rng.Float64() < 0.5
		}
		rng.Shuffle(agents, func(i, j int) {
			alive[i], alive[j] = alive[j], alive[i]
		})

		mask, err := NewCommMask(alive)
		if err != nil {
			t.Fatalf("newCommMask(%v): %v", alive, err)
		}

		w := mask.Edges()
		for i := 0; i < agents; i++ {
			if w.At(i, i) != 0 {
				t.Errorf("mask %v: self edge %v = %v", alive, i, w.At(i, i))
			}
		}

		// Changing an agent's own hidden state must not change its
		// message
		h := mat.NewDense(agents, hidden, nil)
		for i := 0; i < agents; i++ {
			for d := 0; d < hidden; d++ {
				h.Set(i, d, rng.NormFloat64())
			}
		}
		before := mask.Messages(h)
		for i := 0; i < agents; i++ {
			perturbed := mat.DenseCopyOf(h)
			for d := 0; d < hidden; d++ {
				perturbed.Set(i, d, perturbed.At(i, d)+100)
			}
			after := mask.Messages(perturbed)
			if !mat.Equal(before.RowView(i), after.RowView(i)) {
				t.Errorf("mask %v: message of agent %v depends on its own "+
					"hidden state", alive, i)
			}
		}
	}
}

func TestCommMaskAverage(t *testing.T) {
	mask, err := NewCommMask([]bool{true, false, true, true})
	if err != nil {
		t.Fatal(err)
	}
	if mask.Alive() != 3 {
		t.Errorf("alive \n\twant(3) \n\thave(%v)", mask.Alive())
	}

	h := mat.NewDense(4, 1, []float64{1, 10, 2, 4})
	msg := mask.Messages(h)

	// Live agents average the two other live agents; the dead agent
	// receives nothing and sends nothing.
	want := []float64{(2 + 4) / 2.0, 0, (1 + 4) / 2.0, (1 + 2) / 2.0}
	for i, w := range want {
		if msg.At(i, 0) != w {
			t.Errorf("message %v \n\twant(%v) \n\thave(%v)", i, w, msg.At(i, 0))
		}
	}
}

func TestCommMaskTooFewAlive(t *testing.T) {
	for _, alive := range [][]bool{
		{true, false, false},
		{false, false, false},
		{true},
	} {
		_, err := NewCommMask(alive)
		if !errors.Is(err, ErrTooFewAlive) {
			t.Errorf("mask %v: \n\twant(%v) \n\thave(%v)", alive,
				ErrTooFewAlive, err)
		}
	}
}
