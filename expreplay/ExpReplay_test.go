package expreplay

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/gomarl/timestep"
)

// episode returns a finished episode of length steps whose rewards
// all equal id
func episode(id float64, steps int) *timestep.Episode {
	e := timestep.NewEpisode(timestep.Info{}, steps)
	for i := 0; i < steps; i++ {
		t := timestep.Transition{
			State:     [][]float64{{id}, {id}},
			Action:    [][]float64{{0}, {0}},
			Reward:    []float64{id, id},
			NextState: [][]float64{{id}, {id}},
			LastStep:  i == steps-1,
		}
		if err := e.Add(t, timestep.Info{}); err != nil {
			panic(err)
		}
	}
	return e
}

func id(e *timestep.Episode) float64 {
	return e.Transitions[0].Reward[0]
}

func TestFIFOEviction(t *testing.T) {
	b, err := New(5, 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 7; i++ {
		b.Add(episode(float64(i), 1))
	}

	if b.Len() != 5 {
		t.Errorf("len: \n\twant(%v) \n\thave(%v)", 5, b.Len())
	}
	if b.Transitions() != 5 {
		t.Errorf("transitions: \n\twant(%v) \n\thave(%v)", 5,
			b.Transitions())
	}
	for i := 0; i < b.Len(); i++ {
		want := float64(i + 3)
		if have := id(b.At(i)); have != want {
			t.Errorf("episode %v: \n\twant(%v) \n\thave(%v)", i, want, have)
		}
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	const capacity = 3
	b, err := New(capacity, 1)
	if err != nil {
		t.Fatal(err)
	}

	total := 0
	for i := 1; i <= 10; i++ {
		b.Add(episode(float64(i), i))
		total += i
		if b.Len() > capacity {
			t.Fatalf("len: \n\twant(<= %v) \n\thave(%v)", capacity, b.Len())
		}
	}

	// Episodes 8, 9 and 10 remain
	if want := 8 + 9 + 10; b.Transitions() != want {
		t.Errorf("transitions: \n\twant(%v) \n\thave(%v)", want,
			b.Transitions())
	}
}

func TestSampleEpisodesWhole(t *testing.T) {
	b, err := New(10, 42)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 4; i++ {
		b.Add(episode(float64(i), 3))
	}

	for _, target := range []int{1, 3, 4, 10, 25} {
		episodes, err := b.SampleEpisodes(target)
		if err != nil {
			t.Fatal(err)
		}

		count := 0
		for _, e := range episodes {
			if e.Len() != 3 || !e.Finished() {
				t.Errorf("episode split: \n\twant(%v) \n\thave(%v)", 3,
					e.Len())
			}
			count += e.Len()
		}
		if count < target {
			t.Errorf("sampled transitions: \n\twant(>= %v) \n\thave(%v)",
				target, count)
		}
		if count-3 >= target {
			t.Errorf("oversampled: target %v but have %v transitions",
				target, count)
		}
	}
}

func TestSampleDeterministic(t *testing.T) {
	fill := func() *Buffer {
		b, err := New(10, 7)
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i <= 10; i++ {
			b.Add(episode(float64(i), 1))
		}
		return b
	}

	first, err := fill().SampleEpisodes(20)
	if err != nil {
		t.Fatal(err)
	}
	second, err := fill().SampleEpisodes(20)
	if err != nil {
		t.Fatal(err)
	}

	for i := range first {
		if id(first[i]) != id(second[i]) {
			t.Fatalf("sample %v: \n\twant(%v) \n\thave(%v)", i,
				id(first[i]), id(second[i]))
		}
	}
}

func TestEmptyBuffer(t *testing.T) {
	b, err := New(2, 1)
	if err != nil {
		t.Fatal(err)
	}

	_, err = b.SampleEpisodes(1)
	if !IsEmptyBuffer(err) {
		t.Errorf("empty sample: \n\twant(%v) \n\thave(%v)", errEmptyBuffer,
			err)
	}
}

func TestOnlyEmptyEpisodes(t *testing.T) {
	b, err := New(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	b.Add(episode(1, 0))

	_, err = b.SampleEpisodes(1)
	if !IsEmptyBuffer(err) {
		t.Errorf("empty episodes: \n\twant(%v) \n\thave(%v)",
			errEmptyBuffer, err)
	}
	var replayErr *ExpReplayError
	if !errors.As(err, &replayErr) || replayErr.Op != "sampleEpisodes" {
		t.Errorf("error op: \n\twant(%v) \n\thave(%v)", "sampleEpisodes",
			err)
	}
}

func TestInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := New(capacity, 1)
		if !IsInvalidCapacity(err) {
			t.Errorf("capacity %v: \n\twant(%v) \n\thave(%v)", capacity,
				errInvalidCapacity, err)
		}
	}
}
