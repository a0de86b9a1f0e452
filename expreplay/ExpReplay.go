// Package expreplay implements an experience replay buffer holding a
// sliding window of the most recent episodes
package expreplay

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/gomarl/timestep"
	"golang.org/x/exp/rand"
)

// Buffer holds up to a fixed number of whole episodes. When full,
// adding an episode evicts the oldest one.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	episodes    []*timestep.Episode
	start       int // Index of the oldest episode
	size        int
	transitions int

	sampler Selector
}

// New returns a new Buffer holding at most capacity episodes, sampled
// uniformly at random with a generator seeded by seed
func New(capacity int, seed uint64) (*Buffer, error) {
	return NewWithSelector(capacity, NewUniformSelector(seed))
}

// NewWithSelector returns a new Buffer holding at most capacity
// episodes, sampled by sampler
func NewWithSelector(capacity int, sampler Selector) (*Buffer, error) {
	if capacity < 1 {
		return nil, &ExpReplayError{
			Op:  "new",
			Err: errors.Wrapf(errInvalidCapacity, "have %v", capacity),
		}
	}
	return &Buffer{
		episodes: make([]*timestep.Episode, capacity),
		sampler:  sampler,
	}, nil
}

// Add appends an episode, evicting the oldest episode if the buffer is
// full
func (b *Buffer) Add(e *timestep.Episode) {
	capacity := len(b.episodes)

	if b.size < capacity {
		b.episodes[(b.start+b.size)%capacity] = e
		b.size++
	} else {
		b.transitions -= b.episodes[b.start].Len()
		b.episodes[b.start] = e
		b.start = (b.start + 1) % capacity
	}
	b.transitions += e.Len()
}

// SampleEpisodes returns whole episodes whose transitions total at
// least target. Episodes are never split, so the total may exceed
// target.
func (b *Buffer) SampleEpisodes(target int) ([]*timestep.Episode, error) {
	if b.size == 0 {
		return nil, &ExpReplayError{Op: "sampleEpisodes", Err: errEmptyBuffer}
	}
	if b.transitions == 0 {
		return nil, &ExpReplayError{
			Op:  "sampleEpisodes",
			Err: errors.Wrap(errEmptyBuffer, "only empty episodes stored"),
		}
	}

	indices := b.sampler.choose(b, target)
	episodes := make([]*timestep.Episode, len(indices))
	for i, index := range indices {
		episodes[i] = b.At(index)
	}
	return episodes, nil
}

// At returns the episode at position i in insertion order, where 0 is
// the oldest stored episode
func (b *Buffer) At(i int) *timestep.Episode {
	if i < 0 || i >= b.size {
		panic(fmt.Sprintf("at: index %v out of range [0, %v)", i, b.size))
	}
	return b.episodes[(b.start+i)%len(b.episodes)]
}

// Len returns the number of stored episodes
func (b *Buffer) Len() int {
	return b.size
}

// Transitions returns the total number of stored transitions
func (b *Buffer) Transitions() int {
	return b.transitions
}

// Capacity returns the maximum number of stored episodes
func (b *Buffer) Capacity() int {
	return len(b.episodes)
}

// Selector implements functionality for choosing which stored episodes
// are sampled from a Buffer
type Selector interface {
	// choose returns insertion-order indices of episodes whose
	// transitions total at least target
	choose(b *Buffer, target int) []int
}

// uniformSelector selects episodes uniformly at random with
// replacement
type uniformSelector struct {
	rng *rand.Rand
}

// NewUniformSelector returns a new Selector which selects episodes
// uniformly at random with replacement
func NewUniformSelector(seed uint64) Selector {
	return &uniformSelector{rng: rand.New(rand.NewSource(seed))}
}

// choose implements the Selector interface
func (u *uniformSelector) choose(b *Buffer, target int) []int {
	var selected []int
	for count := 0; count < target || len(selected) == 0; {
		index := u.rng.Intn(b.Len())
		selected = append(selected, index)
		count += b.At(index).Len()
	}
	return selected
}
