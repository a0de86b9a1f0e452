package wrappers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samuelfneumann/gomarl/environment"
	"github.com/samuelfneumann/gomarl/timestep"
)

// Recorder wraps an environment and renders a frame of some Renderer
// after every reset and step. Frames are written to a directory as
// frame-<episode>-<step>.png.
//
// The Renderer is usually the innermost environment, since wrappers do
// not forward Render.
type Recorder struct {
	environment.Environment
	renderer environment.Renderer
	dir      string

	episode int
	step    int
}

// NewRecorder returns a new Recorder writing frames of renderer to dir
func NewRecorder(env environment.Environment, renderer environment.Renderer,
	dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("newRecorder: %v", err)
	}
	return &Recorder{Environment: env, renderer: renderer, dir: dir,
		episode: -1}, nil
}

// Reset resets the wrapped environment and renders the first frame of
// a new episode
func (r *Recorder) Reset() ([][]float64, timestep.Info, error) {
	obs, info, err := r.Environment.Reset()
	if err != nil {
		return nil, timestep.Info{}, err
	}
	r.episode++
	r.step = 0
	return obs, info, r.render()
}

// Step steps the wrapped environment and renders the next frame
func (r *Recorder) Step(actions [][]float64) ([][]float64, []float64,
	[]bool, timestep.Info, error) {
	obs, reward, done, info, err := r.Environment.Step(actions)
	if err != nil {
		return nil, nil, nil, timestep.Info{}, err
	}
	r.step++
	return obs, reward, done, info, r.render()
}

// Frames returns the number of frames rendered in the current episode
func (r *Recorder) Frames() int {
	return r.step + 1
}

func (r *Recorder) render() error {
	name := fmt.Sprintf("frame-%v-%03d.png", r.episode, r.step)
	return r.renderer.Render(filepath.Join(r.dir, name))
}
