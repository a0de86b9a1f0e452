package wrappers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/gomarl/environment/navigation"
)

func TestRecorderWritesFrames(t *testing.T) {
	nav, err := navigation.New(navigation.Config{Agents: 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "frames")
	r, err := NewRecorder(nav, nav, dir)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := r.Reset(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, _, _, _, err := r.Step([][]float64{{0}, {0}}); err != nil {
			t.Fatal(err)
		}
	}

	if r.Frames() != 3 {
		t.Errorf("frames \n\twant(%v) \n\thave(%v)", 3, r.Frames())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("files \n\twant(%v) \n\thave(%v)", 3, len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "frame-0-002.png")); err != nil {
		t.Errorf("last frame \n\twant(%v) \n\thave(%v)", "file", err)
	}
}
