package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestIncrement(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressBar(&buf, 10, 4)
	for i := 0; i < 6; i++ {
		p.Increment()
	}
	if p.Progress() != 1.0 {
		t.Errorf("progress \n\twant(1) \n\thave(%v)", p.Progress())
	}

	p.Describe("epoch %v", 3)
	p.Display()
	p.Close()

	out := buf.String()
	if !strings.Contains(out, "100.00%") {
		t.Errorf("output missing percentage: %q", out)
	}
	if !strings.Contains(out, "epoch 3") {
		t.Errorf("output missing description: %q", out)
	}
}
