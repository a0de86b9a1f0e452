package checkpointer

import "testing"

type recorder struct {
	saved []string
}

func (r *recorder) Save(path string) error {
	r.saved = append(r.saved, path)
	return nil
}

func TestEnumerate(t *testing.T) {
	next := Enumerate("runs/model.bin")
	for _, want := range []string{"runs/model-1.bin", "runs/model-2.bin",
		"runs/model-3.bin"} {
		if have := next(); have != want {
			t.Errorf("filename \n\twant(%v) \n\thave(%v)", want, have)
		}
	}
}

func TestNStep(t *testing.T) {
	r := &recorder{}
	c, err := NewNStep(3, r, Enumerate("ckpt.gob"))
	if err != nil {
		t.Fatal(err)
	}

	for step := 0; step < 9; step++ {
		if err := c.Checkpoint(step); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"ckpt-1.gob", "ckpt-2.gob", "ckpt-3.gob"}
	if len(r.saved) != len(want) {
		t.Fatalf("checkpoints \n\twant(%v) \n\thave(%v)", want, r.saved)
	}
	for i := range want {
		if r.saved[i] != want[i] {
			t.Errorf("checkpoint %v \n\twant(%v) \n\thave(%v)", i, want[i],
				r.saved[i])
		}
	}
}

func TestNStepInvalid(t *testing.T) {
	if _, err := NewNStep(0, &recorder{}, nil); err == nil {
		t.Errorf("interval 0 \n\twant(error) \n\thave(%v)", err)
	}
}
