package checkpointer

import "github.com/pkg/errors"

// nStep implements checkpointing every N steps
type nStep struct {
	interval int
	object   Saveable // Object to save

	// filename is called once per checkpoint; see Enumerate
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints after every n
// training steps, that is on steps n-1, 2n-1, ...
func NewNStep(n int, object Saveable, filename func() string) (Checkpointer,
	error) {
	if n < 1 {
		return nil, errors.Errorf("newNStep: interval must be positive, "+
			"have %v", n)
	}
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint checkpoints the Checkpointer's tracked object by calling
// its Save() method
func (n *nStep) Checkpoint(step int) error {
	if (step+1)%n.interval == 0 {
		if err := n.object.Save(n.filename()); err != nil {
			return errors.Wrapf(err, "checkpoint: step %v", step)
		}
	}
	return nil
}
