// Package checkpointer implements periodic persistence of models
// during training
package checkpointer

// Saveable is an object that can persist itself to a file
type Saveable interface {
	Save(path string) error
}

// Checkpointer checkpoints/saves objects based on the training step
type Checkpointer interface {
	Checkpoint(step int) error
}
