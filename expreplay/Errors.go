package expreplay

import "github.com/pkg/errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

var errEmptyBuffer = errors.New("buffer empty")

var errInvalidCapacity = errors.New("capacity must be positive")

// IsEmptyBuffer returns whether or not an error reports that a
// replay buffer is empty.
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, errEmptyBuffer)
}

// IsInvalidCapacity returns whether or not an error reports that a
// replay buffer was constructed without room for any episode.
func IsInvalidCapacity(err error) bool {
	return errors.Is(err, errInvalidCapacity)
}
