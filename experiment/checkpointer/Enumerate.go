package checkpointer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Enumerate returns a filename generator for the checkpoints of a
// single model. The k-th call returns path with -k inserted before its
// extension, so model.bin becomes model-1.bin, model-2.bin, ...
func Enumerate(path string) func() string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	k := 0
	return func() string {
		k++
		return fmt.Sprintf("%s-%d%s", stem, k, ext)
	}
}
