//go:build !windows

package fs

import (
	"os"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic replaces path in one rename so readers never observe a
// partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
