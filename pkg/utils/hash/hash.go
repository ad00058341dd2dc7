package hash

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// HashString returns a short, stable, filesystem-safe digest of s.
func HashString(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}
