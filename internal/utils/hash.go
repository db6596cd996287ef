package utils

import (
	"fmt"
	"hash/fnv"
)

func HashStringToUint64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// ShortHash returns an 8-hex-digit digest of s. Used for deterministic trip IDs
// so that rerunning an allocation on identical input reproduces the same IDs.
func ShortHash(s string) string {
	return fmt.Sprintf("%08x", uint32(HashStringToUint64(s)))
}
