package sha256

import (
	"crypto/sha256"
	"encoding/binary"
)

// Hash digests the concatenation of parts, each prefixed with its length so
// that distinct splits never collide.
func Hash(parts ...[]byte) []byte {
	hash := sha256.New()
	var prefix [4]byte
	for _, p := range parts {
		binary.BigEndian.PutUint32(prefix[:], uint32(len(p)))
		hash.Write(prefix[:])
		hash.Write(p)
	}
	return hash.Sum(nil)
}
