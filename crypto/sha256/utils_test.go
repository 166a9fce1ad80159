package sha256

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Hash([]byte("a"), []byte("b")), Hash([]byte("a"), []byte("b")))
		assert.Len(t, Hash(), sha256.Size)
	})

	t.Run("splits do not collide", func(t *testing.T) {
		assert.NotEqual(t, Hash([]byte("ab"), []byte("c")), Hash([]byte("a"), []byte("bc")))
		assert.NotEqual(t, Hash([]byte("abc")), Hash([]byte("abc"), nil))
	})
}
