package hmac

import (
	"crypto/hmac"
	"hash"
)

// Hash returns the HMAC of the data using the key.
func Hash(hash func() hash.Hash, key, data []byte) []byte {
	mac := hmac.New(hash, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// Equal compares the HMAC of data against an expected tag in constant time.
func Equal(hash func() hash.Hash, key, data, expected []byte) bool {
	return hmac.Equal(Hash(hash, key, data), expected)
}
