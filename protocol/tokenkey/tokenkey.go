// Package tokenkey derives the per (group, user) token key.
//
// Derivation v1: HKDF-SHA256, extract then expand, empty salt, info
// configs.TokenKeyInfo, input keying material groupKey || userPublicSigningKey,
// 32 bytes of output. Any party holding the group key and the user's public
// signing key can recompute it.
package tokenkey

import (
	"secure-courier/configs"
	"secure-courier/crypto/aes256"
	"secure-courier/crypto/hkdf"
	"secure-courier/crypto/key_ed25519"
)

func Derive(groupKey aes256.Key, userPublicSigningKey key_ed25519.PublicKey) ([]byte, error) {
	ikm := make([]byte, 0, len(groupKey)+len(userPublicSigningKey))
	ikm = append(ikm, groupKey[:]...)
	ikm = append(ikm, userPublicSigningKey...)
	return hkdf.New32BytesKey(ikm, nil, configs.TokenKeyInfo)
}
