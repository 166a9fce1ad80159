package prekeys

import (
	"sync"

	"secure-courier/configs"
	"secure-courier/crypto/key_ed25519"
	"secure-courier/protocol/handshake"
)

// MaterialStore keeps renewed handshake material on the device.
type MaterialStore interface {
	SaveMaterial(material *handshake.Material) error
}

type retiredIdentity struct {
	pub  key_ed25519.PublicKey
	priv key_ed25519.PrivateKey
}

// MemoryStore keeps the latest material in memory. Older materials are
// dropped on renewal, all but their identity keys, so envelopes sealed to a
// recent identity can still be opened. Only the newest retired keys are kept.
type MemoryStore struct {
	mutex   sync.RWMutex
	latest  *handshake.Material
	retired []retiredIdentity
	limit   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{limit: configs.RetiredIdentityKeys}
}

func (s *MemoryStore) SaveMaterial(material *handshake.Material) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.latest != nil {
		s.retired = append(s.retired, retiredIdentity{pub: s.latest.Bundle.IdentityKey, priv: s.latest.IdentityKey})
		if over := len(s.retired) - s.limit; over > 0 {
			s.retired = append([]retiredIdentity(nil), s.retired[over:]...)
		}
	}
	s.latest = material
	return nil
}

// Latest returns the most recently saved material, or nil.
func (s *MemoryStore) Latest() *handshake.Material {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.latest
}

func (s *MemoryStore) IdentityKey(identityPub key_ed25519.PublicKey) (key_ed25519.PrivateKey, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.latest != nil {
		if priv, ok := s.latest.PrivateKeyFor(identityPub); ok {
			return priv, true
		}
	}
	for i := len(s.retired) - 1; i >= 0; i-- {
		if s.retired[i].pub.Equal(identityPub) {
			return s.retired[i].priv, true
		}
	}
	return nil, false
}
