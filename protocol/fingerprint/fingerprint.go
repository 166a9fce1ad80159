package fingerprint

import (
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strings"

	"secure-courier/crypto/key_ed25519"

	"github.com/google/uuid"
)

const (
	iterations = 5200
	groups     = 6
)

// Digits computes the 30 digit safety number of a user's public signing key.
func Digits(pubKey key_ed25519.PublicKey, userID uuid.UUID) (*[30]int, error) {
	digest := make([]byte, 0, len(pubKey)+len(userID))
	digest = append(digest, pubKey...)
	digest = append(digest, userID[:]...)

	hash := sha512.New()
	for i := 0; i < iterations; i++ {
		if _, err := hash.Write(digest); err != nil {
			return nil, err
		}
		digest = hash.Sum(nil)
		hash.Reset()
	}

	var finalResult [30]int
	for i := 0; i < groups; i++ {
		chunk := digest[i*5 : (i+1)*5]
		num := binary.BigEndian.Uint64(append([]byte{0, 0, 0}, chunk...)) % 100000
		for j := 4; j >= 0; j-- {
			finalResult[i*5+j] = int(num % 10)
			num /= 10
		}
	}

	return &finalResult, nil
}

// Fingerprint renders the safety number as six space separated groups.
func Fingerprint(pubKey key_ed25519.PublicKey, userID uuid.UUID) (string, error) {
	digits, err := Digits(pubKey, userID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && i%5 == 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d", d)
	}
	return sb.String(), nil
}
