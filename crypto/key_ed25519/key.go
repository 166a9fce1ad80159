package key_ed25519

import (
	"bytes"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"secure-courier/crypto"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"
)

type (
	// PrivateKey is a 32-byte scalar on edwards25519
	PrivateKey []byte
	// PublicKey is a 32-byte compressed edwards25519 point
	PublicKey []byte
	// Pair is a signing key pair. Renewal produces a new Pair, never mutates one.
	Pair struct {
		Priv PrivateKey
		Pub  PublicKey
	}
)

const pemBlockType = "PUBLIC KEY"

var (
	Suite = suites.MustFind("Ed25519") // Use the edwards25519-curve
)

func New() (PrivateKey, error) {
	privK := Suite.Scalar().Pick(Suite.RandomStream())
	return privK.MarshalBinary()
}

// NewPair generates a fresh key pair.
func NewPair() (Pair, error) {
	priv, err := New()
	if err != nil {
		return Pair{}, err
	}
	pub, err := priv.Public()
	if err != nil {
		return Pair{}, err
	}
	return Pair{Priv: priv, Pub: pub}, nil
}

func (privB PrivateKey) Public() (PublicKey, error) {
	privK, err := privB.ToScalar()
	if err != nil {
		return nil, err
	}
	pubK := Suite.Point().Mul(privK, nil)
	return pubK.MarshalBinary()
}

func (privB PrivateKey) ToScalar() (kyber.Scalar, error) {
	privK := Suite.Scalar()
	if err := privK.UnmarshalBinary(privB); err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrInvalidKey, err)
	}
	return privK, nil
}

func (pubB PublicKey) ToPoint() (kyber.Point, error) {
	pubK := Suite.Point()
	if err := pubK.UnmarshalBinary(pubB); err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrInvalidKey, err)
	}
	return pubK, nil
}

func (pubB PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(pubB, other)
}

// ExportPublicKeyString encodes the public key as a PKIX PEM block. The
// compressed point is the RFC 8032 encoding, so the output is a standard
// Ed25519 public key PEM.
func ExportPublicKeyString(pub PublicKey) (string, error) {
	if _, err := pub.ToPoint(); err != nil {
		return "", err
	}
	der, err := x509.MarshalPKIXPublicKey(ed25519.PublicKey(pub))
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemBlockType, Bytes: der})), nil
}

// ParsePublicKeyString reverses ExportPublicKeyString.
func ParsePublicKeyString(s string) (PublicKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil || block.Type != pemBlockType {
		return nil, crypto.ErrInvalidKey
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrInvalidKey, err)
	}
	edPub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, crypto.ErrInvalidKey
	}
	pub := PublicKey(edPub)
	if _, err := pub.ToPoint(); err != nil {
		return nil, err
	}
	return pub, nil
}
