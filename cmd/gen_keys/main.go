package main

import (
	"fmt"
	"log"

	"secure-courier/crypto/key_ed25519"
	"secure-courier/protocol/fingerprint"

	"github.com/google/uuid"
)

func main() {
	// Generate a new signing key pair
	pair, err := key_ed25519.NewPair()
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	exported, err := key_ed25519.ExportPublicKeyString(pair.Pub)
	if err != nil {
		log.Fatalf("Failed to export public key: %v", err)
	}

	userID := uuid.New()
	safetyNumber, err := fingerprint.Fingerprint(pair.Pub, userID)
	if err != nil {
		log.Fatalf("Failed to compute fingerprint: %v", err)
	}

	// Print in .env format
	fmt.Printf("USER_ID=%s\n", userID)
	fmt.Printf("SIGNING_KEY=%x\n", []byte(pair.Priv))
	fmt.Printf("DEVICE_ID=%s\n", uuid.New())
	fmt.Printf("\n# Safety number: %s\n", safetyNumber)
	fmt.Print(exported)
}
