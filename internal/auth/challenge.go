// Package auth provides authentication primitives for certM3: single-use
// email challenge tokens, the short-lived issuance token minted after a
// successful challenge, operator session tokens, and password hashing.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// challengeBytes is the entropy of a challenge token. Challenges are bearer
// secrets: presenting the right one proves control of the claimed mailbox.
const challengeBytes = 32

// NewChallenge generates a cryptographically random challenge token.
func NewChallenge() (string, error) {
	buf := make([]byte, challengeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ChallengeEqual compares a presented challenge against the stored one in
// constant time.
func ChallengeEqual(presented, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
