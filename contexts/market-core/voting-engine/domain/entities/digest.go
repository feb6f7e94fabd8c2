package entities

import (
	"crypto/rand"
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

const (
	DigestLength = 32
	SaltLength   = 32
	NonceLength  = 32
)

// ComputeDigest binds the option choice, the voter's secret salt, and the
// per-commitment nonce into a Keccak-256 digest. The nonce is part of the
// preimage so a digest cannot be precomputed and reused across events or
// voters.
func ComputeDigest(optionIndex int, salt, nonce []byte) []byte {
	var option [2]byte
	binary.BigEndian.PutUint16(option[:], uint16(optionIndex))

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(option[:])
	hasher.Write(salt)
	hasher.Write(nonce)
	return hasher.Sum(nil)
}

// NewNonce draws a fresh random nonce for a commitment.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}
