package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeChecksum computes SHA-256 checksum of data.
func ComputeChecksum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ValidateChecksum compares the checksum of data against the hex-encoded
// checksum stored in a header. Returns ErrChecksumMismatch if they don't match.
func ValidateChecksum(data []byte, stored string) error {
	want, err := hex.DecodeString(stored)
	if err != nil || len(want) != ChecksumSize {
		return fmt.Errorf("%w: stored checksum %q is not a SHA-256 digest", ErrChecksumMismatch, stored)
	}
	computed := ComputeChecksum(data)
	if string(computed[:]) != string(want) {
		return ErrChecksumMismatch
	}
	return nil
}
