package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

type HashAlgo string

const (
	HashAlgoSHA256 = "sha256"
	HashAlgoBLAKE3 = "blake3"
)

// DigestBLAKE3 returns the blake3 hash of data as a hex string. It is the
// digest recorded for fetched bodies; callers that need an algorithm choice
// use HashBytes instead.
func DigestBLAKE3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashBytes returns the hash of bytes as a hex string using the specified algorithm.
// Supported algorithms: "sha256" and "blake3".
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	switch algo {
	case HashAlgoSHA256:
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:]), nil
	case HashAlgoBLAKE3:
		return DigestBLAKE3(data), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}
