package release

import (
	"crypto"
	_ "crypto/md5" // Registers the hash behind FingerprintHash.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FingerprintHash is the hash function behind manifest fingerprints.
//
//nolint:gosec // Fingerprints are content identifiers, not authentication.
const FingerprintHash crypto.Hash = crypto.MD5

// errFingerprintLength is returned when a fingerprint has the wrong size.
var errFingerprintLength = errors.New("fingerprint has unexpected length")

// FileFingerprint computes the manifest fingerprint of the file at path.
func FileFingerprint(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	hash := FingerprintHash.New()
	if _, err = io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Fingerprint computes the manifest fingerprint of in-memory content.
func Fingerprint(content []byte) string {
	hash := FingerprintHash.New()
	// Hash writes never fail.
	_, _ = hash.Write(content)

	return hex.EncodeToString(hash.Sum(nil))
}

// DecodeFingerprint converts a hex fingerprint into raw checksum bytes.
func DecodeFingerprint(fingerprint string) ([]byte, error) {
	sum, err := hex.DecodeString(fingerprint)
	if err != nil {
		return nil, fmt.Errorf("decode fingerprint: %w", err)
	}

	if len(sum) != FingerprintHash.Size() {
		return nil, fmt.Errorf("%w: %d bytes", errFingerprintLength, len(sum))
	}

	return sum, nil
}
