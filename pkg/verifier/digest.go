package verifier

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// NewDigest returns the running digest used for mod integrity (MD5).
func NewDigest() hash.Hash {
	return md5.New()
}

// Digest folds r into a lowercase hex digest.
func Digest(r io.Reader) (string, error) {
	h := NewDigest()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestFile hashes the file at path and returns its digest and size.
func DigestFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := NewDigest()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Verify reports whether the file at path matches expected. A missing file
// is reported as false without error.
func Verify(path, expected string) (bool, error) {
	digest, _, err := DigestFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return Equal(digest, expected), nil
}

// Equal compares two hex digests ignoring case and surrounding space.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
