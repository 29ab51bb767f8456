package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/Gojibodev/keklauncher/internal/models"
)

// Fingerprint is a sha256 over the RFC 8785 canonical form of the manifest
// content. Timestamps are excluded so touching a manifest keeps its identity.
func Fingerprint(m models.Modpack) (string, error) {
	m.CreatedAt = nil
	m.UpdatedAt = nil
	normalize(&m)
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonicalize manifest: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
