package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
	"github.com/Gojibodev/keklauncher/internal/fsx"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
)

const maxRemoteManifest = 16 << 20

// LoadFile reads a manifest from disk, JSON or binary.
func LoadFile(path string) (models.Modpack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Modpack{}, apperrors.Kind(apperrors.ErrManifestNotFound, apperrors.CategoryNotFound, "%s", path)
		}
		return models.Modpack{}, apperrors.Wrap(fmt.Errorf("read manifest: %w", err), apperrors.CategoryIOFailure, "io_failure", "", false)
	}
	m, err := Decode(data)
	if err != nil {
		return models.Modpack{}, apperrors.Wrap(fmt.Errorf("%s: %w", path, err), apperrors.CategoryInvalidInput, "invalid_manifest", "fix the manifest document", false)
	}
	return m, nil
}

// SaveJSON writes the manifest as JSON atomically.
func SaveJSON(path string, m models.Modpack) error {
	data, err := EncodeJSON(m)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(path, data, 0o644)
}

// SaveBinary writes the compressed protobuf form atomically.
func SaveBinary(path string, m models.Modpack) error {
	data, err := EncodeBinary(m)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(path, data, 0o644)
}

// Fetch downloads and decodes a remote manifest.
func Fetch(ctx context.Context, client *http.Client, url string) (models.Modpack, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Modpack{}, apperrors.Kind(apperrors.ErrTransferFailed, apperrors.CategoryInvalidInput, "invalid url %q: %v", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Modpack{}, apperrors.Kind(apperrors.ErrTransferFailed, apperrors.CategoryNetworkTransient, "%v", err)
	}
	defer resp.Body.Close()
	logging.GlobalLogger.Info("Fetched manifest with status: " + resp.Status)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.Modpack{}, apperrors.Kind(apperrors.ErrManifestNotFound, apperrors.CategoryNotFound, "%s", url)
	case resp.StatusCode != http.StatusOK:
		return models.Modpack{}, apperrors.Wrap(&apperrors.StatusError{URL: url, StatusCode: resp.StatusCode}, apperrors.CategoryNetworkPermanent, "transfer_failed", "", false)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteManifest))
	if err != nil {
		return models.Modpack{}, apperrors.Kind(apperrors.ErrTransferFailed, apperrors.CategoryNetworkTransient, "read manifest: %v", err)
	}
	m, err := Decode(data)
	if err != nil {
		return models.Modpack{}, apperrors.Wrap(err, apperrors.CategoryInvalidInput, "invalid_manifest", "", false)
	}
	logging.GlobalLogger.Info("Manifest decoded successfully")
	return m, nil
}
