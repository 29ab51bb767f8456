package workspace

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/downloader"
)

// CatalogProgressFunc reports byte progress of the current mod in a catalog
// batch. current is 1-based.
type CatalogProgressFunc func(current, total int, modID int64, downloaded, size int64, percent float64)

type CatalogAddResult struct {
	ModID    int64  `json:"modId"`
	Filename string `json:"filename,omitempty"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error,omitempty"`
}

type CatalogBatchResult struct {
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Results    []CatalogAddResult `json:"results"`
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

// filenameFromURL takes the last path segment, falling back to a generated
// name when it is not a jar.
func (s *Store) filenameFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", apperrors.Wrap(fmt.Errorf("invalid url %q", raw), apperrors.CategoryInvalidInput, "invalid_url", "", false)
	}
	name := path.Base(u.Path)
	if !strings.HasSuffix(name, ".jar") {
		name = fmt.Sprintf("mod_%d.jar", s.nowMillis())
	}
	return name, nil
}

// AddModFromURL downloads a mod into the workspace and refreshes the mod
// list.
func (s *Store) AddModFromURL(ctx context.Context, id, rawURL string, onProgress downloader.ProgressFunc) (models.TransferResult, error) {
	if err := s.requireDir(id); err != nil {
		return models.TransferResult{}, err
	}
	name, err := s.filenameFromURL(rawURL)
	if err != nil {
		return models.TransferResult{}, err
	}
	res, err := s.Fetcher.Fetch(ctx, downloader.Request{
		Key:         name,
		URL:         rawURL,
		Destination: filepath.Join(s.Path(id), "mods", name),
		OnProgress:  onProgress,
	})
	if err != nil {
		return models.TransferResult{}, err
	}
	if _, err := s.RefreshMods(ctx, id, models.ModDescriptor{Filename: name, URL: rawURL, Required: true}); err != nil {
		return models.TransferResult{}, err
	}
	logging.GlobalLogger.Info("Added " + name + " to " + id + " from " + rawURL)
	return res, nil
}

func (s *Store) gameVersion(id, version string) string {
	if version != "" {
		return version
	}
	if m, err := s.Load(id); err == nil {
		return m.MinecraftVersion
	}
	return ""
}

func (s *Store) requireCatalog() error {
	if s.Catalog == nil {
		return apperrors.Kind(apperrors.ErrCatalogUnavailable, apperrors.CategoryNetworkPermanent, "no catalog configured")
	}
	return nil
}

// AddModFromCatalog resolves a catalog mod for the workspace's game version,
// downloads it with digest verification and records its source.
func (s *Store) AddModFromCatalog(ctx context.Context, id string, modID int64, version string, onProgress downloader.ProgressFunc) (models.TransferResult, error) {
	if err := s.requireCatalog(); err != nil {
		return models.TransferResult{}, err
	}
	if err := s.requireDir(id); err != nil {
		return models.TransferResult{}, err
	}
	resolved, err := s.Catalog.ResolveDownload(ctx, modID, s.gameVersion(id, version))
	if err != nil {
		return models.TransferResult{}, err
	}
	if err := validName("filename", resolved.Filename); err != nil {
		return models.TransferResult{}, err
	}
	res, err := s.Fetcher.Fetch(ctx, downloader.Request{
		Key:          resolved.Filename,
		URL:          resolved.URL,
		Destination:  filepath.Join(s.Path(id), "mods", resolved.Filename),
		ExpectedHash: resolved.Hash,
		OnProgress:   onProgress,
	})
	if err != nil {
		return models.TransferResult{}, err
	}
	if _, err := s.RefreshMods(ctx, id, resolved.Descriptor()); err != nil {
		return models.TransferResult{}, err
	}
	logging.GlobalLogger.Info(fmt.Sprintf("Added catalog mod %d (%s) to %s", modID, resolved.Filename, id))
	return res, nil
}

// AddModsFromCatalog adds mods one after another; a failing mod is recorded
// and the rest continue.
func (s *Store) AddModsFromCatalog(ctx context.Context, id string, modIDs []int64, version string, onProgress CatalogProgressFunc) (CatalogBatchResult, error) {
	if err := s.requireCatalog(); err != nil {
		return CatalogBatchResult{}, err
	}
	if err := s.requireDir(id); err != nil {
		return CatalogBatchResult{}, err
	}
	version = s.gameVersion(id, version)
	out := CatalogBatchResult{Results: make([]CatalogAddResult, 0, len(modIDs))}
	for i, modID := range modIDs {
		var progress downloader.ProgressFunc
		if onProgress != nil {
			current := i + 1
			progress = func(downloaded, size int64, percent float64) {
				onProgress(current, len(modIDs), modID, downloaded, size, percent)
			}
		}
		res, err := s.AddModFromCatalog(ctx, id, modID, version, progress)
		if err != nil {
			logging.GlobalLogger.Warn(fmt.Sprintf("Could not add catalog mod %d: %s", modID, err.Error()))
			out.Failed++
			out.Results = append(out.Results, CatalogAddResult{ModID: modID, Error: err.Error()})
			continue
		}
		out.Successful++
		out.Results = append(out.Results, CatalogAddResult{ModID: modID, Filename: res.Filename, Path: res.Path})
	}
	return out, nil
}

// Search queries the catalog, defaulting to the workspace's game version.
func (s *Store) Search(ctx context.Context, id, query, version string) ([]models.CFMod, error) {
	if err := s.requireCatalog(); err != nil {
		return nil, err
	}
	return s.Catalog.Search(ctx, query, s.gameVersion(id, version))
}
