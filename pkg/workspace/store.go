// Package workspace manages modpack authoring workspaces: a directory per
// modpack holding its folders, mods and modpack.json.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Gojibodev/keklauncher/internal/config"
	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
	"github.com/Gojibodev/keklauncher/internal/fsx"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/catalog"
	"github.com/Gojibodev/keklauncher/pkg/downloader"
	"github.com/Gojibodev/keklauncher/pkg/manifest"
	"github.com/Gojibodev/keklauncher/pkg/reconciler"
)

const ManifestFile = "modpack.json"

var (
	EssentialFolders = []string{"mods", "config"}
	OptionalFolders  = []string{"resourcepacks", "shaderpacks", "scripts", "defaultconfigs",
		"kubejs", "openloader", "schematics", "journeymap", "saves"}
)

// Fetcher downloads one artifact; *downloader.Downloader satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req downloader.Request) (models.TransferResult, error)
}

type Store struct {
	Root        string
	ModpacksDir string
	LockWait    time.Duration
	Scanner     *reconciler.Reconciler
	Fetcher     Fetcher
	Catalog     catalog.Catalog

	now func() time.Time
}

func NewStore(cfg config.KekConfig, fetcher Fetcher, cat catalog.Catalog) (*Store, error) {
	scanner, err := reconciler.New(cfg.Reconcile.ArtifactPatterns, cfg.Reconcile.HashWorkers)
	if err != nil {
		return nil, err
	}
	s := &Store{
		Root:        cfg.WorkspaceDir(),
		ModpacksDir: cfg.ModpacksDir(),
		LockWait:    2 * time.Second,
		Scanner:     scanner,
		Fetcher:     fetcher,
		Catalog:     cat,
		now:         time.Now,
	}
	for _, dir := range []string{s.Root, s.ModpacksDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return s, nil
}

func validName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return apperrors.Wrap(fmt.Errorf("invalid %s %q", kind, name), apperrors.CategoryInvalidInput, "invalid_"+kind, "", false)
	}
	return nil
}

func (s *Store) Path(id string) string {
	return filepath.Join(s.Root, id)
}

func (s *Store) manifestPath(id string) string {
	return filepath.Join(s.Path(id), ManifestFile)
}

func (s *Store) timestamp() *time.Time {
	t := s.now().UTC().Truncate(time.Millisecond)
	return &t
}

// requireDir fails with WorkspaceNotFound when the workspace is absent.
func (s *Store) requireDir(id string) error {
	if err := validName("id", id); err != nil {
		return err
	}
	info, err := os.Stat(s.Path(id))
	if err != nil || !info.IsDir() {
		return apperrors.Kind(apperrors.ErrWorkspaceNotFound, apperrors.CategoryNotFound, "%q", id)
	}
	return nil
}

func (s *Store) claim(id string) error {
	if err := validName("id", id); err != nil {
		return err
	}
	if fsx.Exists(s.Path(id)) {
		return apperrors.Kind(apperrors.ErrAlreadyExists, apperrors.CategoryConflict, "workspace %q", id)
	}
	return os.MkdirAll(s.Path(id), 0o755)
}

func defaultManifest(id string) models.Modpack {
	return models.Modpack{
		ID:               id,
		Name:             id,
		Version:          "1.0.0",
		MinecraftVersion: "1.20.1",
		Modloader:        models.Modloader{Type: "forge", Version: "latest"},
		Author:           "Unknown",
		RequiredRAM:      "4G",
		JavaVersion:      "17",
		Folders:          models.Folders{Essential: []string{}, Optional: []string{}},
		Mods:             []models.ModDescriptor{},
	}
}

// Create makes a new empty workspace with the essential folders.
func (s *Store) Create(id string, md models.Metadata) (models.Modpack, error) {
	if err := s.claim(id); err != nil {
		return models.Modpack{}, err
	}
	for _, folder := range EssentialFolders {
		if err := os.MkdirAll(filepath.Join(s.Path(id), folder), 0o755); err != nil {
			return models.Modpack{}, fmt.Errorf("create %s: %w", folder, err)
		}
	}

	m := defaultManifest(id)
	md.Apply(&m)
	m.CreatedAt = s.timestamp()
	m.Folders.Essential = append(m.Folders.Essential, EssentialFolders...)
	if err := manifest.SaveJSON(s.manifestPath(id), m); err != nil {
		return models.Modpack{}, err
	}
	logging.GlobalLogger.Info("Created workspace " + id)
	return m, nil
}

// Import builds a workspace from an existing game directory, copying the
// known folders it has and scanning its mods.
func (s *Store) Import(ctx context.Context, sourceDir, id string, md models.Metadata) (models.Modpack, []string, error) {
	if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
		return models.Modpack{}, nil, apperrors.Wrap(fmt.Errorf("source %s is not a directory", sourceDir), apperrors.CategoryInvalidInput, "invalid_source", "", false)
	}
	if err := s.claim(id); err != nil {
		return models.Modpack{}, nil, err
	}

	m := defaultManifest(id)
	imported := []string{}
	for _, group := range []struct {
		names []string
		into  *[]string
	}{{EssentialFolders, &m.Folders.Essential}, {OptionalFolders, &m.Folders.Optional}} {
		for _, folder := range group.names {
			src := filepath.Join(sourceDir, folder)
			if !fsx.Exists(src) {
				continue
			}
			if err := fsx.CopyDir(src, filepath.Join(s.Path(id), folder)); err != nil {
				return models.Modpack{}, nil, apperrors.Wrap(fmt.Errorf("copy %s: %w", folder, err), apperrors.CategoryIOFailure, "io_failure", "", false)
			}
			*group.into = append(*group.into, folder)
			imported = append(imported, folder)
		}
	}

	modsDir := filepath.Join(s.Path(id), "mods")
	mods, err := s.scanMods(ctx, modsDir, nil)
	if err != nil {
		return models.Modpack{}, nil, err
	}
	m.Mods = mods
	m.Modloader = DetectModloader(mods)
	m.Description = "Imported from Minecraft installation"
	m.ImportedFrom = sourceDir
	md.Apply(&m)
	m.CreatedAt = s.timestamp()

	if err := manifest.SaveJSON(s.manifestPath(id), m); err != nil {
		return models.Modpack{}, nil, err
	}
	logging.GlobalLogger.Info(fmt.Sprintf("Imported workspace %s from %s (%d mods, folders %v)", id, sourceDir, len(mods), imported))
	return m, imported, nil
}

func (s *Store) Load(id string) (models.Modpack, error) {
	if err := s.requireDir(id); err != nil {
		return models.Modpack{}, err
	}
	return manifest.LoadFile(s.manifestPath(id))
}

// List returns every workspace with a readable manifest, sorted by id.
func (s *Store) List() ([]models.WorkspaceSummary, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.WorkspaceSummary{}, nil
		}
		return nil, fmt.Errorf("read workspaces: %w", err)
	}
	out := []models.WorkspaceSummary{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := manifest.LoadFile(s.manifestPath(entry.Name()))
		if err != nil {
			logging.GlobalLogger.Debug("Skipping workspace " + entry.Name() + ": " + err.Error())
			continue
		}
		out = append(out, models.WorkspaceSummary{
			ID:               entry.Name(),
			Name:             m.Name,
			Version:          m.Version,
			MinecraftVersion: m.MinecraftVersion,
			ModCount:         len(m.Mods),
			Path:             s.Path(entry.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// mutate loads, changes and saves a manifest while holding the workspace
// lock.
func (s *Store) mutate(id string, fn func(m *models.Modpack) error) (models.Modpack, error) {
	if err := s.requireDir(id); err != nil {
		return models.Modpack{}, err
	}
	var out models.Modpack
	err := fsx.WithDirLock(s.Path(id), s.LockWait, func() error {
		m, err := manifest.LoadFile(s.manifestPath(id))
		if err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
		if err := manifest.SaveJSON(s.manifestPath(id), m); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

func (s *Store) UpdateMetadata(id string, md models.Metadata) (models.Modpack, error) {
	return s.mutate(id, func(m *models.Modpack) error {
		md.Apply(m)
		m.UpdatedAt = s.timestamp()
		return nil
	})
}

func (s *Store) Delete(id string) error {
	if err := s.requireDir(id); err != nil {
		return err
	}
	if err := os.RemoveAll(s.Path(id)); err != nil {
		return apperrors.Wrap(fmt.Errorf("delete workspace %s: %w", id, err), apperrors.CategoryIOFailure, "io_failure", "", false)
	}
	logging.GlobalLogger.Info("Deleted workspace " + id)
	return nil
}
