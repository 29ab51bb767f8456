package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
	"github.com/Gojibodev/keklauncher/internal/fsx"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/verifier"
)

var versionPattern = regexp.MustCompile(`[-_](\d+\.\d+(?:\.\d+)?)`)

// VersionFromFilename picks the first dotted version in a mod file name,
// "unknown" when there is none.
func VersionFromFilename(name string) string {
	if m := versionPattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return "unknown"
}

// DetectModloader guesses the loader from mod file names. Any fabric mod
// makes the pack fabric, everything else is taken as forge.
func DetectModloader(mods []models.ModDescriptor) models.Modloader {
	for _, mod := range mods {
		name := strings.ToLower(mod.Filename)
		if strings.Contains(name, "fabric") || strings.Contains(name, "modmenu") {
			return models.Modloader{Type: "fabric", Version: "unknown"}
		}
	}
	return models.Modloader{Type: "forge", Version: "unknown"}
}

func installerType(filename string) string {
	switch {
	case strings.Contains(filename, "forge"):
		return "forge"
	case strings.Contains(filename, "fabric"):
		return "fabric"
	default:
		return "unknown"
	}
}

// scanMods lists the artifacts in dir as manifest entries. Source fields of
// previous entries with the same file name are carried over.
func (s *Store) scanMods(ctx context.Context, dir string, previous []models.ModDescriptor) ([]models.ModDescriptor, error) {
	files, err := s.Scanner.ListInstalled(ctx, dir)
	if err != nil {
		return nil, err
	}
	known := make(map[string]models.ModDescriptor, len(previous))
	for _, p := range previous {
		known[p.Filename] = p
	}
	mods := make([]models.ModDescriptor, 0, len(files))
	for _, f := range files {
		mod := models.ModDescriptor{
			Filename: f.Filename,
			Hash:     f.Hash,
			Size:     f.Size,
			Required: true,
			Version:  VersionFromFilename(f.Filename),
		}
		if p, ok := known[f.Filename]; ok {
			mod.URL = p.URL
			mod.Required = p.Required
			mod.Description = p.Description
			mod.CurseForgeID = p.CurseForgeID
			mod.FileID = p.FileID
			if mod.Version == "unknown" && p.Version != "" {
				mod.Version = p.Version
			}
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// RefreshMods rescans the mods folder. sources describe where newly added
// files came from.
func (s *Store) RefreshMods(ctx context.Context, id string, sources ...models.ModDescriptor) (models.Modpack, error) {
	return s.mutate(id, func(m *models.Modpack) error {
		previous := append(slices.Clone(m.Mods), sources...)
		mods, err := s.scanMods(ctx, filepath.Join(s.Path(id), "mods"), previous)
		if err != nil {
			return err
		}
		m.Mods = mods
		return nil
	})
}

// AddFolder creates a folder in the workspace and lists it as optional
// unless the manifest already declares it.
func (s *Store) AddFolder(id, name string) (models.Modpack, error) {
	if err := validName("folder", name); err != nil {
		return models.Modpack{}, err
	}
	return s.mutate(id, func(m *models.Modpack) error {
		if err := os.MkdirAll(filepath.Join(s.Path(id), name), 0o755); err != nil {
			return apperrors.Wrap(fmt.Errorf("create folder %s: %w", name, err), apperrors.CategoryIOFailure, "io_failure", "", false)
		}
		if !slices.Contains(m.Folders.Essential, name) && !slices.Contains(m.Folders.Optional, name) {
			m.Folders.Optional = append(m.Folders.Optional, name)
		}
		return nil
	})
}

// AddFile copies src into a workspace folder. Adding to mods refreshes the
// mod list.
func (s *Store) AddFile(ctx context.Context, id, folder, src string) (string, error) {
	if err := validName("folder", folder); err != nil {
		return "", err
	}
	if err := s.requireDir(id); err != nil {
		return "", err
	}
	name := filepath.Base(src)
	if err := fsx.CopyFile(src, filepath.Join(s.Path(id), folder, name)); err != nil {
		return "", apperrors.Wrap(fmt.Errorf("add %s: %w", name, err), apperrors.CategoryIOFailure, "io_failure", "", false)
	}
	logging.GlobalLogger.Info("Added " + name + " to " + id + "/" + folder)
	if folder == "mods" {
		if _, err := s.RefreshMods(ctx, id); err != nil {
			return "", err
		}
	}
	return name, nil
}

// SetInstaller copies a modloader installer into the workspace root and
// records it in the manifest.
func (s *Store) SetInstaller(id, src string) (models.Installer, error) {
	if _, err := s.Load(id); err != nil {
		return models.Installer{}, err
	}
	name := filepath.Base(src)
	dest := filepath.Join(s.Path(id), name)
	if err := fsx.CopyFile(src, dest); err != nil {
		return models.Installer{}, apperrors.Wrap(fmt.Errorf("copy installer: %w", err), apperrors.CategoryIOFailure, "io_failure", "", false)
	}
	digest, _, err := verifier.DigestFile(dest)
	if err != nil {
		return models.Installer{}, err
	}
	inst := models.Installer{Filename: name, Type: installerType(name), Hash: digest}
	_, err = s.mutate(id, func(m *models.Modpack) error {
		m.Installer = &inst
		return nil
	})
	return inst, err
}
