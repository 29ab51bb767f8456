package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
	"github.com/Gojibodev/keklauncher/internal/fsx"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/manifest"
)

type ExportResult struct {
	Path         string         `json:"path"`
	ZipPath      string         `json:"zipPath,omitempty"`
	ManifestPath string         `json:"manifestPath"`
	PackPath     string         `json:"packPath"`
	Fingerprint  string         `json:"fingerprint"`
	Manifest     models.Modpack `json:"metadata"`
}

// Export publishes a workspace into the modpacks directory: the declared
// folders, the installer and the manifest under <id>/, plus <id>.json and
// <id>.kekpack so the pack is listed as available.
func (s *Store) Export(id string, asZip bool) (ExportResult, error) {
	m, err := s.Load(id)
	if err != nil {
		return ExportResult{}, err
	}
	ioErr := func(err error) error {
		return apperrors.Wrap(fmt.Errorf("export %s: %w", id, err), apperrors.CategoryIOFailure, "io_failure", "", false)
	}

	final := filepath.Join(s.ModpacksDir, id)
	if err := os.RemoveAll(final); err != nil {
		return ExportResult{}, ioErr(err)
	}
	if err := os.MkdirAll(final, 0o755); err != nil {
		return ExportResult{}, ioErr(err)
	}
	folders := append(append([]string{}, m.Folders.Essential...), m.Folders.Optional...)
	for _, folder := range folders {
		src := filepath.Join(s.Path(id), folder)
		if !fsx.Exists(src) {
			continue
		}
		if err := fsx.CopyDir(src, filepath.Join(final, folder)); err != nil {
			return ExportResult{}, ioErr(err)
		}
	}
	if m.Installer != nil {
		src := filepath.Join(s.Path(id), m.Installer.Filename)
		if fsx.Exists(src) {
			if err := fsx.CopyFile(src, filepath.Join(final, m.Installer.Filename)); err != nil {
				return ExportResult{}, ioErr(err)
			}
		}
	}
	if err := manifest.SaveJSON(filepath.Join(final, ManifestFile), m); err != nil {
		return ExportResult{}, err
	}

	res := ExportResult{
		Path:         final,
		ManifestPath: filepath.Join(s.ModpacksDir, id+".json"),
		PackPath:     filepath.Join(s.ModpacksDir, id+".kekpack"),
		Manifest:     m,
	}
	if asZip {
		res.ZipPath = filepath.Join(s.ModpacksDir, id+".zip")
		if err := zipDir(final, res.ZipPath); err != nil {
			return ExportResult{}, ioErr(err)
		}
	}
	if err := manifest.SaveJSON(res.ManifestPath, m); err != nil {
		return ExportResult{}, err
	}
	if err := manifest.SaveBinary(res.PackPath, m); err != nil {
		return ExportResult{}, err
	}
	if res.Fingerprint, err = manifest.Fingerprint(m); err != nil {
		return ExportResult{}, err
	}
	logging.GlobalLogger.Info(fmt.Sprintf("Exported %s to %s (fingerprint %s)", id, final, res.Fingerprint))
	return res, nil
}

// zipDir archives the contents of dir at maximum compression. The archive
// is written beside its final name and renamed into place.
func zipDir(dir, target string) error {
	tmp := target + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})
	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
			_, err = zw.CreateHeader(hdr)
			return err
		}
		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if walkErr != nil {
		_ = zw.Close()
		_ = out.Close()
		return walkErr
	}
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return fsx.ReplaceFile(tmp, target)
}
