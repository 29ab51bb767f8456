// Package reconciler compares a declared mod list with the artifacts present
// in an installation directory.
package reconciler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"

	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/verifier"
)

var DefaultPatterns = []string{"*.jar"}

type Reconciler struct {
	patterns    []glob.Glob
	hashWorkers int
}

// New compiles the artifact patterns. Empty patterns fall back to *.jar.
func New(patterns []string, hashWorkers int) (*Reconciler, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile artifact pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	if hashWorkers < 1 {
		hashWorkers = 1
	}
	return &Reconciler{patterns: compiled, hashWorkers: hashWorkers}, nil
}

// Matches reports whether a file name counts as an installable artifact.
func (r *Reconciler) Matches(name string) bool {
	for _, g := range r.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// ListInstalled hashes every artifact in dir, sorted by file name. A missing
// directory yields an empty list.
func (r *Reconciler) ListInstalled(ctx context.Context, dir string) ([]models.InstalledFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.InstalledFile{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	files := make([]models.InstalledFile, 0, len(entries))
	for _, entry := range entries {
		if !r.Matches(entry.Name()) {
			continue
		}
		// Stat follows symlinks so a linked jar counts as installed.
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil {
			logging.GlobalLogger.Warn("Skipping " + entry.Name() + ": " + err.Error())
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, models.InstalledFile{
			Filename: entry.Name(),
			Path:     filepath.Join(dir, entry.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	if len(files) == 0 {
		return files, nil
	}

	ver := verifier.NewVerifier(min(r.hashWorkers, len(files)), len(files))
	defer ver.Stop()
	for i := range files {
		ver.EnqueueFile(files[i].Filename, files[i].Path, i)
	}
	for range files {
		select {
		case <-ctx.Done():
			// Output is buffered for every file, so Stop cannot block here.
			return nil, ctx.Err()
		case out := <-ver.GetOutputChannel():
			i := out.Payload.(int)
			if out.Err != nil {
				logging.GlobalLogger.Warn("Could not hash " + out.Path + ", treating as unknown content: " + out.Err.Error())
				continue
			}
			files[i].Hash = out.Digest
			files[i].Size = out.Size
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}

// Reconcile partitions mods against dir. Every manifest entry lands in
// exactly one of Missing, Outdated or UpToDate; every unclaimed artifact in
// Extra.
func (r *Reconciler) Reconcile(ctx context.Context, mods []models.ModDescriptor, dir string) (models.ReconciliationResult, error) {
	installed, err := r.ListInstalled(ctx, dir)
	if err != nil {
		return models.ReconciliationResult{}, err
	}
	return Classify(mods, installed), nil
}

// Classify is the pure part of Reconcile.
func Classify(mods []models.ModDescriptor, installed []models.InstalledFile) models.ReconciliationResult {
	result := models.ReconciliationResult{
		Missing:  []models.ModDescriptor{},
		Outdated: []models.OutdatedMod{},
		UpToDate: []models.ModDescriptor{},
		Extra:    []models.InstalledFile{},
	}

	byName := make(map[string]models.InstalledFile, len(installed))
	for _, f := range installed {
		byName[f.Filename] = f
	}
	claimed := make(map[string]bool, len(mods))

	for _, mod := range mods {
		file, ok := byName[mod.Filename]
		claimed[mod.Filename] = true
		switch {
		case !ok:
			result.Missing = append(result.Missing, mod)
		case mod.Hash != "" && !verifier.Equal(mod.Hash, file.Hash):
			result.Outdated = append(result.Outdated, models.OutdatedMod{ModDescriptor: mod, CurrentHash: file.Hash})
		default:
			result.UpToDate = append(result.UpToDate, mod)
		}
	}

	for _, f := range installed {
		if !claimed[f.Filename] {
			result.Extra = append(result.Extra, f)
		}
	}
	sort.Slice(result.Extra, func(i, j int) bool { return result.Extra[i].Filename < result.Extra[j].Filename })
	return result
}
