// Package catalog resolves mods against a remote mod catalog.
package catalog

import (
	"context"

	"github.com/Gojibodev/keklauncher/internal/models"
)

type Searcher interface {
	Search(ctx context.Context, query, gameVersion string) ([]models.CFMod, error)
}

// Resolver turns a catalog mod id into a concrete downloadable file.
type Resolver interface {
	ResolveDownload(ctx context.Context, modID int64, gameVersion string) (models.ResolvedMod, error)
}

type Catalog interface {
	Searcher
	Resolver
}

// BatchProgressFunc reports resolution progress. filename is empty when the
// mod at that position could not be resolved.
type BatchProgressFunc func(completed, total int, filename string)

// ResolveAll resolves ids in order, skipping the ones that fail.
func ResolveAll(ctx context.Context, r Resolver, modIDs []int64, gameVersion string, onProgress BatchProgressFunc) ([]models.ResolvedMod, map[int64]error) {
	resolved := make([]models.ResolvedMod, 0, len(modIDs))
	failures := map[int64]error{}
	for i, id := range modIDs {
		mod, err := r.ResolveDownload(ctx, id, gameVersion)
		filename := ""
		if err != nil {
			failures[id] = err
		} else {
			resolved = append(resolved, mod)
			filename = mod.Filename
		}
		if onProgress != nil {
			onProgress(i+1, len(modIDs), filename)
		}
	}
	return resolved, failures
}
