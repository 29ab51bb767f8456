// Package modpack manages available modpacks and their installation
// directories.
package modpack

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Gojibodev/keklauncher/internal/config"
	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/catalog"
	"github.com/Gojibodev/keklauncher/pkg/installer"
	"github.com/Gojibodev/keklauncher/pkg/manifest"
	"github.com/Gojibodev/keklauncher/pkg/preflight"
	"github.com/Gojibodev/keklauncher/pkg/reconciler"
)

type Manager struct {
	ConfigDir  string
	ModsBase   string
	Workers    int
	Reconciler *reconciler.Reconciler
	Fetcher    installer.Fetcher
	Resolver   catalog.Resolver
	Checker    *preflight.Checker
	HttpClient *http.Client

	mu      sync.Mutex
	running map[string]*installer.Installer
}

type SyncOptions struct {
	PruneExtra bool
}

func NewManager(cfg config.KekConfig, fetcher installer.Fetcher, resolver catalog.Resolver) (*Manager, error) {
	rec, err := reconciler.New(cfg.Reconcile.ArtifactPatterns, cfg.Reconcile.HashWorkers)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		ConfigDir:  cfg.ModpacksDir(),
		ModsBase:   cfg.ModsDir(),
		Workers:    cfg.Download.Workers,
		Reconciler: rec,
		Fetcher:    fetcher,
		Resolver:   resolver,
		Checker:    preflight.New(),
		HttpClient: http.DefaultClient,
		running:    make(map[string]*installer.Installer),
	}
	for _, dir := range []string{m.ConfigDir, m.ModsBase} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return m, nil
}

func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return apperrors.Wrap(fmt.Errorf("invalid modpack id %q", id), apperrors.CategoryInvalidInput, "invalid_id", "", false)
	}
	return nil
}

func (m *Manager) manifestPath(id string) string {
	return filepath.Join(m.ConfigDir, id+".json")
}

// Available lists the modpacks in the config directory. Unreadable
// manifests are logged and skipped.
func (m *Manager) Available() ([]models.ModpackSummary, error) {
	entries, err := os.ReadDir(m.ConfigDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.ModpackSummary{}, nil
		}
		return nil, fmt.Errorf("read modpacks: %w", err)
	}
	out := []models.ModpackSummary{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		pack, err := manifest.LoadFile(filepath.Join(m.ConfigDir, entry.Name()))
		if err != nil {
			logging.GlobalLogger.Warn("Skipping modpack " + entry.Name() + ": " + err.Error())
			continue
		}
		out = append(out, models.ModpackSummary{
			ID:               strings.TrimSuffix(entry.Name(), ".json"),
			Name:             pack.Name,
			Version:          pack.Version,
			Description:      pack.Description,
			MinecraftVersion: pack.MinecraftVersion,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Manager) Load(id string) (models.Modpack, error) {
	if err := validID(id); err != nil {
		return models.Modpack{}, err
	}
	return manifest.LoadFile(m.manifestPath(id))
}

// Save writes a manifest into the config directory, replacing any previous
// version.
func (m *Manager) Save(pack models.Modpack) error {
	if err := validID(pack.ID); err != nil {
		return err
	}
	if err := manifest.SaveJSON(m.manifestPath(pack.ID), pack); err != nil {
		return err
	}
	logging.GlobalLogger.Info("Saved modpack " + pack.ID)
	return nil
}

// Create stores a new manifest and fails if one already exists.
func (m *Manager) Create(pack models.Modpack) error {
	if err := validID(pack.ID); err != nil {
		return err
	}
	if _, err := os.Stat(m.manifestPath(pack.ID)); err == nil {
		return apperrors.Kind(apperrors.ErrAlreadyExists, apperrors.CategoryConflict, "modpack %q", pack.ID)
	}
	return m.Save(pack)
}

func (m *Manager) InstallPath(id string) string {
	return filepath.Join(m.ModsBase, id)
}

func (m *Manager) InstalledMods(ctx context.Context, id string) ([]models.InstalledFile, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	return m.Reconciler.ListInstalled(ctx, m.InstallPath(id))
}

func (m *Manager) Compare(ctx context.Context, id string) (models.ReconciliationResult, error) {
	pack, err := m.Load(id)
	if err != nil {
		return models.ReconciliationResult{}, err
	}
	return m.Reconciler.Reconcile(ctx, pack.Mods, m.InstallPath(id))
}

// Stats counts installed artifacts and the reconciliation buckets.
func (m *Manager) Stats(ctx context.Context, id string) (models.ModpackStats, error) {
	pack, err := m.Load(id)
	if err != nil {
		return models.ModpackStats{}, err
	}
	installed, err := m.Reconciler.ListInstalled(ctx, m.InstallPath(id))
	if err != nil {
		return models.ModpackStats{}, err
	}
	cmp := reconciler.Classify(pack.Mods, installed)

	var totalSize int64
	for _, f := range installed {
		totalSize += f.Size
	}
	return models.ModpackStats{
		TotalMods: len(installed),
		TotalSize: totalSize,
		Missing:   len(cmp.Missing),
		Outdated:  len(cmp.Outdated),
		Extra:     len(cmp.Extra),
		UpToDate:  len(cmp.UpToDate),
	}, nil
}

// DeleteMod removes one installed artifact. Reports false when it was not
// there.
func (m *Manager) DeleteMod(id, filename string) (bool, error) {
	if err := validID(id); err != nil {
		return false, err
	}
	if filename == "" || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return false, apperrors.Wrap(fmt.Errorf("invalid filename %q", filename), apperrors.CategoryInvalidInput, "invalid_filename", "", false)
	}
	err := os.Remove(filepath.Join(m.InstallPath(id), filename))
	switch {
	case err == nil:
		logging.GlobalLogger.Info("Deleted " + filename + " from " + id)
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, apperrors.Wrap(fmt.Errorf("delete %s: %w", filename, err), apperrors.CategoryIOFailure, "io_failure", "", false)
	}
}

func (m *Manager) newInstaller(id string, pack models.Modpack) (*installer.Installer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.running[id]; busy {
		return nil, apperrors.Kind(apperrors.ErrStateContention, apperrors.CategoryStateContention, "modpack %q is already downloading", id)
	}
	inst := installer.NewInstaller(m.InstallPath(id), m.Fetcher, m.Resolver, m.Workers)
	inst.GameVersion = pack.MinecraftVersion
	m.running[id] = inst
	return inst, nil
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	delete(m.running, id)
	m.mu.Unlock()
}

// Download runs a batch over the whole manifest.
func (m *Manager) Download(ctx context.Context, id string, onlyNew bool, handler installer.ProgressHandler) (models.BatchResult, error) {
	pack, err := m.Load(id)
	if err != nil {
		return models.BatchResult{}, err
	}
	inst, err := m.newInstaller(id, pack)
	if err != nil {
		return models.BatchResult{}, err
	}
	defer m.release(id)
	return inst.RunBatch(ctx, pack.Mods, handler, onlyNew)
}

// Sync downloads what is missing or outdated and optionally removes
// artifacts the manifest does not declare.
func (m *Manager) Sync(ctx context.Context, id string, opts SyncOptions, handler installer.ProgressHandler) (models.SyncResult, error) {
	pack, err := m.Load(id)
	if err != nil {
		return models.SyncResult{}, err
	}
	inst, err := m.newInstaller(id, pack)
	if err != nil {
		return models.SyncResult{}, err
	}
	defer m.release(id)

	cmp, err := m.Reconciler.Reconcile(ctx, pack.Mods, m.InstallPath(id))
	if err != nil {
		return models.SyncResult{}, err
	}
	logging.GlobalLogger.Info(fmt.Sprintf("Sync %s: %d missing, %d outdated, %d up to date, %d extra", id, len(cmp.Missing), len(cmp.Outdated), len(cmp.UpToDate), len(cmp.Extra)))

	batch, err := inst.RunBatch(ctx, cmp.NeedsTransfer(), handler, false)
	if err != nil {
		return models.SyncResult{}, err
	}

	pruned := []string{}
	if opts.PruneExtra {
		for _, extra := range cmp.Extra {
			if err := os.Remove(extra.Path); err != nil && !os.IsNotExist(err) {
				logging.GlobalLogger.Warn("Could not remove extra " + extra.Filename + ": " + err.Error())
				continue
			}
			pruned = append(pruned, extra.Filename)
		}
	}
	return models.SyncResult{Reconciliation: cmp, Batch: batch, Pruned: pruned}, nil
}

// CancelDownload stops the running batch of a modpack.
func (m *Manager) CancelDownload(id string) bool {
	m.mu.Lock()
	inst, ok := m.running[id]
	m.mu.Unlock()
	return ok && inst.CancelRemaining()
}

// CancelMod aborts the in-flight transfer of one file.
func (m *Manager) CancelMod(filename string) bool {
	return m.Fetcher.Cancel(filename)
}

// CancelAll aborts every in-flight transfer and running batch.
func (m *Manager) CancelAll() int {
	m.mu.Lock()
	running := make([]*installer.Installer, 0, len(m.running))
	for _, inst := range m.running {
		running = append(running, inst)
	}
	m.mu.Unlock()
	for _, inst := range running {
		inst.CancelRemaining()
	}
	return m.Fetcher.CancelAll()
}

// Progress returns counters of a running batch.
func (m *Manager) Progress(id string) (installer.ProgressSnapshot, bool) {
	m.mu.Lock()
	inst, ok := m.running[id]
	m.mu.Unlock()
	if !ok {
		return installer.ProgressSnapshot{}, false
	}
	return inst.Progress.Snapshot(), true
}

// Preflight checks RAM against the manifest and disk against the bytes a
// sync would download.
func (m *Manager) Preflight(ctx context.Context, id string) (preflight.Report, error) {
	pack, err := m.Load(id)
	if err != nil {
		return preflight.Report{}, err
	}
	cmp, err := m.Reconciler.Reconcile(ctx, pack.Mods, m.InstallPath(id))
	if err != nil {
		return preflight.Report{}, err
	}
	var needed int64
	for _, mod := range cmp.NeedsTransfer() {
		needed += mod.Size
	}
	return m.Checker.Check(pack.RequiredRAM, m.InstallPath(id), needed), nil
}

// ImportRemote fetches a manifest from url and stores it as available.
func (m *Manager) ImportRemote(ctx context.Context, url string) (models.Modpack, error) {
	pack, err := manifest.Fetch(ctx, m.HttpClient, url)
	if err != nil {
		return models.Modpack{}, err
	}
	if err := m.Save(pack); err != nil {
		return models.Modpack{}, err
	}
	return pack, nil
}
