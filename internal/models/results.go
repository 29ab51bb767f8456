package models

import "time"

// InstalledFile is an artifact found in an installation directory.
type InstalledFile struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modified"`
	Hash     string    `json:"hash"`
}

type OutdatedMod struct {
	ModDescriptor
	CurrentHash string `json:"currentHash"`
}

// ReconciliationResult partitions a manifest against a directory. Missing,
// Outdated and UpToDate follow manifest order; Extra is sorted by filename.
type ReconciliationResult struct {
	Missing  []ModDescriptor `json:"missing"`
	Outdated []OutdatedMod   `json:"outdated"`
	UpToDate []ModDescriptor `json:"upToDate"`
	Extra    []InstalledFile `json:"extra"`
}

// NeedsTransfer returns the entries a sync has to download, missing first.
func (r ReconciliationResult) NeedsTransfer() []ModDescriptor {
	out := make([]ModDescriptor, 0, len(r.Missing)+len(r.Outdated))
	out = append(out, r.Missing...)
	for _, o := range r.Outdated {
		out = append(out, o.ModDescriptor)
	}
	return out
}

type TransferResult struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Hash     string `json:"hash"`
}

type FailedItem struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchResult accounts for every submitted item exactly once.
type BatchResult struct {
	Successful []TransferResult `json:"successful"`
	Failed     []FailedItem     `json:"failed"`
	Skipped    []string         `json:"skipped"`
}

func (b BatchResult) Total() int {
	return len(b.Successful) + len(b.Failed) + len(b.Skipped)
}

type ModpackStats struct {
	TotalMods int   `json:"totalMods"`
	TotalSize int64 `json:"totalSize"`
	Missing   int   `json:"missing"`
	Outdated  int   `json:"outdated"`
	Extra     int   `json:"extra"`
	UpToDate  int   `json:"upToDate"`
}

type SyncResult struct {
	Reconciliation ReconciliationResult `json:"reconciliation"`
	Batch          BatchResult          `json:"batch"`
	Pruned         []string             `json:"pruned"`
}
