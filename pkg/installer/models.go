package installer

import (
	"context"
	"sync"
	"time"

	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/catalog"
	"github.com/Gojibodev/keklauncher/pkg/downloader"
)

// Fetcher is the transfer side the installer drives.
type Fetcher interface {
	Fetch(ctx context.Context, req downloader.Request) (models.TransferResult, error)
	Cancel(key string) bool
	CancelAll() int
}

type ItemState string

const (
	StatePending     ItemState = "pending"
	StateDownloading ItemState = "downloading"
	StateSucceeded   ItemState = "succeeded"
	StateFailed      ItemState = "failed"
	StateSkipped     ItemState = "skipped"
)

type InstallProgress struct {
	Total           int
	Completed       int
	Succeeded       int
	Failed          int
	Skipped         int
	DownloadedBytes int64
	mu              sync.RWMutex
}

// ProgressSnapshot is a copy of InstallProgress safe to hand out.
type ProgressSnapshot struct {
	Total           int   `json:"total"`
	Completed       int   `json:"completed"`
	Succeeded       int   `json:"succeeded"`
	Failed          int   `json:"failed"`
	Skipped         int   `json:"skipped"`
	DownloadedBytes int64 `json:"downloadedBytes"`
}

// Installer runs download batches into one installation directory.
type Installer struct {
	Dir         string
	Workers     int
	GameVersion string
	LockWait    time.Duration

	Fetcher  Fetcher
	Resolver catalog.Resolver // optional, used for entries without a URL
	Progress InstallProgress

	mu     sync.Mutex
	cancel context.CancelFunc
}

type outcome struct {
	state  ItemState
	result models.TransferResult
	err    string
}
