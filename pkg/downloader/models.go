package downloader

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// ProgressFunc receives the running byte count for one transfer. total is 0
// when the server did not announce a length, and percent is then 0.
type ProgressFunc func(downloaded, total int64, percent float64)

type Request struct {
	// Key identifies the transfer for cancellation. Defaults to the
	// destination file name.
	Key          string
	URL          string
	Destination  string
	ExpectedHash string
	OnProgress   ProgressFunc
}

type Options struct {
	IdleTimeout  time.Duration
	MaxRedirects int
	MaxRetries   int
	RetryBackoff time.Duration
	UserAgent    string
}

type activeTransfer struct {
	id     uint64
	cancel context.CancelCauseFunc
}

// Downloader fetches remote artifacts into files. Safe for concurrent use.
type Downloader struct {
	HttpClient *http.Client
	Options    Options

	mu     sync.Mutex
	nextID uint64
	active map[string]activeTransfer
}
