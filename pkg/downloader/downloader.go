package downloader

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/Gojibodev/keklauncher/internal/config"
	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
	"github.com/Gojibodev/keklauncher/internal/fsx"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/utils"
	"github.com/Gojibodev/keklauncher/pkg/verifier"
)

const (
	partSuffix = ".part"
	chunkSize  = 32 * 1024
)

var (
	errIdle         = stderrors.New("idle timeout")
	errCancelledKey = stderrors.New("cancelled by key")
)

func DefaultOptions() Options {
	return Options{
		IdleTimeout:  30 * time.Second,
		MaxRedirects: 10,
		RetryBackoff: 500 * time.Millisecond,
		UserAgent:    "keklauncher/1.0",
	}
}

// OptionsFromConfig maps the download section of the config.
func OptionsFromConfig(cfg config.KekConfig) Options {
	opts := DefaultOptions()
	opts.IdleTimeout = cfg.IdleTimeout()
	opts.MaxRedirects = cfg.Download.MaxRedirects
	opts.MaxRetries = cfg.Download.MaxRetries
	opts.UserAgent = cfg.Download.UserAgent
	return opts
}

func NewDownloader(opts Options) *Downloader {
	defaults := DefaultOptions()
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaults.IdleTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaults.MaxRedirects
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaults.RetryBackoff
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.IdleTimeout,
		ResponseHeaderTimeout: opts.IdleTimeout,
	}

	httpClient := &http.Client{
		Transport: transport,
		// Redirects are followed by hand so the hop cap is ours.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Downloader{
		HttpClient: httpClient,
		Options:    opts,
		active:     make(map[string]activeTransfer),
	}
}

// Fetch downloads req.URL to req.Destination. The destination only ever
// holds a complete file: data lands in a sibling .part file that is renamed
// into place once the digest checks out.
func (d *Downloader) Fetch(ctx context.Context, req Request) (models.TransferResult, error) {
	key := req.Key
	if key == "" {
		key = filepath.Base(req.Destination)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	id := d.register(key, cancel)
	defer func() {
		d.unregister(key, id)
		cancel(nil)
	}()

	logging.GlobalLogger.Info("Downloading " + key + " from " + req.URL)
	attempts := 1 + d.Options.MaxRetries
	for attempt := 1; ; attempt++ {
		result, err := d.fetchOnce(ctx, key, req)
		if err == nil {
			logging.GlobalLogger.Info("Downloaded " + key + " (" + strconv.FormatInt(result.Size, 10) + " bytes)")
			return result, nil
		}
		if attempt >= attempts || !apperrors.RetryableOf(err) {
			logging.GlobalLogger.Error("Failed to download " + key + ": " + err.Error())
			return models.TransferResult{}, err
		}
		logging.GlobalLogger.Warn("Failed to download " + key + ", retrying... (attempt " + strconv.Itoa(attempt) + "): " + err.Error())
		select {
		case <-ctx.Done():
			return models.TransferResult{}, d.classify(ctx, ctx, ctx.Err())
		case <-time.After(d.Options.RetryBackoff * time.Duration(attempt)):
		}
	}
}

func (d *Downloader) fetchOnce(parent context.Context, key string, req Request) (models.TransferResult, error) {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)
	watchdog := time.AfterFunc(d.Options.IdleTimeout, func() { cancel(errIdle) })
	defer watchdog.Stop()

	resp, err := d.open(ctx, req.URL, func() { watchdog.Reset(d.Options.IdleTimeout) })
	if err != nil {
		return models.TransferResult{}, err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return models.TransferResult{}, apperrors.Wrap(fmt.Errorf("create destination directory: %w", err), apperrors.CategoryIOFailure, "io_failure", "", false)
	}
	partPath := req.Destination + partSuffix
	file, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return models.TransferResult{}, apperrors.Wrap(fmt.Errorf("create %s: %w", partPath, err), apperrors.CategoryIOFailure, "io_failure", "", false)
	}
	keep := false
	defer func() {
		if !keep {
			_ = file.Close()
			_ = os.Remove(partPath)
		}
	}()

	hasher := verifier.NewDigest()
	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	var downloaded int64
	buf := make([]byte, chunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			watchdog.Reset(d.Options.IdleTimeout)
			if _, werr := file.Write(buf[:n]); werr != nil {
				return models.TransferResult{}, apperrors.Wrap(fmt.Errorf("write %s: %w", partPath, werr), apperrors.CategoryIOFailure, "io_failure", "", false)
			}
			hasher.Write(buf[:n])
			downloaded += int64(n)
			if req.OnProgress != nil {
				req.OnProgress(downloaded, total, utils.Percent(downloaded, total))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return models.TransferResult{}, d.classify(parent, ctx, rerr)
		}
	}
	watchdog.Stop()

	if err := file.Close(); err != nil {
		return models.TransferResult{}, apperrors.Wrap(fmt.Errorf("close %s: %w", partPath, err), apperrors.CategoryIOFailure, "io_failure", "", false)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	if req.ExpectedHash != "" && !verifier.Equal(req.ExpectedHash, digest) {
		_ = os.Remove(req.Destination)
		return models.TransferResult{}, apperrors.Wrap(&apperrors.MismatchError{Expected: req.ExpectedHash, Actual: digest}, apperrors.CategoryVerification, "integrity_mismatch", "the remote file differs from the declared hash", false)
	}

	if err := fsx.ReplaceFile(partPath, req.Destination); err != nil {
		return models.TransferResult{}, apperrors.Wrap(err, apperrors.CategoryIOFailure, "io_failure", "", false)
	}
	keep = true

	return models.TransferResult{
		Filename: filepath.Base(req.Destination),
		Path:     req.Destination,
		Size:     downloaded,
		Hash:     digest,
	}, nil
}

// open issues the GET and follows redirects up to the configured cap.
func (d *Downloader) open(ctx context.Context, rawURL string, onHop func()) (*http.Response, error) {
	current, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrTransferFailed, apperrors.CategoryInvalidInput, "invalid url %q: %v", rawURL, err)
	}
	for hops := 0; ; hops++ {
		if current.Scheme != "http" && current.Scheme != "https" {
			return nil, apperrors.Kind(apperrors.ErrTransferFailed, apperrors.CategoryInvalidInput, "unsupported scheme %q", current.Scheme)
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, current.String(), nil)
		if err != nil {
			return nil, apperrors.Kind(apperrors.ErrTransferFailed, apperrors.CategoryInvalidInput, "build request: %v", err)
		}
		httpReq.Header.Set("User-Agent", d.Options.UserAgent)

		resp, err := d.HttpClient.Do(httpReq)
		if err != nil {
			return nil, d.classify(ctx, ctx, err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return resp, nil
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
			location := resp.Header.Get("Location")
			drain(resp)
			if location == "" {
				return nil, statusError(current.String(), resp.StatusCode)
			}
			if hops >= d.Options.MaxRedirects {
				return nil, apperrors.Kind(apperrors.ErrTooManyRedirects, apperrors.CategoryNetworkPermanent, "more than %d redirects", d.Options.MaxRedirects)
			}
			next, err := current.Parse(location)
			if err != nil {
				return nil, apperrors.Kind(apperrors.ErrTransferFailed, apperrors.CategoryNetworkPermanent, "invalid redirect location %q", location)
			}
			logging.GlobalLogger.Debug("Following redirect " + strconv.Itoa(resp.StatusCode) + " to " + next.String())
			current = next
			onHop()
		default:
			drain(resp)
			return nil, statusError(current.String(), resp.StatusCode)
		}
	}
}

// classify maps transport failures onto the transfer error kinds.
func (d *Downloader) classify(parent, attempt context.Context, err error) error {
	cause := context.Cause(attempt)
	switch {
	case stderrors.Is(cause, errIdle), stderrors.Is(cause, context.DeadlineExceeded):
		return apperrors.Kind(apperrors.ErrTransferTimeout, apperrors.CategoryNetworkTransient, "no data for %s", d.Options.IdleTimeout)
	case stderrors.Is(cause, errCancelledKey), stderrors.Is(cause, context.Canceled), parent.Err() != nil:
		return apperrors.Wrap(apperrors.ErrTransferCancelled, apperrors.CategoryCancelled, "transfer_cancelled", "", false)
	}
	var netErr interface{ Timeout() bool }
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.Kind(apperrors.ErrTransferTimeout, apperrors.CategoryNetworkTransient, "%v", err)
	}
	return apperrors.Kind(apperrors.ErrTransferFailed, apperrors.CategoryNetworkTransient, "%v", err)
}

func statusError(u string, code int) error {
	retryable := code >= 500 || code == http.StatusTooManyRequests
	category := apperrors.CategoryNetworkPermanent
	if retryable {
		category = apperrors.CategoryNetworkTransient
	}
	return apperrors.Wrap(&apperrors.StatusError{URL: u, StatusCode: code}, category, "transfer_failed", "", retryable)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}

func (d *Downloader) register(key string, cancel context.CancelCauseFunc) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.active[key] = activeTransfer{id: d.nextID, cancel: cancel}
	return d.nextID
}

func (d *Downloader) unregister(key string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.active[key]; ok && cur.id == id {
		delete(d.active, key)
	}
}

// Cancel aborts the in-flight transfer registered under key.
func (d *Downloader) Cancel(key string) bool {
	d.mu.Lock()
	transfer, ok := d.active[key]
	d.mu.Unlock()
	if !ok {
		return false
	}
	logging.GlobalLogger.Info("Cancelling download " + key)
	transfer.cancel(errCancelledKey)
	return true
}

// CancelAll aborts every in-flight transfer and returns how many there were.
func (d *Downloader) CancelAll() int {
	d.mu.Lock()
	transfers := make([]activeTransfer, 0, len(d.active))
	for _, transfer := range d.active {
		transfers = append(transfers, transfer)
	}
	d.mu.Unlock()
	for _, transfer := range transfers {
		transfer.cancel(errCancelledKey)
	}
	return len(transfers)
}

// Active lists the keys of in-flight transfers.
func (d *Downloader) Active() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.active))
	for key := range d.active {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
