package downloader

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
)

const (
	payload       = "hello world"
	payloadDigest = "5eb63bbbe01eeed093cb22bb8f5acdc3"
)

func newTestDownloader() *Downloader {
	opts := DefaultOptions()
	opts.IdleTimeout = 2 * time.Second
	opts.RetryBackoff = 10 * time.Millisecond
	return NewDownloader(opts)
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent, stat err=%v", path, err)
	}
	if _, err := os.Stat(path + partSuffix); !os.IsNotExist(err) {
		t.Fatalf("expected no partial file for %s, stat err=%v", path, err)
	}
}

func TestFetchWritesFileAndReportsProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "deep", "nested", "a.jar")
	var calls int
	var last [2]int64
	var lastPercent float64
	d := newTestDownloader()
	res, err := d.Fetch(context.Background(), Request{
		URL:          srv.URL + "/a.jar",
		Destination:  dest,
		ExpectedHash: strings.ToUpper(payloadDigest),
		OnProgress: func(downloaded, total int64, percent float64) {
			calls++
			last = [2]int64{downloaded, total}
			lastPercent = percent
		},
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Hash != payloadDigest || res.Size != int64(len(payload)) || res.Filename != "a.jar" {
		t.Fatalf("unexpected result %+v", res)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != payload {
		t.Fatalf("unexpected file content %q err=%v", data, err)
	}
	if calls == 0 || last[0] != int64(len(payload)) || last[1] != int64(len(payload)) || lastPercent != 100 {
		t.Fatalf("unexpected progress calls=%d last=%v percent=%v", calls, last, lastPercent)
	}
	if len(d.Active()) != 0 {
		t.Fatalf("expected registry to be empty, got %v", d.Active())
	}
}

func TestFetchUnknownLengthReportsZeroPercent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	var percents []float64
	var totals []int64
	_, err := newTestDownloader().Fetch(context.Background(), Request{
		URL:         srv.URL,
		Destination: filepath.Join(t.TempDir(), "a.jar"),
		OnProgress: func(downloaded, total int64, percent float64) {
			percents = append(percents, percent)
			totals = append(totals, total)
		},
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	for i := range percents {
		if percents[i] != 0 || totals[i] != 0 {
			t.Fatalf("expected zero total and percent, got total=%d percent=%v", totals[i], percents[i])
		}
	}
}

func TestFetchFollowsRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, srv.URL+"/middle", http.StatusMovedPermanently)
		case "/middle":
			w.Header().Set("Location", "/final")
			w.WriteHeader(http.StatusFound)
		case "/final":
			_, _ = w.Write([]byte(payload))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.jar")
	if _, err := newTestDownloader().Fetch(context.Background(), Request{URL: srv.URL + "/start", Destination: dest, ExpectedHash: payloadDigest}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func redirectChain(t *testing.T, hops int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(strings.TrimPrefix(r.URL.Path, "/"), "%d", &n)
		if n < hops {
			http.Redirect(w, r, fmt.Sprintf("/%d", n+1), http.StatusFound)
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
}

func TestFetchRedirectCap(t *testing.T) {
	ok := redirectChain(t, 10)
	defer ok.Close()
	if _, err := newTestDownloader().Fetch(context.Background(), Request{URL: ok.URL + "/0", Destination: filepath.Join(t.TempDir(), "a.jar")}); err != nil {
		t.Fatalf("ten redirects must succeed: %v", err)
	}

	tooMany := redirectChain(t, 11)
	defer tooMany.Close()
	dest := filepath.Join(t.TempDir(), "b.jar")
	_, err := newTestDownloader().Fetch(context.Background(), Request{URL: tooMany.URL + "/0", Destination: dest})
	if !stderrors.Is(err, apperrors.ErrTooManyRedirects) {
		t.Fatalf("expected too many redirects, got %v", err)
	}
	assertNoFile(t, dest)
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.jar")
	_, err := newTestDownloader().Fetch(context.Background(), Request{URL: srv.URL, Destination: dest})
	if !stderrors.Is(err, apperrors.ErrTransferFailed) {
		t.Fatalf("expected transfer failed, got %v", err)
	}
	if apperrors.StatusCodeOf(err) != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", apperrors.StatusCodeOf(err))
	}
	assertNoFile(t, dest)
}

func TestFetchIntegrityMismatchRemovesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.jar")
	if err := os.WriteFile(dest, []byte("old build"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := newTestDownloader().Fetch(context.Background(), Request{URL: srv.URL, Destination: dest, ExpectedHash: "00000000000000000000000000000000"})
	if !stderrors.Is(err, apperrors.ErrIntegrityMismatch) {
		t.Fatalf("expected integrity mismatch, got %v", err)
	}
	var mismatch *apperrors.MismatchError
	if !stderrors.As(err, &mismatch) || mismatch.Actual != payloadDigest {
		t.Fatalf("expected mismatch detail, got %v", err)
	}
	assertNoFile(t, dest)
}

func TestFetchTruncatedBodyLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a.jar")
	_, err := newTestDownloader().Fetch(context.Background(), Request{URL: srv.URL, Destination: dest})
	if err == nil {
		t.Fatal("expected error for truncated body")
	}
	if !stderrors.Is(err, apperrors.ErrTransferFailed) {
		t.Fatalf("expected transfer failed, got %v", err)
	}
	assertNoFile(t, dest)
}

func TestFetchIdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.IdleTimeout = 150 * time.Millisecond
	d := NewDownloader(opts)
	dest := filepath.Join(t.TempDir(), "slow.jar")
	_, err := d.Fetch(context.Background(), Request{URL: srv.URL, Destination: dest})
	if !stderrors.Is(err, apperrors.ErrTransferTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	assertNoFile(t, dest)
}

func TestCancelByKey(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	d := newTestDownloader()
	if d.Cancel("nothing.jar") {
		t.Fatal("cancel of unknown key must report false")
	}

	dest := filepath.Join(t.TempDir(), "big.jar")
	var once sync.Once
	_, err := d.Fetch(context.Background(), Request{
		URL:         srv.URL,
		Destination: dest,
		OnProgress: func(int64, int64, float64) {
			once.Do(func() {
				if !d.Cancel("big.jar") {
					t.Error("expected in-flight transfer to be cancellable")
				}
			})
		},
	})
	if !stderrors.Is(err, apperrors.ErrTransferCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	assertNoFile(t, dest)
}

func TestCancelAll(t *testing.T) {
	started := make(chan struct{}, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("x"))
		w.(http.Flusher).Flush()
		started <- struct{}{}
		<-r.Context().Done()
	}))
	defer srv.Close()

	d := newTestDownloader()
	dir := t.TempDir()
	errs := make(chan error, 2)
	for _, name := range []string{"a.jar", "b.jar"} {
		go func(name string) {
			_, err := d.Fetch(context.Background(), Request{URL: srv.URL, Destination: filepath.Join(dir, name)})
			errs <- err
		}(name)
	}
	<-started
	<-started
	deadline := time.Now().Add(2 * time.Second)
	for len(d.Active()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := d.CancelAll(); n != 2 {
		t.Fatalf("expected 2 cancelled, got %d", n)
	}
	for i := 0; i < 2; i++ {
		if err := <-errs; !stderrors.Is(err, apperrors.ErrTransferCancelled) {
			t.Fatalf("expected cancelled, got %v", err)
		}
	}
}

func TestRetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	d := newTestDownloader()
	d.Options.MaxRetries = 2
	if _, err := d.Fetch(context.Background(), Request{URL: srv.URL, Destination: filepath.Join(t.TempDir(), "a.jar")}); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", hits.Load())
	}
}

func TestRejectsUnsupportedScheme(t *testing.T) {
	_, err := newTestDownloader().Fetch(context.Background(), Request{URL: "ftp://example.com/a.jar", Destination: filepath.Join(t.TempDir(), "a.jar")})
	if !stderrors.Is(err, apperrors.ErrTransferFailed) {
		t.Fatalf("expected transfer failed, got %v", err)
	}
}
