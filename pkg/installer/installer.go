package installer

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Gojibodev/keklauncher/internal/fsx"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/catalog"
	"github.com/Gojibodev/keklauncher/pkg/downloader"
)

const cancelledMessage = "cancelled"

func NewInstaller(dir string, fetcher Fetcher, resolver catalog.Resolver, workers int) *Installer {
	if workers < 1 {
		workers = 1
	}
	return &Installer{
		Dir:      dir,
		Workers:  workers,
		LockWait: 2 * time.Second,
		Fetcher:  fetcher,
		Resolver: resolver,
	}
}

// RunBatch downloads items into the installation directory. Item failures
// are recorded, never returned; every item ends up in exactly one of the
// result lists. The error is only set when the batch could not start.
func (inst *Installer) RunBatch(ctx context.Context, items []models.ModDescriptor, handler ProgressHandler, onlyNew bool) (models.BatchResult, error) {
	if handler == nil {
		handler = NopHandler{}
	}
	release, err := fsx.LockDir(inst.Dir, inst.LockWait)
	if err != nil {
		return models.BatchResult{}, err
	}
	defer release()

	runCtx, cancel := context.WithCancel(ctx)
	inst.setCancel(cancel)
	defer func() {
		inst.setCancel(nil)
		cancel()
	}()

	total := len(items)
	logging.GlobalLogger.Info(fmt.Sprintf("Starting batch of %d mods into %s (workers=%d, onlyNew=%v)", total, inst.Dir, inst.Workers, onlyNew))
	inst.Progress.reset(total)

	states := newStateTable(total)
	outcomes := make([]outcome, total)
	var overallMu sync.Mutex
	finish := func(i int, o outcome) {
		outcomes[i] = o
		overallMu.Lock()
		completed := inst.Progress.record(o.state)
		handler.OverallProgress(completed, total)
		overallMu.Unlock()
	}

	process := func(i int) {
		finish(i, inst.processItem(runCtx, states, i, items[i], handler, onlyNew))
	}

	if inst.Workers <= 1 || total <= 1 {
		for i := range items {
			process(i)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < min(inst.Workers, total); w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					process(i)
				}
			}()
		}
		for i := range items {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	result := assemble(outcomes, items)
	logging.GlobalLogger.Info(fmt.Sprintf("Batch finished: %d succeeded, %d failed, %d skipped", len(result.Successful), len(result.Failed), len(result.Skipped)))
	return result, nil
}

func (inst *Installer) processItem(ctx context.Context, states *stateTable, i int, item models.ModDescriptor, handler ProgressHandler, onlyNew bool) outcome {
	move := func(from, to ItemState) {
		if err := states.transition(i, from, to); err != nil {
			logging.GlobalLogger.Error(err.Error())
		}
	}
	fail := func(from ItemState, msg string) outcome {
		move(from, StateFailed)
		logging.GlobalLogger.Warn("Failed " + item.Filename + ": " + msg)
		return outcome{state: StateFailed, err: msg}
	}

	if ctx.Err() != nil {
		return fail(StatePending, cancelledMessage)
	}
	if err := validFilename(item.Filename); err != nil {
		return fail(StatePending, err.Error())
	}

	dest := filepath.Join(inst.Dir, item.Filename)
	if onlyNew && fsx.Exists(dest) {
		move(StatePending, StateSkipped)
		logging.GlobalLogger.Debug("Skipping existing " + item.Filename)
		return outcome{state: StateSkipped}
	}

	move(StatePending, StateDownloading)
	source, expected, err := inst.source(ctx, item)
	if err != nil {
		return fail(StateDownloading, err.Error())
	}

	var last int64
	res, err := inst.Fetcher.Fetch(ctx, downloader.Request{
		Key:          item.Filename,
		URL:          source,
		Destination:  dest,
		ExpectedHash: expected,
		OnProgress: func(downloaded, total int64, percent float64) {
			inst.Progress.IncrementDownloadedBytes(downloaded - last)
			last = downloaded
			handler.ItemProgress(item.Filename, downloaded, total, percent)
		},
	})
	if err != nil {
		return fail(StateDownloading, err.Error())
	}
	move(StateDownloading, StateSucceeded)
	return outcome{state: StateSucceeded, result: res}
}

// source picks the URL and expected digest for an item, asking the catalog
// when the manifest carries no URL.
func (inst *Installer) source(ctx context.Context, item models.ModDescriptor) (string, string, error) {
	if item.URL != "" {
		return item.URL, item.Hash, nil
	}
	if inst.Resolver == nil || item.CurseForgeID == 0 {
		return "", "", fmt.Errorf("no download url for %s", item.Filename)
	}
	resolved, err := inst.Resolver.ResolveDownload(ctx, item.CurseForgeID, inst.GameVersion)
	if err != nil {
		return "", "", fmt.Errorf("resolve mod %s: %w", strconv.FormatInt(item.CurseForgeID, 10), err)
	}
	expected := item.Hash
	if expected == "" {
		expected = resolved.Hash
	}
	return resolved.URL, expected, nil
}

func validFilename(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid filename %q", name)
	}
	return nil
}
