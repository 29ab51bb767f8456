package installer

import "github.com/Gojibodev/keklauncher/internal/models"

// ProgressHandler receives batch progress. ItemProgress may be called from
// several goroutines when the worker pool is enabled; OverallProgress calls
// are always serialized and completed rises by exactly one per call.
type ProgressHandler interface {
	ItemProgress(filename string, downloaded, total int64, percent float64)
	OverallProgress(completed, total int)
}

type NopHandler struct{}

func (NopHandler) ItemProgress(string, int64, int64, float64) {}
func (NopHandler) OverallProgress(int, int)                   {}

// HandlerFuncs adapts plain functions. Nil fields are ignored.
type HandlerFuncs struct {
	OnItem    func(filename string, downloaded, total int64, percent float64)
	OnOverall func(completed, total int)
}

func (h HandlerFuncs) ItemProgress(filename string, downloaded, total int64, percent float64) {
	if h.OnItem != nil {
		h.OnItem(filename, downloaded, total, percent)
	}
}

func (h HandlerFuncs) OverallProgress(completed, total int) {
	if h.OnOverall != nil {
		h.OnOverall(completed, total)
	}
}

// ----- functions for locking progress updates -----

func (p *InstallProgress) reset(total int) {
	p.mu.Lock()
	p.Total = total
	p.Completed, p.Succeeded, p.Failed, p.Skipped = 0, 0, 0, 0
	p.DownloadedBytes = 0
	p.mu.Unlock()
}

func (p *InstallProgress) IncrementDownloadedBytes(n int64) {
	p.mu.Lock()
	p.DownloadedBytes += n
	p.mu.Unlock()
}

func (p *InstallProgress) record(state ItemState) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Completed++
	switch state {
	case StateSucceeded:
		p.Succeeded++
	case StateFailed:
		p.Failed++
	case StateSkipped:
		p.Skipped++
	}
	return p.Completed
}

func (p *InstallProgress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ProgressSnapshot{
		Total:           p.Total,
		Completed:       p.Completed,
		Succeeded:       p.Succeeded,
		Failed:          p.Failed,
		Skipped:         p.Skipped,
		DownloadedBytes: p.DownloadedBytes,
	}
}

func assemble(outcomes []outcome, items []models.ModDescriptor) models.BatchResult {
	result := models.BatchResult{
		Successful: []models.TransferResult{},
		Failed:     []models.FailedItem{},
		Skipped:    []string{},
	}
	for i, o := range outcomes {
		switch o.state {
		case StateSucceeded:
			result.Successful = append(result.Successful, o.result)
		case StateSkipped:
			result.Skipped = append(result.Skipped, items[i].Filename)
		default:
			result.Failed = append(result.Failed, models.FailedItem{Filename: items[i].Filename, Error: o.err})
		}
	}
	return result
}
