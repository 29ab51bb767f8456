package installer

import "github.com/Gojibodev/keklauncher/internal/logging"

func (inst *Installer) setCancel(cancel func()) {
	inst.mu.Lock()
	inst.cancel = cancel
	inst.mu.Unlock()
}

// CancelRemaining stops the running batch: the in-flight transfer is aborted
// and every item not yet started is recorded as failed. Reports whether a
// batch was running.
func (inst *Installer) CancelRemaining() bool {
	inst.mu.Lock()
	cancel := inst.cancel
	inst.mu.Unlock()
	if cancel == nil {
		return false
	}
	logging.GlobalLogger.Info("Cancelling remaining items in " + inst.Dir)
	cancel()
	return true
}

// CancelItem aborts a single in-flight transfer; the batch moves on.
func (inst *Installer) CancelItem(filename string) bool {
	return inst.Fetcher.Cancel(filename)
}

// Running reports whether a batch is in progress.
func (inst *Installer) Running() bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.cancel != nil
}
