package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestWrapRoundTrip(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, CategoryIOFailure, "io_write_failed", "check directory permissions", true)
	if err == nil {
		t.Fatal("expected wrapped error")
	}
	if CategoryOf(err) != CategoryIOFailure {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
	if CodeOf(err) != "io_write_failed" {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if HintOf(err) != "check directory permissions" {
		t.Fatalf("unexpected hint: %s", HintOf(err))
	}
	if !RetryableOf(err) {
		t.Fatal("expected retryable true")
	}
	if !stderrors.Is(err, base) {
		t.Fatal("expected wrapped error to preserve cause")
	}
}

func TestUnknownErrorDefaults(t *testing.T) {
	err := stderrors.New("plain")
	if CategoryOf(err) != "" || CodeOf(err) != "" || HintOf(err) != "" || RetryableOf(err) {
		t.Fatalf("unexpected classification for plain error")
	}
	if Wrap(nil, CategoryInternalFailure, "x", "", false) != nil {
		t.Fatal("expected nil for nil cause")
	}
}

func TestKindMatchesSentinel(t *testing.T) {
	err := Kind(ErrWorkspaceNotFound, CategoryNotFound, "workspace %q", "pack")
	if !stderrors.Is(err, ErrWorkspaceNotFound) {
		t.Fatalf("expected workspace not found, got %v", err)
	}
	if CodeOf(err) != "workspace_not_found" {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if CategoryOf(err) != CategoryNotFound {
		t.Fatalf("unexpected category: %s", CategoryOf(err))
	}
}

func TestStatusErrorCarriesCode(t *testing.T) {
	err := fmt.Errorf("fetch: %w", Wrap(&StatusError{URL: "http://x", StatusCode: 404}, CategoryNetworkPermanent, "transfer_failed", "", false))
	if !stderrors.Is(err, ErrTransferFailed) {
		t.Fatal("expected status error to match ErrTransferFailed")
	}
	if StatusCodeOf(err) != 404 {
		t.Fatalf("expected 404, got %d", StatusCodeOf(err))
	}
	if StatusCodeOf(stderrors.New("x")) != 0 {
		t.Fatal("expected 0 for plain error")
	}
}

func TestMismatchError(t *testing.T) {
	err := &MismatchError{Expected: "aa", Actual: "bb"}
	if !stderrors.Is(err, ErrIntegrityMismatch) {
		t.Fatal("expected integrity mismatch")
	}
	if err.Error() != "Hash mismatch: expected aa, got bb" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
