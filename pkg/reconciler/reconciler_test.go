package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Gojibodev/keklauncher/internal/models"
)

const (
	helloDigest = "5eb63bbbe01eeed093cb22bb8f5acdc3" // md5("hello world")
	otherDigest = "99914b932bd37a50b983c5e7c90ae93b" // md5("{}")
)

func newReconciler(t *testing.T) *Reconciler {
	t.Helper()
	r, err := New(nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func names(mods []models.ModDescriptor) []string {
	out := []string{}
	for _, m := range mods {
		out = append(out, m.Filename)
	}
	return out
}

// Nothing installed yet: every declared mod is missing.
func TestReconcileMissingDirectory(t *testing.T) {
	mods := []models.ModDescriptor{
		{Filename: "a.jar", Hash: helloDigest},
		{Filename: "b.jar", Hash: otherDigest},
	}
	res, err := newReconciler(t).Reconcile(context.Background(), mods, filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !reflect.DeepEqual(names(res.Missing), []string{"a.jar", "b.jar"}) {
		t.Fatalf("unexpected missing %v", names(res.Missing))
	}
	if len(res.Outdated)+len(res.UpToDate)+len(res.Extra) != 0 {
		t.Fatalf("expected only missing entries, got %+v", res)
	}
}

// One current, one stale, one stray and one unrelated file.
func TestReconcileMixedState(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.jar", "hello world")
	write(t, dir, "b.jar", "stale")
	write(t, dir, "c.jar", "stray")
	write(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub.jar"), 0o755); err != nil {
		t.Fatal(err)
	}

	mods := []models.ModDescriptor{
		{Filename: "a.jar", Hash: helloDigest},
		{Filename: "b.jar", Hash: otherDigest},
	}
	res, err := newReconciler(t).Reconcile(context.Background(), mods, dir)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !reflect.DeepEqual(names(res.UpToDate), []string{"a.jar"}) {
		t.Fatalf("unexpected upToDate %v", names(res.UpToDate))
	}
	if len(res.Outdated) != 1 || res.Outdated[0].Filename != "b.jar" {
		t.Fatalf("unexpected outdated %+v", res.Outdated)
	}
	if res.Outdated[0].CurrentHash == "" || res.Outdated[0].CurrentHash == otherDigest {
		t.Fatalf("expected current hash of stale file, got %q", res.Outdated[0].CurrentHash)
	}
	if len(res.Extra) != 1 || res.Extra[0].Filename != "c.jar" {
		t.Fatalf("unexpected extra %+v", res.Extra)
	}
	if len(res.Missing) != 0 {
		t.Fatalf("unexpected missing %v", names(res.Missing))
	}
}

// An empty manifest claims nothing, so every jar is extra.
func TestReconcileEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "z.jar", "z")
	write(t, dir, "x.jar", "x")

	res, err := newReconciler(t).Reconcile(context.Background(), nil, dir)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(res.Extra) != 2 || res.Extra[0].Filename != "x.jar" || res.Extra[1].Filename != "z.jar" {
		t.Fatalf("expected sorted extras, got %+v", res.Extra)
	}
	if len(res.Missing)+len(res.Outdated)+len(res.UpToDate) != 0 {
		t.Fatalf("unexpected classification %+v", res)
	}
}

func TestReconcileWithoutDeclaredHashIsUpToDate(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.jar", "anything")
	res, err := newReconciler(t).Reconcile(context.Background(), []models.ModDescriptor{{Filename: "a.jar"}}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.UpToDate) != 1 {
		t.Fatalf("expected up to date, got %+v", res)
	}
}

func TestReconcileIsCaseSensitiveAndHashCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "A.jar", "hello world")
	write(t, dir, "b.jar", "hello world")
	mods := []models.ModDescriptor{
		{Filename: "a.jar", Hash: helloDigest},
		{Filename: "b.jar", Hash: "5EB63BBBE01EEED093CB22BB8F5ACDC3"},
	}
	res, err := newReconciler(t).Reconcile(context.Background(), mods, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names(res.Missing), []string{"a.jar"}) {
		t.Fatalf("expected a.jar missing, got %v", names(res.Missing))
	}
	if !reflect.DeepEqual(names(res.UpToDate), []string{"b.jar"}) {
		t.Fatalf("expected b.jar up to date, got %v", names(res.UpToDate))
	}
	if len(res.Extra) != 1 || res.Extra[0].Filename != "A.jar" {
		t.Fatalf("expected A.jar extra, got %+v", res.Extra)
	}
}

func TestReconcilePartitionAndIdempotence(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.jar", "hello world")
	write(t, dir, "b.jar", "b")
	write(t, dir, "d.jar", "d")
	mods := []models.ModDescriptor{
		{Filename: "a.jar", Hash: helloDigest},
		{Filename: "b.jar", Hash: helloDigest},
		{Filename: "c.jar"},
	}
	r := newReconciler(t)
	first, err := r.Reconcile(context.Background(), mods, dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(first.Missing) + len(first.Outdated) + len(first.UpToDate); got != len(mods) {
		t.Fatalf("partition covers %d of %d entries", got, len(mods))
	}
	second, err := r.Reconcile(context.Background(), mods, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reconcile is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestCustomPatterns(t *testing.T) {
	r, err := New([]string{"*.jar", "*.zip"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Matches("pack.zip") || r.Matches("readme.md") {
		t.Fatal("unexpected pattern matching")
	}
}

func TestReconcileFollowsSymlinkedArtifacts(t *testing.T) {
	dir := t.TempDir()
	store := t.TempDir()
	write(t, store, "a.jar", "hello world")
	if err := os.Symlink(filepath.Join(store, "a.jar"), filepath.Join(dir, "a.jar")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(store, "gone.jar"), filepath.Join(dir, "dangling.jar")); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.jar"), 0o755); err != nil {
		t.Fatal(err)
	}

	mods := []models.ModDescriptor{{Filename: "a.jar", Hash: helloDigest}}
	res, err := newReconciler(t).Reconcile(context.Background(), mods, dir)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !reflect.DeepEqual(names(res.UpToDate), []string{"a.jar"}) {
		t.Fatalf("linked jar must be up to date, got %+v", res)
	}
	if len(res.Missing)+len(res.Outdated)+len(res.Extra) != 0 {
		t.Fatalf("dangling links and directories must be ignored, got %+v", res)
	}
}
