package verifier

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// md5("hello world")
const helloDigest = "5eb63bbbe01eeed093cb22bb8f5acdc3"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDigestKnownValues(t *testing.T) {
	got, err := Digest(strings.NewReader("hello world"))
	if err != nil {
		t.Fatal(err)
	}
	if got != helloDigest {
		t.Fatalf("digest = %s, want %s", got, helloDigest)
	}
	empty, _ := Digest(strings.NewReader(""))
	if empty != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("unexpected empty digest %s", empty)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.jar", "hello world")

	ok, err := Verify(path, helloDigest)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, _ = Verify(path, strings.ToUpper(helloDigest))
	if !ok {
		t.Fatal("expected case-insensitive match")
	}
	ok, _ = Verify(path, "00000000000000000000000000000000")
	if ok {
		t.Fatal("expected mismatch")
	}
	ok, err = Verify(filepath.Join(dir, "missing.jar"), helloDigest)
	if ok || err != nil {
		t.Fatalf("expected false without error for missing file, got ok=%v err=%v", ok, err)
	}
}

func TestVerifierPoolHashesAllFiles(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.jar", "b.jar", "c.jar", "d.jar", "e.jar"}
	for _, n := range names {
		writeFile(t, dir, n, "hello world")
	}

	v := NewVerifier(3, len(names)+1)
	for i, n := range names {
		v.EnqueueFile(n, filepath.Join(dir, n), i)
	}
	seen := map[string]bool{}
	for range names {
		out := <-v.GetOutputChannel()
		if out.Err != nil {
			t.Fatalf("hash %s: %v", out.Name, out.Err)
		}
		if out.Digest != helloDigest || out.Size != 11 {
			t.Fatalf("unexpected output %+v", out)
		}
		seen[out.Name] = true
	}
	v.Stop()
	if len(seen) != len(names) {
		t.Fatalf("expected %d results, got %d", len(names), len(seen))
	}
}

func TestVerifierPoolReportsUnreadable(t *testing.T) {
	v := NewVerifier(1, 1)
	v.EnqueueFile("ghost.jar", filepath.Join(t.TempDir(), "ghost.jar"), nil)
	out := <-v.GetOutputChannel()
	v.Stop()
	if out.Err == nil || out.Digest != "" {
		t.Fatalf("expected error for missing file, got %+v", out)
	}
}
