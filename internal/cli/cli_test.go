package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestWorkspaceToModpackFlow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("KEK_HOME", home)

	if err := runCLI(t, "workspace", "create", "kek", "--name", "Kek Pack", "--ram", "6G"); err != nil {
		t.Fatal(err)
	}
	jar := filepath.Join(t.TempDir(), "sodium-0.5.3.jar")
	if err := os.WriteFile(jar, []byte("sodium"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := runCLI(t, "workspace", "add-file", "kek", "mods", jar); err != nil {
		t.Fatal(err)
	}
	if err := runCLI(t, "workspace", "export", "kek", "--zip"); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"kek.json", "kek.kekpack", "kek.zip"} {
		if _, err := os.Stat(filepath.Join(home, "modpacks", name)); err != nil {
			t.Fatalf("missing export artifact %s", name)
		}
	}
	if err := runCLI(t, "modpack", "list"); err != nil {
		t.Fatal(err)
	}
	if err := runCLI(t, "modpack", "compare", "kek"); err != nil {
		t.Fatal(err)
	}
	if err := runCLI(t, "modpack", "show", "ghost"); err == nil {
		t.Fatal("unknown modpack must fail")
	}
	if err := runCLI(t, "workspace", "add-mod", "kek", "abc"); err == nil || !strings.Contains(err.Error(), "invalid mod id") {
		t.Fatalf("expected invalid mod id, got %v", err)
	}
}

func TestMetadataFromFlagsOnlySetsChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	addMetadataFlags(cmd)
	if err := cmd.ParseFlags([]string{"--author", "me"}); err != nil {
		t.Fatal(err)
	}
	md := metadataFromFlags(cmd)
	if md.Author == nil || *md.Author != "me" {
		t.Fatalf("author not set: %+v", md)
	}
	if md.Name != nil || md.Version != nil || md.RequiredRAM != nil {
		t.Fatalf("unchanged flags must stay nil: %+v", md)
	}
}

func TestProgressPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := &progressPrinter{out: &buf, width: 80}
	p.ItemProgress("a.jar", 5, 10, 50)
	p.OverallProgress(1, 2)
	p.OverallProgress(2, 2)
	if got := buf.String(); got != "[1/2]\n[2/2]\n" {
		t.Fatalf("output %q", got)
	}
}
