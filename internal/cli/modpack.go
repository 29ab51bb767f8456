package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/modpack"
	"github.com/Gojibodev/keklauncher/pkg/preflight"
)

var (
	downloadOnlyNew bool
	syncPrune       bool
	quietProgress   bool
)

var modpackCmd = &cobra.Command{
	Use:     "modpack",
	Aliases: []string{"mp"},
	Short:   "Install and inspect modpacks",
}

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available modpacks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			packs, err := a.modpacks.Available()
			if err != nil {
				return err
			}
			if len(packs) == 0 {
				fmt.Println("No modpacks in " + a.modpacks.ConfigDir)
			}
			for _, p := range packs {
				fmt.Printf("  %-20s %s v%s (Minecraft %s)\n", p.ID, p.Name, p.Version, p.MinecraftVersion)
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a modpack manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			m, err := a.modpacks.Load(args[0])
			if err != nil {
				return err
			}
			return printJSON(m)
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare <id>",
		Short: "Compare a modpack with its installation directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			cmp, err := a.modpacks.Compare(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printComparison(cmp)
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats <id>",
		Short: "Show installation statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			stats, err := a.modpacks.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Installed: %d mods, %s\n", stats.TotalMods, preflight.HumanBytes(uint64(stats.TotalSize)))
			fmt.Printf("Up to date: %d  Outdated: %d  Missing: %d  Extra: %d\n", stats.UpToDate, stats.Outdated, stats.Missing, stats.Extra)
			return nil
		},
	}

	downloadCmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download every mod of a modpack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			res, err := a.modpacks.Download(ctx, args[0], downloadOnlyNew, newProgressPrinter(os.Stdout, quietProgress))
			if err != nil {
				return err
			}
			printBatch(res)
			return batchError(res)
		},
	}
	downloadCmd.Flags().BoolVar(&downloadOnlyNew, "only-new", false, "skip files that already exist")

	syncCmd := &cobra.Command{
		Use:   "sync <id>",
		Short: "Download missing and outdated mods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			res, err := a.modpacks.Sync(ctx, args[0], modpack.SyncOptions{PruneExtra: syncPrune}, newProgressPrinter(os.Stdout, quietProgress))
			if err != nil {
				return err
			}
			printBatch(res.Batch)
			for _, name := range res.Pruned {
				fmt.Println("  removed " + name)
			}
			return batchError(res.Batch)
		},
	}
	syncCmd.Flags().BoolVar(&syncPrune, "prune", false, "delete installed mods the manifest does not list")

	importCmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Fetch a manifest (JSON or .kekpack) and make it available",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			m, err := a.modpacks.ImportRemote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Imported %s (%d mods)\n", m.ID, len(m.Mods))
			return nil
		},
	}

	deleteModCmd := &cobra.Command{
		Use:   "delete-mod <id> <filename>",
		Short: "Remove one installed mod",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			deleted, err := a.modpacks.DeleteMod(args[0], args[1])
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Println(args[1] + " is not installed")
			}
			return nil
		},
	}

	preflightCmd := &cobra.Command{
		Use:   "preflight <id>",
		Short: "Check RAM and disk space for a modpack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			report, err := a.modpacks.Preflight(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if report.OK() {
				fmt.Println("All checks passed")
			}
			for _, w := range report.Warnings {
				fmt.Println("  warning: " + w)
			}
			return nil
		},
	}

	for _, c := range []*cobra.Command{downloadCmd, syncCmd} {
		c.Flags().BoolVarP(&quietProgress, "quiet", "q", false, "no live progress")
	}
	modpackCmd.AddCommand(listCmd, showCmd, compareCmd, statsCmd, downloadCmd, syncCmd, importCmd, deleteModCmd, preflightCmd)
	rootCmd.AddCommand(modpackCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printComparison(cmp models.ReconciliationResult) {
	for _, m := range cmp.Missing {
		fmt.Println("  missing   " + m.Filename)
	}
	for _, m := range cmp.Outdated {
		fmt.Println("  outdated  " + m.Filename)
	}
	for _, m := range cmp.Extra {
		fmt.Println("  extra     " + m.Filename)
	}
	fmt.Printf("%d up to date, %d outdated, %d missing, %d extra\n", len(cmp.UpToDate), len(cmp.Outdated), len(cmp.Missing), len(cmp.Extra))
}

func printBatch(res models.BatchResult) {
	for _, f := range res.Failed {
		fmt.Println("  failed " + f.Filename + ": " + f.Error)
	}
	fmt.Printf("%d downloaded, %d skipped, %d failed\n", len(res.Successful), len(res.Skipped), len(res.Failed))
}

func batchError(res models.BatchResult) error {
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d of %d mods failed", len(res.Failed), res.Total())
	}
	return nil
}

