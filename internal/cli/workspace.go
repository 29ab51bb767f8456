package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Gojibodev/keklauncher/internal/models"
	"github.com/Gojibodev/keklauncher/pkg/preflight"
)

var (
	wsName             string
	wsVersion          string
	wsMinecraftVersion string
	wsAuthor           string
	wsDescription      string
	wsRAM              string
	wsExportZip        bool
	wsGameVersion      string
)

// metadataFromFlags sets only the flags the user gave.
func metadataFromFlags(cmd *cobra.Command) models.Metadata {
	var md models.Metadata
	set := func(flag string, value string, dst **string) {
		if cmd.Flags().Changed(flag) {
			v := value
			*dst = &v
		}
	}
	set("name", wsName, &md.Name)
	set("pack-version", wsVersion, &md.Version)
	set("minecraft", wsMinecraftVersion, &md.MinecraftVersion)
	set("author", wsAuthor, &md.Author)
	set("description", wsDescription, &md.Description)
	set("ram", wsRAM, &md.RequiredRAM)
	return md
}

func addMetadataFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&wsName, "name", "", "display name")
	cmd.Flags().StringVar(&wsVersion, "pack-version", "", "modpack version")
	cmd.Flags().StringVar(&wsMinecraftVersion, "minecraft", "", "Minecraft version")
	cmd.Flags().StringVar(&wsAuthor, "author", "", "author")
	cmd.Flags().StringVar(&wsDescription, "description", "", "description")
	cmd.Flags().StringVar(&wsRAM, "ram", "", "required RAM, e.g. 6G")
}

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Author modpacks in workspaces",
}

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			list, err := a.workspaces.List()
			if err != nil {
				return err
			}
			for _, w := range list {
				fmt.Printf("  %-20s %s v%s, %d mods\n", w.ID, w.Name, w.Version, w.ModCount)
			}
			return nil
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create an empty workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if _, err := a.workspaces.Create(args[0], metadataFromFlags(cmd)); err != nil {
				return err
			}
			fmt.Println("Created " + a.workspaces.Path(args[0]))
			return nil
		},
	}
	addMetadataFlags(createCmd)

	importCmd := &cobra.Command{
		Use:   "import <source-dir> <id>",
		Short: "Create a workspace from an existing game directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			m, folders, err := a.workspaces.Import(cmd.Context(), args[0], args[1], metadataFromFlags(cmd))
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d mods (%s loader), folders %v\n", len(m.Mods), m.Modloader.Type, folders)
			return nil
		},
	}
	addMetadataFlags(importCmd)

	updateCmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Update workspace metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			m, err := a.workspaces.UpdateMetadata(args[0], metadataFromFlags(cmd))
			if err != nil {
				return err
			}
			return printJSON(m)
		},
	}
	addMetadataFlags(updateCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return a.workspaces.Delete(args[0])
		},
	}

	addFolderCmd := &cobra.Command{
		Use:   "add-folder <id> <folder>",
		Short: "Add a folder to the workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			_, err = a.workspaces.AddFolder(args[0], args[1])
			return err
		},
	}

	addFileCmd := &cobra.Command{
		Use:   "add-file <id> <folder> <path>",
		Short: "Copy a file into a workspace folder",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			_, err = a.workspaces.AddFile(cmd.Context(), args[0], args[1], args[2])
			return err
		},
	}

	installerCmd := &cobra.Command{
		Use:   "set-installer <id> <path>",
		Short: "Attach a modloader installer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			inst, err := a.workspaces.SetInstaller(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Installer %s (%s)\n", inst.Filename, inst.Type)
			return nil
		},
	}

	addURLCmd := &cobra.Command{
		Use:   "add-url <id> <url>",
		Short: "Download a mod from a URL into the workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			p := newProgressPrinter(os.Stdout, false)
			res, err := a.workspaces.AddModFromURL(cmd.Context(), args[0], args[1], func(downloaded, total int64, percent float64) {
				p.ItemProgress(args[1], downloaded, total, percent)
			})
			if err != nil {
				return err
			}
			fmt.Printf("\nAdded %s (%s)\n", res.Filename, preflight.HumanBytes(uint64(res.Size)))
			return nil
		},
	}

	addModCmd := &cobra.Command{
		Use:   "add-mod <id> <mod-id>...",
		Short: "Add mods from the catalog by id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args)-1)
			for _, raw := range args[1:] {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid mod id %q", raw)
				}
				ids = append(ids, id)
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			res, err := a.workspaces.AddModsFromCatalog(cmd.Context(), args[0], ids, wsGameVersion, nil)
			if err != nil {
				return err
			}
			for _, r := range res.Results {
				if r.Error != "" {
					fmt.Printf("  %d failed: %s\n", r.ModID, r.Error)
					continue
				}
				fmt.Printf("  %d -> %s\n", r.ModID, r.Filename)
			}
			fmt.Printf("%d added, %d failed\n", res.Successful, res.Failed)
			return nil
		},
	}
	addModCmd.Flags().StringVar(&wsGameVersion, "minecraft", "", "game version (default: the workspace's)")

	refreshCmd := &cobra.Command{
		Use:   "refresh <id>",
		Short: "Rescan the mods folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			m, err := a.workspaces.RefreshMods(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%d mods\n", len(m.Mods))
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Publish a workspace as an installable modpack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			res, err := a.workspaces.Export(args[0], wsExportZip)
			if err != nil {
				return err
			}
			fmt.Println("Exported to " + res.Path)
			if res.ZipPath != "" {
				fmt.Println("Archive " + res.ZipPath)
			}
			fmt.Println("Fingerprint " + res.Fingerprint)
			return nil
		},
	}
	exportCmd.Flags().BoolVar(&wsExportZip, "zip", false, "also write a zip archive")

	workspaceCmd.AddCommand(listCmd, createCmd, importCmd, updateCmd, deleteCmd, addFolderCmd, addFileCmd,
		installerCmd, addURLCmd, addModCmd, refreshCmd, exportCmd)
	rootCmd.AddCommand(workspaceCmd)
}
