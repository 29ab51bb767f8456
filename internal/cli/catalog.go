package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchGameVersion string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the mod catalog",
}

func init() {
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			mods, err := a.catalog.Search(cmd.Context(), strings.Join(args, " "), searchGameVersion)
			if err != nil {
				return err
			}
			if len(mods) == 0 {
				fmt.Println("No matches")
			}
			for _, m := range mods {
				fmt.Printf("  %-8d %s - %s\n", m.ID, m.Name, m.Summary)
			}
			return nil
		},
	}
	searchCmd.Flags().StringVar(&searchGameVersion, "minecraft", "", "filter by game version")
	catalogCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(catalogCmd)
}
