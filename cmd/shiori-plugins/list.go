package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shiori-reader/shiori/internal/plugin"
)

// NewListCmd creates the list subcommand.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed extensions",
		Long: `List every extension found under the extensions directory,
with its identifier, version, capability, and author.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			descs, err := plugin.Discover(cfg.PluginsDir, nil)
			if err != nil {
				return err
			}
			if len(descs) == 0 {
				cmd.Printf("no extensions found in %s\n", cfg.PluginsDir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVERSION\tCAPABILITY\tAUTHOR\tNAME")
			for _, d := range descs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					d.ID, d.Version, d.Capability, d.Author, d.Name)
			}
			return w.Flush()
		},
	}
}
