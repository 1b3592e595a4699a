package main

import (
	"github.com/spf13/cobra"

	"github.com/shiori-reader/shiori/internal/plugin"
)

// NewLibsCmd creates the libs subcommand group.
func NewLibsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "libs",
		Short: "Manage the shared library pool",
	}
	cmd.AddCommand(newLibsListCmd())
	cmd.AddCommand(newLibsAddCmd())
	cmd.AddCommand(newLibsRemoveCmd())
	return cmd
}

func newLibsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List modules in the shared pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			lib := plugin.NewLibraryCollection(cfg.PluginsDir)
			names := lib.ListAvailable()
			if len(names) == 0 {
				cmd.Println("shared pool is empty")
				return nil
			}
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}
}

func newLibsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <module>",
		Short: "Copy a module into the shared pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			lib := plugin.NewLibraryCollection(cfg.PluginsDir)
			if err := lib.Add(args[0]); err != nil {
				return err
			}
			cmd.Printf("added %s\n", args[0])
			return nil
		},
	}
}

func newLibsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove the first pool module whose name contains <name>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			lib := plugin.NewLibraryCollection(cfg.PluginsDir)
			lib.Scan()
			if err := lib.Remove(args[0]); err != nil {
				return err
			}
			cmd.Printf("removed %s\n", args[0])
			return nil
		},
	}
}
