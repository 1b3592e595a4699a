package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shiori-reader/shiori/internal/plugin"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Validate an extension directory's manifest",
		Long: `Validate the manifest of one extension directory against the
manifest schema and the descriptor's required fields, printing the
resolved descriptor on success.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}

			dir := args[0]
			data, err := os.ReadFile(filepath.Join(dir, plugin.ManifestFileName))
			if err != nil {
				return err
			}

			if err := plugin.ValidateSchema(data); err != nil {
				return fmt.Errorf("manifest schema: %s", plugin.FormatSchemaError(err))
			}

			desc, err := plugin.ResolveDirectoryManifest(data, dir)
			if err != nil {
				return err
			}

			cmd.Printf("valid: %s\n", desc)
			cmd.Printf("  id:          %s\n", desc.ID)
			cmd.Printf("  capability:  %s\n", desc.Capability)
			cmd.Printf("  entry point: %s\n", desc.EntryPoint)
			if desc.Exec != "" {
				cmd.Printf("  exec:        %s\n", desc.Exec)
			}
			if len(desc.Dependencies) > 0 {
				cmd.Printf("  depends on:  %v\n", desc.Dependencies)
			}
			cmd.Printf("  api:         %v\n", desc.APIVersions)
			return nil
		},
	}
}
