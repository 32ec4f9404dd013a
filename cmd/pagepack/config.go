// cmd/pagepack/config.go
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the assembled configuration for --mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := a.mode()
			if err != nil {
				return err
			}
			p, err := a.loadProject()
			if err != nil {
				return err
			}
			cfg, err := a.assemble(mode, p, a.logger())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(cfg); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			default:
				return fmt.Errorf("unknown format %q: want yaml or json", format)
			}
		},
	}
	cmd.Flags().StringP("format", "f", "yaml", "output format (yaml or json)")
	return cmd
}
