// cmd/pagepack/build.go
package main

import (
	"github.com/spf13/cobra"
)

func (a *app) buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Assemble the configuration for --mode and build the project",
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
			_, err = a.build(cmd.Context(), mode, p, a.logger())
			return err
		},
	}
}
