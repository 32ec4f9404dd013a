// cmd/pagepack/new.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pagepack/internal/scaffold"
)

func (a *app) newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <dir>",
		Short: "Scaffold a starter project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			return scaffold.CreateNewProject(args[0], title, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("title", "", "site title (default is the directory name)")
	return cmd
}

func (a *app) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <title>",
		Short: "Create a markdown view from the project's archetype",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadProject()
			if err != nil {
				return err
			}
			path, err := scaffold.CreateNewView(p.root, p.paths, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Created:", path)
			return nil
		},
	}
}
