// cmd/pagepack/serve.go
package main

import (
	"context"

	"github.com/spf13/cobra"

	"pagepack/internal/config"
	"pagepack/internal/report"
	"pagepack/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build in development mode, serve the result and rebuild on changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.loadProject()
			if err != nil {
				return err
			}
			log := a.logger()

			cfg, err := a.assemble(config.ModeDevelopment, p, log)
			if err != nil {
				return err
			}
			dev := *cfg.DevServer
			dev.Port = a.v.GetInt("port")

			build := func(ctx context.Context) (*report.Stats, error) {
				return a.build(ctx, config.ModeDevelopment, p, log)
			}
			return server.New(dev, []string{p.paths.Source, p.file}, build, log).Run(cmd.Context())
		},
	}
	cmd.Flags().IntP("port", "p", config.DevPort, "port to serve on")
	_ = a.v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}
