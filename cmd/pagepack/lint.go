// cmd/pagepack/lint.go
package main

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"pagepack/internal/config"
	"pagepack/internal/lint"
	"pagepack/internal/report"
)

func (a *app) lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Run the lint rules over the project's scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.loadProject()
			if err != nil {
				return err
			}
			cfg, err := a.assemble(config.ModeProduction, p, a.logger())
			if err != nil {
				return err
			}
			rule, _, ok := cfg.Loader(config.LoaderLint)
			if !ok {
				return nil
			}
			test, err := regexp.Compile(rule.Test)
			if err != nil {
				return err
			}
			var exclude *regexp.Regexp
			if rule.Exclude != "" {
				if exclude, err = regexp.Compile(rule.Exclude); err != nil {
					return err
				}
			}

			findings, err := lint.DefaultConfig(a.development()).Dir(cfg.Context, test, exclude)
			if err != nil {
				return err
			}
			errs := 0
			for _, f := range findings {
				if f.Severity == report.SeverityError {
					errs++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%d  %s  %s  %s\n", f.File, f.Line, f.Severity, f.Message, f.Rule)
			}
			if errs > 0 {
				return fmt.Errorf("%d lint errors", errs)
			}
			return nil
		},
	}
}
