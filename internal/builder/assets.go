// internal/builder/assets.go
package builder

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pagepack/internal/config"
	"pagepack/internal/report"
)

// copyAssets copies every Copy pattern from the source tree into the build
// directory. A missing source directory is a warning, not an error.
func (b *Builder) copyAssets(ctx context.Context, stats *report.Stats) error {
	for _, plugin := range config.FindAll[config.Copy](b.cfg.Plugins) {
		for _, pattern := range plugin.Patterns {
			if err := ctx.Err(); err != nil {
				return err
			}
			from := filepath.Join(b.cfg.Context, pattern.From)
			if _, err := os.Stat(from); errors.Is(err, os.ErrNotExist) {
				stats.AddWarning(report.BuildError{
					Name:    "CopyWarning",
					File:    pattern.From,
					Message: "unable to locate source directory",
				})
				continue
			}
			if err := b.copyTree(stats, from, pattern.To); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) copyTree(stats *report.Stats, from, to string) error {
	return filepath.Walk(from, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		target := filepath.ToSlash(filepath.Join(to, rel))
		dest := filepath.Join(b.outDir, filepath.FromSlash(target))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		dst, err := os.Create(dest)
		if err != nil {
			return err
		}
		defer dst.Close()
		n, err := io.Copy(dst, src)
		if err != nil {
			return err
		}
		stats.AddAsset(target, int(n))
		return nil
	})
}
