package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Watch polls the config file at path and calls onUpdate with every newly
// written config that loads cleanly. The caller has already done the initial
// Load. A file that fails to load is reported once per modification and the
// previous config stays in effect.
func Watch(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*Config)) error {
	if path == "" {
		path = DefaultPath
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "config").Str("path", path).Logger()
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	seen := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					l.Debug().Err(err).Msg("config stat failed")
					continue
				}
				if !info.ModTime().After(seen) {
					continue
				}
				seen = info.ModTime()

				cfg, err := Load(path)
				if err != nil {
					l.Error().Err(err).Time("modified", seen).Msg("config change rejected, keeping current settings")
					continue
				}
				l.Info().Time("modified", seen).Msg("config change detected")
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
