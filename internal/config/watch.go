package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the file at path whenever it is written and calls onChange
// with the new configuration, with f applied on top. It blocks until ctx is
// done. Reload errors are logged and the previous configuration stays in
// effect.
func Watch(ctx context.Context, path string, f *Flags, log *zap.Logger, onChange func(*Config)) error {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors replace files on save, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			cfg := Default()
			if err := loadFromFile(cfg, path); err != nil {
				log.Warn("reload config", zap.String("path", path), zap.Error(err))
				continue
			}
			f.apply(cfg)
			if err := cfg.expandPaths(); err != nil {
				log.Warn("reload config", zap.String("path", path), zap.Error(err))
				continue
			}
			log.Info("config reloaded", zap.String("path", path))
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher", zap.Error(err))
		}
	}
}
