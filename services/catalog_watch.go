package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const catalogReloadDebounce = 250 * time.Millisecond

// LoadCatalogFile imports the catalog workbook at path.
func LoadCatalogFile(path string) ([]CatalogEntry, CatalogImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, CatalogImportStats{}, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	return ImportCatalogWorkbook(f)
}

// WatchCatalog reloads store whenever the workbook at path is written or
// replaced. It blocks until ctx is done. The parent directory is watched so
// editors that save by rename are picked up.
func WatchCatalog(ctx context.Context, path string, store *CatalogStore, log *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve catalog path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch catalog dir: %w", err)
	}

	reload := func() {
		entries, stats, err := LoadCatalogFile(abs)
		if err != nil {
			log.Warn("catalog reload failed", zap.String("path", abs), zap.Error(err))
			return
		}
		store.Replace(entries)
		log.Info("catalog reloaded", zap.String("path", abs), zap.Int("entries", len(entries)), zap.Int("skipped", stats.Skipped))
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(catalogReloadDebounce, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("catalog watcher error", zap.Error(err))
		}
	}
}
