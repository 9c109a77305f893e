package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch clears the cache whenever the document changes on disk, so edits
// made by another process are visible before the cache TTL runs out. It
// returns once the watcher is running; the watcher stops when ctx is done or
// the storage is closed.
func (s *FileStorage) Watch(ctx context.Context) error {
	if err := os.MkdirAll(s.dataPath, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: the document is replaced by rename on every write
	if err := watcher.Add(s.dataPath); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dataPath, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.watchMu.Lock()
	if s.stopWatcher != nil {
		s.stopWatcher()
	}
	s.stopWatcher = cancel
	s.watchMu.Unlock()

	go s.watchLoop(ctx, watcher)
	return nil
}

func (s *FileStorage) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() { _ = watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != DocumentFileName {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				s.cache.Clear()
				s.logger.Debug("data file changed, cache cleared",
					zap.String("path", event.Name),
					zap.String("op", event.Op.String()))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("data file watcher error", zap.Error(err))
		}
	}
}
