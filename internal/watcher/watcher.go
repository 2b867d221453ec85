package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Tushar2380/docuAi/internal/app"
	"github.com/Tushar2380/docuAi/internal/model"
)

// Ingestor is the slice of the document service the watcher needs.
type Ingestor interface {
	Ingest(ctx context.Context, userID string, item app.UploadItem) (*model.File, error)
}

// Watcher ingests files dropped under <dir>/<tenant>/<file> without going
// through the HTTP API. The tenant directory name must satisfy the same key
// rule the HTTP boundary enforces. Only create events are acted on; files
// already present at startup are left alone so restarts do not re-ingest a
// corpus.
type Watcher struct {
	dir    string
	docs   Ingestor
	logger *zap.Logger

	fs     *fsnotify.Watcher
	done   chan struct{}
	wg     sync.WaitGroup
	settle time.Duration
}

func New(dir string, docs Ingestor, logger *zap.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watch dir failed: %w", err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher failed: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("watch dir failed: %w", err)
	}

	// Existing tenant subdirectories need their own watch.
	entries, err := os.ReadDir(dir)
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("read watch dir failed: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if !app.ValidUserID(entry.Name()) {
			logger.Warn("ignoring tenant dir with invalid name",
				zap.String("dir", entry.Name()))
			continue
		}
		if err := fs.Add(filepath.Join(dir, entry.Name())); err != nil {
			logger.Warn("watch tenant dir failed",
				zap.String("dir", entry.Name()), zap.Error(err))
		}
	}

	return &Watcher{
		dir:    dir,
		docs:   docs,
		logger: logger,
		fs:     fs,
		done:   make(chan struct{}),
		settle: 200 * time.Millisecond,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
	w.logger.Info("drop-directory watcher started", zap.String("dir", w.dir))
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				w.handleCreate(ctx, event.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleCreate(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if filepath.Dir(path) != w.dir {
			return
		}
		if !app.ValidUserID(filepath.Base(path)) {
			w.logger.Warn("ignoring tenant dir with invalid name",
				zap.String("path", path))
			return
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("watch new tenant dir failed",
				zap.String("path", path), zap.Error(err))
		}
		return
	}

	tenantDir := filepath.Dir(path)
	if tenantDir == w.dir {
		// Files directly in the root have no tenant; ignore them.
		return
	}
	tenant := filepath.Base(tenantDir)
	if !app.ValidUserID(tenant) {
		w.logger.Warn("ignoring file under invalid tenant dir",
			zap.String("path", path))
		return
	}

	// The settle wait and the ingest run off the event loop so one slow file
	// never stalls other events.
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.ingest(ctx, tenant, path)
	}()
}

func (w *Watcher) ingest(ctx context.Context, tenant, path string) {
	// Give the writer a moment to finish before reading the file.
	select {
	case <-ctx.Done():
		return
	case <-time.After(w.settle):
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("read dropped file failed",
			zap.String("path", path), zap.Error(err))
		return
	}

	filename := filepath.Base(path)
	file, err := w.docs.Ingest(ctx, tenant, app.UploadItem{Filename: filename, Data: data})
	if err != nil {
		if errors.Is(err, app.ErrUnsupportedFormat) {
			w.logger.Debug("skipping unsupported dropped file",
				zap.String("path", path))
			return
		}
		w.logger.Error("ingest dropped file failed",
			zap.String("user_id", tenant), zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("dropped file ingested",
		zap.String("user_id", tenant),
		zap.String("filename", filename),
		zap.Uint("file_id", file.ID))
}

func (w *Watcher) Close() {
	_ = w.fs.Close()
	<-w.done
	w.wg.Wait()
}
