package cli

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/tessera/pkg/codec"
	"github.com/aretw0/tessera/pkg/domain"
)

// ScriptEngine is the part of the engine the watcher reloads.
type ScriptEngine interface {
	Register(ctx context.Context, s *domain.Script) error
	Unregister(ctx context.Context, id string) error
}

// Watcher reloads a scripts directory whenever its files change.
type Watcher struct {
	engine ScriptEngine
	dir    string
	logger *slog.Logger

	fingerprint string
	loaded      map[string]bool
}

// NewWatcher creates a watcher for dir. Scripts already registered from
// dir are taken over on the first reload.
func NewWatcher(engine ScriptEngine, dir string, logger *slog.Logger) *Watcher {
	return &Watcher{engine: engine, dir: dir, logger: logger, loaded: make(map[string]bool)}
}

// Run polls the directory every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	fp, err := fingerprint(w.dir)
	if err != nil {
		return err
	}
	w.fingerprint = fp
	if scripts, err := codec.ReadDir(w.dir); err == nil {
		for _, s := range scripts {
			w.loaded[s.ID] = true
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Reload(ctx); err != nil {
				w.logger.Warn("script reload failed", "dir", w.dir, "err", err)
			}
		}
	}
}

// Reload re-registers the directory if any file changed since the last
// call. Scripts whose documents disappeared are unregistered. It reports
// whether a reload happened.
func (w *Watcher) Reload(ctx context.Context) (bool, error) {
	fp, err := fingerprint(w.dir)
	if err != nil {
		return false, err
	}
	if fp == w.fingerprint {
		return false, nil
	}
	scripts, err := codec.ReadDir(w.dir)
	if err != nil {
		return false, err
	}
	// A broken document is retried on the next change only.
	w.fingerprint = fp

	var errs []error
	seen := make(map[string]bool, len(scripts))
	for _, s := range scripts {
		seen[s.ID] = true
		if err := w.engine.Register(ctx, s); err != nil {
			errs = append(errs, err)
			continue
		}
		w.loaded[s.ID] = true
	}
	for id := range w.loaded {
		if seen[id] {
			continue
		}
		if err := w.engine.Unregister(ctx, id); err != nil && !errors.Is(err, domain.ErrScriptNotFound) {
			errs = append(errs, err)
			continue
		}
		delete(w.loaded, id)
	}
	w.logger.Info("scripts reloaded", "dir", w.dir, "count", len(scripts))
	return true, errors.Join(errs...)
}

// fingerprint hashes the path, size and modification time of every script
// document under dir.
func fingerprint(dir string) (string, error) {
	h := md5.New()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if _, ok := codec.FormatFor(path); !ok || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s|%d|%d\n", path, info.Size(), info.ModTime().UnixNano())
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
