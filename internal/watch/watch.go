// Package watch re-runs a callback when .php files under a root change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/phpguard/phpguard/internal/logging"
)

// DefaultDebounce is the quiet period after the last event before a rescan.
const DefaultDebounce = 300 * time.Millisecond

// Options configures Run.
type Options struct {
	Debounce time.Duration
	// SkipDir reports whether a directory (slash-separated, relative to the
	// root) is left unwatched.
	SkipDir func(rel string) bool
	Logger  hclog.Logger
	// Ready, when set, is closed once the initial watches are in place.
	Ready chan<- struct{}
}

// Run watches root until ctx is done and calls trigger after each burst of
// .php changes. Events for other files are ignored so the scan's own cache
// and report files never re-trigger it. New directories are watched as they
// appear. trigger runs on the Run goroutine; a burst arriving while it runs
// is coalesced into one more call.
func Run(ctx context.Context, root string, opts Options, trigger func(context.Context)) error {
	log := logging.OrNull(opts.Logger).Named("watch")
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addRecursive(w, root, opts.SkipDir, log); err != nil {
		return err
	}
	if opts.Ready != nil {
		close(opts.Ready)
	}

	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) {
				if skip(opts.SkipDir, root, ev.Name) {
					continue
				}
				dir := ev.Name
				_ = addRecursive(w, dir, func(rel string) bool {
					return skip(opts.SkipDir, root, filepath.Join(dir, rel))
				}, log)
				timer.Reset(opts.Debounce)
				continue
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".php") || ev.Op == fsnotify.Chmod {
				continue
			}
			log.Debug("change", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(opts.Debounce)
		case <-timer.C:
			trigger(ctx)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func addRecursive(w *fsnotify.Watcher, dir string, skipDir func(string) bool, log hclog.Logger) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(dir, p)
		rel = filepath.ToSlash(rel)
		if rel != "." && skipDir != nil && skipDir(rel) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			log.Debug("cannot watch", "dir", p, "error", err)
		}
		return nil
	})
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func skip(skipDir func(string) bool, root, p string) bool {
	if skipDir == nil {
		return false
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return skipDir(filepath.ToSlash(rel))
}
