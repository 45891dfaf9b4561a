package engine

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/phpguard/phpguard/internal/ignore"
)

// Walk traverses cfg.Root in lexical order and invokes handle for each
// eligible .php file with its slash-separated path relative to the root.
// Unreadable entries are skipped.
func Walk(ctx context.Context, cfg Config, ign ignore.Matcher, handle func(rel string, data []byte)) error {
	return filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil
		}
		rel, relErr := relPath(cfg.Root, p)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if p == cfg.Root {
				return nil
			}
			if skipDir(rel, cfg, ign) {
				return filepath.SkipDir
			}
			return nil
		}
		if !eligible(rel, cfg, ign) || !d.Type().IsRegular() {
			return nil
		}
		info, _ := d.Info()
		if info != nil && cfg.MaxBytes > 0 && info.Size() > cfg.MaxBytes {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		handle(rel, b)
		return nil
	})
}

func relPath(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func skipDir(rel string, cfg Config, ign ignore.Matcher) bool {
	return (cfg.DefaultExcludes && isDefaultDirExcluded(path.Base(rel))) || ign.Match(rel+"/")
}

// DirSkipper returns the directory filter used by Walk for cfg, including the
// root's ignore file. rel is slash-separated and relative to cfg.Root.
func DirSkipper(cfg Config) (func(rel string) bool, error) {
	ign, err := ignore.LoadOptional(filepath.Join(cfg.Root, ignore.FileName))
	if err != nil {
		return nil, err
	}
	return func(rel string) bool { return skipDir(rel, cfg, ign) }, nil
}

func eligible(rel string, cfg Config, ign ignore.Matcher) bool {
	return isPHP(rel) && allowedByGlobs(rel, cfg) && !ign.Match(rel)
}

// CountTargets estimates the number of files a directory scan would check.
// It mirrors the selection in Walk without reading file contents.
func CountTargets(cfg Config) (int, error) {
	ign, err := ignore.LoadOptional(filepath.Join(cfg.Root, ignore.FileName))
	if err != nil {
		return 0, err
	}
	count := 0
	err = filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := relPath(cfg.Root, p)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if p == cfg.Root {
				return nil
			}
			if skipDir(rel, cfg, ign) {
				return filepath.SkipDir
			}
			return nil
		}
		if !eligible(rel, cfg, ign) || !d.Type().IsRegular() {
			return nil
		}
		if info, _ := d.Info(); info != nil && cfg.MaxBytes > 0 && info.Size() > cfg.MaxBytes {
			return nil
		}
		count++
		return nil
	})
	return count, err
}
