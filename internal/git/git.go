// Package git lists PHP files that changed in a repository by shelling out to
// the git CLI, and reads repository metadata for the audit log. It never
// writes to the repository.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// validateRoot validates and normalizes a git repository root path.
func validateRoot(root string) (string, error) {
	if strings.ContainsRune(root, 0) {
		return "", fmt.Errorf("invalid path: contains null byte")
	}
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("cannot access path %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", root)
	}
	return abs, nil
}

func output(ctx context.Context, root string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", root}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

// RepoMetadata returns (repo, commit, branch) best-effort for the given root.
// It reads the repository directly and works without a git binary. Empty
// strings are returned on failure; a detached HEAD reports branch "HEAD".
func RepoMetadata(root string) (string, string, string) {
	validRoot, err := validateRoot(root)
	if err != nil {
		return "", "", ""
	}
	r, err := gogit.PlainOpenWithOptions(validRoot, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", "", ""
	}

	repo := ""
	if remote, err := r.Remote("origin"); err == nil && len(remote.Config().URLs) > 0 {
		repo = repoSlug(remote.Config().URLs[0])
	}
	commit, branch := "", ""
	if head, err := r.Head(); err == nil {
		commit = head.Hash().String()
		branch = "HEAD"
		if head.Name().IsBranch() {
			branch = head.Name().Short()
		}
	}
	return repo, commit, branch
}

// repoSlug trims a remote URL down to owner/name for GitHub remotes and to
// the path after the host otherwise.
func repoSlug(url string) string {
	s := strings.TrimSuffix(strings.TrimSpace(url), ".git")
	if i := strings.Index(s, "github.com/"); i >= 0 {
		return s[i+len("github.com/"):]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimPrefix(s, "//")
}

// StagedFiles returns the staged (index) content of every added, copied or
// modified file. Deleted paths are left out.
func StagedFiles(ctx context.Context, root string) ([]string, [][]byte, error) {
	validRoot, err := validateRoot(root)
	if err != nil {
		return nil, nil, err
	}
	out, err := output(ctx, validRoot, "diff", "--name-only", "--cached", "--diff-filter=ACMR", "-z")
	if err != nil {
		return nil, nil, err
	}
	paths := splitNUL(out)
	data := make([][]byte, 0, len(paths))
	for _, p := range paths {
		b, err := output(ctx, validRoot, "show", ":"+p)
		if err != nil {
			b = []byte{}
		}
		data = append(data, b)
	}
	return paths, data, nil
}

// ChangedFiles returns paths that differ between base and the working tree,
// excluding deletions. Content is read by the caller from disk.
func ChangedFiles(ctx context.Context, root, base string) ([]string, error) {
	validRoot, err := validateRoot(root)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(base, "-") {
		return nil, fmt.Errorf("invalid base ref %q", base)
	}
	out, err := output(ctx, validRoot, "diff", "--name-only", "--diff-filter=ACMR", "-z", base, "--")
	if err != nil {
		return nil, err
	}
	return splitNUL(out), nil
}

func splitNUL(b []byte) []string {
	var out []string
	for _, p := range strings.Split(string(b), "\x00") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
