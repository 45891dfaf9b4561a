package lint

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

var versionLine = regexp.MustCompile(`^PHP (\d+\.\d+\.\d+)`)

// Find locates the php binary: the custom path when given, otherwise $PATH.
func Find(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		return "", fmt.Errorf("custom php path not found: %s", customPath)
	}
	if p, err := exec.LookPath("php"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("php binary not found in PATH")
}

// Version runs `php -v` and returns the version number, e.g. "8.2.7".
func Version(ctx context.Context, binaryPath string) (string, error) {
	out, err := exec.CommandContext(ctx, binaryPath, "-n", "-v").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get php version: %w", err)
	}
	first, _, _ := strings.Cut(string(out), "\n")
	m := versionLine.FindStringSubmatch(strings.TrimSpace(first))
	if m == nil {
		return "", fmt.Errorf("unrecognized php version output: %q", first)
	}
	return m[1], nil
}
