package session

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// Driver executables under <root>/bin.
const (
	BinaryMac     = "chromedriver-mac"
	BinaryWindows = "chromedriver-win.exe"
	BinaryLinux   = "chromedriver-linux"
)

// Platform returns the host platform identifier.
func Platform() string {
	return runtime.GOOS
}

// ResolveBinaryPath picks the driver executable. A non-empty override is
// returned as is. Otherwise "darwin" selects the macOS build, any platform
// starting with "win" (case-insensitive) the Windows build and everything
// else the Linux build, all under root/bin.
func ResolveBinaryPath(platform, root, override string) string {
	if override != "" {
		return override
	}

	name := BinaryLinux
	switch {
	case strings.EqualFold(platform, "darwin"):
		name = BinaryMac
	case len(platform) >= 3 && strings.EqualFold(platform[:3], "win"):
		name = BinaryWindows
	}
	return filepath.Join(root, "bin", name)
}

// ResolveRootDir returns dir, or the current working directory when dir is
// empty. The result holds bin/ and is the driver's working directory.
func ResolveRootDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("session: resolve root directory: %w", err)
	}
	return wd, nil
}

// DefaultArgs returns the browser flags used when none are given.
func DefaultArgs() []string {
	return []string{"--disable-gpu", "--headless", "--no-sandbox"}
}

// ResolveArgs returns args, or DefaultArgs when args is empty. Explicit
// args replace the defaults entirely.
func ResolveArgs(args []string) []string {
	if len(args) == 0 {
		return DefaultArgs()
	}
	return slices.Clone(args)
}
