package shared

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

var goosName = func() string { return runtime.GOOS }

// OpenBrowser launches the default browser for an http or https URL and
// returns without waiting for it to exit.
//
// Supports macOS, Linux, and Windows.
func OpenBrowser(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("refusing to open non-http url %q", url)
	}

	name, args := browserCommand(goosName(), url)
	if name == "" {
		return fmt.Errorf("unsupported platform: %s", goosName())
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "linux":
		return "xdg-open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", url}
	}

	return "", nil
}
