package fetcher

import (
	"os"
	"path/filepath"
)

// automationMaskJS runs before any page script and hides the most common
// automation markers.
const automationMaskJS = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
`

// edgeCandidates lists the usual Microsoft Edge install locations.
func edgeCandidates() []string {
	var paths []string
	for _, env := range []string{"ProgramFiles(x86)", "ProgramFiles", "LOCALAPPDATA"} {
		if dir := os.Getenv(env); dir != "" {
			paths = append(paths, filepath.Join(dir, "Microsoft", "Edge", "Application", "msedge.exe"))
		}
	}
	return append(paths,
		"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		"/usr/bin/microsoft-edge",
		"/usr/bin/microsoft-edge-stable",
	)
}

// findBrowserBin returns configured if set, else the first Edge install found.
// An empty result lets rod locate or download Chromium.
func findBrowserBin(configured string, candidates []string) string {
	if configured != "" {
		return configured
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
