// internal/browser/allocator.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/flowrunner/internal/config"
)

// allocatorFlags translates the browser config into Chrome command-line
// flags. A value of false removes a flag set by the chromedp defaults.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		// chromedp.DefaultExecAllocatorOptions turns headless on; be explicit either way.
		"headless": cfg.Headless,
		// Recommended for stability in containers/headless envs.
		"disable-dev-shm-usage": true,
	}
	if cfg.Headless {
		flags["hide-scrollbars"] = true
		flags["mute-audio"] = true
	}
	if cfg.NoSandbox {
		flags["no-sandbox"] = true
	}
	if cfg.DisableGPU {
		flags["disable-gpu"] = true
	}
	if cfg.Proxy != "" {
		flags["proxy-server"] = cfg.Proxy
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight)
	}

	// Add additional flags from the config file's 'args' slice.
	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		// Handle boolean flags (e.g., --no-zygote)
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			flags[key] = true
			continue
		}
		flags[key] = value
	}
	return flags
}

// execAllocatorOptions builds the chromedp allocator options for a local launch.
func execAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}
