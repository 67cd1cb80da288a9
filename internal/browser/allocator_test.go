// internal/browser/allocator_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/flowrunner/internal/config"
)

func TestAllocatorFlags(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.BrowserConfig
		present map[string]interface{}
		absent  []string
	}{
		{
			name: "headed browser turns headless off explicitly",
			cfg:  config.BrowserConfig{Headless: false},
			present: map[string]interface{}{
				"headless":              false,
				"disable-dev-shm-usage": true,
			},
			absent: []string{"hide-scrollbars", "mute-audio", "no-sandbox", "disable-gpu", "proxy-server", "window-size"},
		},
		{
			name: "headless with sandbox and gpu disabled",
			cfg:  config.BrowserConfig{Headless: true, NoSandbox: true, DisableGPU: true},
			present: map[string]interface{}{
				"headless":        true,
				"hide-scrollbars": true,
				"mute-audio":      true,
				"no-sandbox":      true,
				"disable-gpu":     true,
			},
		},
		{
			name: "proxy and window size",
			cfg:  config.BrowserConfig{Proxy: "http://127.0.0.1:8080", WindowWidth: 1280, WindowHeight: 800},
			present: map[string]interface{}{
				"proxy-server": "http://127.0.0.1:8080",
				"window-size":  "1280,800",
			},
		},
		{
			name:   "window size needs both dimensions",
			cfg:    config.BrowserConfig{WindowWidth: 1280},
			absent: []string{"window-size"},
		},
		{
			name: "extra args as booleans and key=value pairs",
			cfg:  config.BrowserConfig{Args: []string{"--no-zygote", "lang=es-ES", "  ", "--", "--headless=new"}},
			present: map[string]interface{}{
				"no-zygote": true,
				"lang":      "es-ES",
				"headless":  "new",
			},
			absent: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := allocatorFlags(tt.cfg)
			for k, v := range tt.present {
				assert.Equal(t, v, flags[k], "flag %q", k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, flags, k)
			}
		})
	}
}

func TestExecAllocatorOptions(t *testing.T) {
	base := len(execAllocatorOptions(config.BrowserConfig{}))

	withExtras := execAllocatorOptions(config.BrowserConfig{ExecPath: "/opt/chrome/chrome", UserAgent: "flowrunner-test"})
	assert.Equal(t, base+2, len(withExtras), "exec path and user agent each add one option")
}
