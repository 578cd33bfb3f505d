// internal/browser/default_allocator_options_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/locator-cli/internal/config"
)

// flagValue looks up a launch switch by name. The last occurrence wins, as on the Chrome command line.
func flagValue(flags []launchFlag, name string) (interface{}, bool) {
	var (
		value interface{}
		found bool
	)
	for _, f := range flags {
		if f.name == name {
			value, found = f.value, true
		}
	}
	return value, found
}

func TestDefaultAllocatorOptions(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Browser()
		flags := launchFlags(cfg)

		v, ok := flagValue(flags, "headless")
		assert.True(t, ok)
		assert.Equal(t, true, v)
		v, _ = flagValue(flags, "window-size")
		assert.Equal(t, "1366,768", v)
		_, ok = flagValue(flags, "no-sandbox")
		assert.True(t, ok)
		assert.Len(t, AllocatorOptions(cfg), len(flags))
	})

	t.Run("HeadlessDisabled", func(t *testing.T) {
		flags := launchFlags(config.BrowserConfig{Headless: false})
		_, ok := flagValue(flags, "headless")
		assert.False(t, ok)
		_, ok = flagValue(flags, "hide-scrollbars")
		assert.False(t, ok)
		assert.NotEmpty(t, AllocatorOptions(config.BrowserConfig{}))
	})

	t.Run("UserAgent", func(t *testing.T) {
		v, ok := flagValue(launchFlags(config.BrowserConfig{UserAgent: "locator-test/1.0"}), "user-agent")
		assert.True(t, ok)
		assert.Equal(t, "locator-test/1.0", v)
	})

	t.Run("WithCustomArgs", func(t *testing.T) {
		cfg := config.BrowserConfig{
			Args: []string{"--custom-arg1", "--lang=de-DE", "--no-sandbox=false", "--", ""},
		}
		flags := launchFlags(cfg)

		v, ok := flagValue(flags, "custom-arg1")
		assert.True(t, ok)
		assert.Equal(t, true, v)
		v, _ = flagValue(flags, "lang")
		assert.Equal(t, "de-DE", v)
		v, _ = flagValue(flags, "no-sandbox")
		assert.Equal(t, false, v, "user args override defaults")
		_, ok = flagValue(flags, "")
		assert.False(t, ok, "empty args are dropped")
	})

	t.Run("WithViewport", func(t *testing.T) {
		cfg := config.BrowserConfig{
			Viewport: map[string]int{
				"width":  1920,
				"height": 1080,
			},
		}
		v, ok := flagValue(launchFlags(cfg), "window-size")
		assert.True(t, ok)
		assert.Equal(t, "1920,1080", v)

		cfg.Viewport["height"] = 0
		_, ok = flagValue(launchFlags(cfg), "window-size")
		assert.False(t, ok, "partial viewport is ignored")
	})
}
