package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"Enter", KeyEnter},
		{"enter", KeyEnter},
		{"down", KeyArrowDown},
		{" ArrowDown ", KeyArrowDown},
		{"ESC", KeyEscape},
		{"tab", KeyTab},
	}
	for _, tt := range tests {
		got, err := ParseKey(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseKey("F13")
	assert.Error(t, err)
}

func TestKeyTablesCoverKnownKeys(t *testing.T) {
	for _, k := range knownKeys {
		_, rodOK := rodKeys[k]
		_, cdpOK := chromedpKeys[k]
		assert.True(t, rodOK, "rod missing %s", k)
		assert.True(t, cdpOK, "chromedp missing %s", k)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewSelectsEngine(t *testing.T) {
	cfg := DefaultConfig()

	s, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &RodScreen{}, s)

	cfg.Engine = "ChromeDP"
	s, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &ChromedpScreen{}, s)

	cfg.Engine = "playwright"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestConfigFallbacks(t *testing.T) {
	var cfg Config
	assert.Equal(t, 1920, cfg.GetViewportWidth())
	assert.Equal(t, 1080, cfg.GetViewportHeight())
	assert.Equal(t, 60*time.Second, cfg.NavigationTimeout())
}

func TestOperationsBeforeOpenFail(t *testing.T) {
	ctx := context.Background()
	r := NewRodScreen(DefaultConfig())
	_, err := r.Capture(ctx)
	assert.Error(t, err)
	assert.Error(t, r.Click(ctx, 1, 1))

	c := NewChromedpScreen(DefaultConfig())
	_, err = c.Capture(ctx)
	assert.Error(t, err)
	assert.Error(t, c.Press(ctx, KeyEnter))
	assert.NoError(t, c.Close())
}
