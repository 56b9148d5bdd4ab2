//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"formfill/internal/browser"

	"github.com/stretchr/testify/require"
)

const formPage = `<html><body style="margin:0">
<input id="name" style="position:absolute;left:10px;top:10px;width:200px;height:30px">
<input id="file" type="file" style="position:absolute;left:10px;top:60px;width:200px;height:30px">
<div style="height:4000px"></div>
</body></html>`

func engines() []string {
	return []string{browser.EngineRod, browser.EngineChromedp}
}

func TestScreen_FillAndUpload_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, formPage)
	}))
	defer ts.Close()

	upload := filepath.Join(t.TempDir(), "image_0.jpg")
	require.NoError(t, os.WriteFile(upload, []byte("jpeg"), 0644))

	for _, engine := range engines() {
		t.Run(engine, func(t *testing.T) {
			cfg := browser.DefaultConfig()
			cfg.Engine = engine
			cfg.Headless = true
			cfg.ViewportWidth = 800
			cfg.ViewportHeight = 600
			cfg.NavigationTimeoutMs = 15000

			screen, err := browser.New(cfg)
			require.NoError(t, err)
			defer func() {
				if err := screen.Close(); err != nil {
					t.Logf("Close error: %v", err)
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			require.NoError(t, screen.Open(ctx, ts.URL))
			require.NoError(t, screen.WaitReady(ctx))

			img, err := screen.Capture(ctx)
			require.NoError(t, err)
			require.Equal(t, 800, img.Bounds().Dx())

			require.NoError(t, screen.Click(ctx, 100, 25))
			require.NoError(t, screen.Type(ctx, "Ada", 0))
			require.NoError(t, screen.Press(ctx, browser.KeyTab))

			chooseCtx, chooseCancel := context.WithTimeout(ctx, 5*time.Second)
			defer chooseCancel()
			require.NoError(t, screen.ClickAndChooseFile(chooseCtx, 100, 75, upload))

			require.NoError(t, screen.Scroll(ctx, -1000))
		})
	}
}
