package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"formfill/internal/logging"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/disintegration/imaging"
)

// ChromedpScreen is the chromedp-backed Screen.
type ChromedpScreen struct {
	cfg       Config
	mu        sync.Mutex
	allocCanc context.CancelFunc
	ctx       context.Context
	ctxCanc   context.CancelFunc
}

// NewChromedpScreen creates a screen; the browser starts lazily on Open.
func NewChromedpScreen(cfg Config) *ChromedpScreen {
	return &ChromedpScreen{cfg: cfg}
}

func (s *ChromedpScreen) ensureConnected() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		if err := chromedp.Run(s.ctx); err == nil {
			return s.ctx, nil
		}
		logging.BrowserWarn("existing chromedp connection stale, reconnecting")
		s.closeLocked()
	}

	var allocCtx context.Context
	var allocCanc context.CancelFunc
	if s.cfg.DebuggerURL != "" {
		allocCtx, allocCanc = chromedp.NewRemoteAllocator(context.Background(), s.cfg.DebuggerURL)
	} else {
		opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		opts = append(opts,
			chromedp.Flag("headless", s.cfg.IsHeadless()),
			chromedp.WindowSize(s.cfg.GetViewportWidth(), s.cfg.GetViewportHeight()),
		)
		if s.cfg.Bin != "" {
			opts = append(opts, chromedp.ExecPath(s.cfg.Bin))
		}
		allocCtx, allocCanc = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	ctx, cancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCanc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	s.allocCanc = allocCanc
	s.ctx = ctx
	s.ctxCanc = cancel
	logging.Browser("Connected to Chrome (chromedp), headless=%v", s.cfg.IsHeadless())
	return ctx, nil
}

// run executes actions on the browser context while honoring the caller's ctx.
func (s *ChromedpScreen) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	bctx := s.ctx
	s.mu.Unlock()
	if bctx == nil {
		return errors.New("no page open")
	}
	runCtx, cancel := context.WithCancel(bctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Open navigates the tab, launching Chrome on first use.
func (s *ChromedpScreen) Open(ctx context.Context, url string) error {
	if _, err := s.ensureConnected(); err != nil {
		return err
	}
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout())
	defer cancel()
	err := s.run(navCtx,
		emulation.SetDeviceMetricsOverride(int64(s.cfg.GetViewportWidth()), int64(s.cfg.GetViewportHeight()), 1.0, false),
		chromedp.Navigate(url),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitReady waits until the body is present and the document is complete.
func (s *ChromedpScreen) WaitReady(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout())
	defer cancel()
	return s.run(waitCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Poll(`document.readyState === "complete"`, nil, chromedp.WithPollingInterval(100*time.Millisecond)),
	)
}

// Capture screenshots the viewport.
func (s *ChromedpScreen) Capture(ctx context.Context) (image.Image, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Click performs a left click at (x, y).
func (s *ChromedpScreen) Click(ctx context.Context, x, y float64) error {
	if err := s.run(ctx, chromedp.MouseClickXY(x, y)); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Type sends one key event per character.
func (s *ChromedpScreen) Type(ctx context.Context, text string, interval time.Duration) error {
	for _, r := range text {
		if err := s.run(ctx, chromedp.KeyEvent(string(r))); err != nil {
			return fmt.Errorf("type %q: %w", r, err)
		}
		if err := Sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

var chromedpKeys = map[Key]string{
	KeyEnter:      kb.Enter,
	KeyTab:        kb.Tab,
	KeyEscape:     kb.Escape,
	KeyBackspace:  kb.Backspace,
	KeySpace:      " ",
	KeyArrowUp:    kb.ArrowUp,
	KeyArrowDown:  kb.ArrowDown,
	KeyArrowLeft:  kb.ArrowLeft,
	KeyArrowRight: kb.ArrowRight,
}

// Press sends a single key.
func (s *ChromedpScreen) Press(ctx context.Context, key Key) error {
	k, ok := chromedpKeys[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	if err := s.run(ctx, chromedp.KeyEvent(k)); err != nil {
		return fmt.Errorf("press %s: %w", key, err)
	}
	return nil
}

// Scroll dispatches a wheel event at the viewport center.
func (s *ChromedpScreen) Scroll(ctx context.Context, amount float64) error {
	x := float64(s.cfg.GetViewportWidth()) / 2
	y := float64(s.cfg.GetViewportHeight()) / 2
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, x, y).
			WithDeltaX(0).
			WithDeltaY(-amount).
			Do(ctx)
	}))
}

// ClickAndChooseFile intercepts the file chooser opened by the click and
// sets path on the input behind it.
func (s *ChromedpScreen) ClickAndChooseFile(ctx context.Context, x, y float64, path string) error {
	s.mu.Lock()
	bctx := s.ctx
	s.mu.Unlock()
	if bctx == nil {
		return errors.New("no page open")
	}

	opened := make(chan cdp.BackendNodeID, 1)
	listenCtx, stopListening := context.WithCancel(bctx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventFileChooserOpened); ok {
			select {
			case opened <- e.BackendNodeID:
			default:
			}
		}
	})

	if err := s.run(ctx, page.SetInterceptFileChooserDialog(true)); err != nil {
		return fmt.Errorf("intercept file chooser: %w", err)
	}
	defer func() {
		_ = s.run(context.Background(), page.SetInterceptFileChooserDialog(false))
	}()

	if err := s.Click(ctx, x, y); err != nil {
		return err
	}

	select {
	case node := <-opened:
		if err := s.run(ctx, dom.SetFileInputFiles([]string{path}).WithBackendNodeID(node)); err != nil {
			return fmt.Errorf("set file: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("file chooser did not open: %w", ctx.Err())
	}
}

// Close shuts the tab and the allocator down.
func (s *ChromedpScreen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *ChromedpScreen) closeLocked() {
	if s.ctxCanc != nil {
		s.ctxCanc()
		s.ctxCanc = nil
	}
	if s.allocCanc != nil {
		s.allocCanc()
		s.allocCanc = nil
	}
	s.ctx = nil
}
