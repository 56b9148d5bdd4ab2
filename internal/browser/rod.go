package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"formfill/internal/logging"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// RodScreen owns a Chrome instance driven through go-rod and a single tab.
type RodScreen struct {
	cfg      Config
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewRodScreen creates a screen; the browser starts lazily on Open.
func NewRodScreen(cfg Config) *RodScreen {
	return &RodScreen{cfg: cfg}
}

// Start connects to an existing Chrome or launches a new one.
func (s *RodScreen) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *RodScreen) startLocked(ctx context.Context) error {
	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("Stale browser connection detected, reconnecting...")
		_ = s.browser.Close()
		s.browser = nil
		s.page = nil
	}

	controlURL := s.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(s.cfg.IsHeadless()).
			Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", s.cfg.GetViewportWidth(), s.cfg.GetViewportHeight()))
		if s.cfg.Bin != "" {
			l = l.Bin(s.cfg.Bin)
		}
		for _, rawFlag := range s.cfg.Flags {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				l = l.Set(flags.Flag(name), val)
			} else {
				l = l.Set(flags.Flag(name))
			}
		}
		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		s.launcher = l
		controlURL = url
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = b
	logging.Browser("Connected to Chrome (rod), headless=%v", s.cfg.IsHeadless())
	return nil
}

// IsHeadless returns the headless setting.
func (c Config) IsHeadless() bool {
	return c.Headless
}

func (s *RodScreen) current(ctx context.Context) (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return nil, errors.New("no page open")
	}
	return s.page.Context(ctx), nil
}

// Open navigates the tab, creating it on first use.
func (s *RodScreen) Open(ctx context.Context, url string) error {
	s.mu.Lock()
	if err := s.startLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.page == nil {
		page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("create page: %w", err)
		}
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             s.cfg.GetViewportWidth(),
			Height:            s.cfg.GetViewportHeight(),
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(page); err != nil {
			logging.BrowserWarn("failed to set viewport: %v", err)
		}
		s.page = page
	}
	page := s.page
	s.mu.Unlock()

	if err := page.Context(ctx).Timeout(s.cfg.NavigationTimeout()).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitReady waits for the load event, then for the page to go idle.
func (s *RodScreen) WaitReady(ctx context.Context) error {
	page, err := s.current(ctx)
	if err != nil {
		return err
	}
	page = page.Timeout(s.cfg.NavigationTimeout())
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	if err := page.WaitIdle(s.cfg.NavigationTimeout()); err != nil {
		logging.BrowserDebug("page did not go idle: %v", err)
	}
	return nil
}

// Capture screenshots the viewport.
func (s *RodScreen) Capture(ctx context.Context) (image.Image, error) {
	page, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	buf, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Click moves the mouse to (x, y) and clicks.
func (s *RodScreen) Click(ctx context.Context, x, y float64) error {
	page, err := s.current(ctx)
	if err != nil {
		return err
	}
	if err := page.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
		return fmt.Errorf("move mouse: %w", err)
	}
	if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Type inserts text one character at a time.
func (s *RodScreen) Type(ctx context.Context, text string, interval time.Duration) error {
	page, err := s.current(ctx)
	if err != nil {
		return err
	}
	for _, r := range text {
		if err := page.InsertText(string(r)); err != nil {
			return fmt.Errorf("type %q: %w", r, err)
		}
		if err := Sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

// Press sends a key down/up pair.
func (s *RodScreen) Press(ctx context.Context, key Key) error {
	page, err := s.current(ctx)
	if err != nil {
		return err
	}
	k, ok := rodKeys[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return page.Keyboard.Press(k)
}

var rodKeys = map[Key]input.Key{
	KeyEnter:      input.Enter,
	KeyTab:        input.Tab,
	KeyEscape:     input.Escape,
	KeyBackspace:  input.Backspace,
	KeySpace:      input.Space,
	KeyArrowUp:    input.ArrowUp,
	KeyArrowDown:  input.ArrowDown,
	KeyArrowLeft:  input.ArrowLeft,
	KeyArrowRight: input.ArrowRight,
}

// Scroll dispatches a wheel event; negative amounts scroll down.
func (s *RodScreen) Scroll(ctx context.Context, amount float64) error {
	page, err := s.current(ctx)
	if err != nil {
		return err
	}
	return page.Mouse.Scroll(0, -amount, 1)
}

// ClickAndChooseFile intercepts the next file chooser and answers it with path.
func (s *RodScreen) ClickAndChooseFile(ctx context.Context, x, y float64, path string) error {
	page, err := s.current(ctx)
	if err != nil {
		return err
	}
	setFiles, err := page.HandleFileDialog()
	if err != nil {
		return fmt.Errorf("intercept file chooser: %w", err)
	}
	if err := s.Click(ctx, x, y); err != nil {
		return err
	}
	if err := setFiles([]string{path}); err != nil {
		return fmt.Errorf("file chooser: %w", err)
	}
	return nil
}

// Close closes the tab and the browser, killing it if we launched it.
func (s *RodScreen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
	return err
}
