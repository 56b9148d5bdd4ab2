// Package logging provides categorized logging for formfill.
// Every category shares one zap core: human-readable progress on stderr and,
// when a log file is configured, JSON lines in that file.
// Categories can be switched off individually from the config file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config, CLI
	CategorySheet    Category = "sheet"    // Workbook loading
	CategoryDownload Category = "download" // Image fetches
	CategoryLocator  Category = "locator"  // Anchor matching and clicks
	CategoryFiller   Category = "filler"   // Field typing, dropdowns, uploads
	CategoryForm     Category = "form"     // Row sequencing
	CategoryRun      Category = "run"      // Driver loop
	CategoryBrowser  Category = "browser"  // Browser backends
	CategoryStore    Category = "store"    // Run ledger
)

// Options configures the shared core.
type Options struct {
	Level      string          // debug, info, warn, error
	File       string          // optional JSON log file
	Categories map[string]bool // per-category toggles; missing = enabled
	Console    io.Writer       // defaults to os.Stderr
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
	logFile    *os.File
)

// Initialize builds the shared zap core and returns the root logger so the
// CLI can log structured fields directly.
func Initialize(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || opts.Level == "" {
		level = zapcore.InfoLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), level),
	}

	var file *os.File
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(file),
			zapcore.DebugLevel,
		))
	}

	root := zap.New(zapcore.NewTee(cores...))
	install(root, opts.Categories, file)
	return root, nil
}

// UseCore installs a custom core (tests use zaptest/observer).
func UseCore(core zapcore.Core, cats map[string]bool) {
	install(zap.New(core), cats, nil)
}

func install(root *zap.Logger, cats map[string]bool, file *os.File) {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	base = root
	categories = cats
	logFile = file
	loggers = make(map[Category]*Logger)
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// With returns a child logger carrying a key-value pair.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(key, value)}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered entries and closes the log file.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }

func Sheet(format string, args ...interface{})     { Get(CategorySheet).Info(format, args...) }
func SheetWarn(format string, args ...interface{}) { Get(CategorySheet).Warn(format, args...) }

func Download(format string, args ...interface{})      { Get(CategoryDownload).Info(format, args...) }
func DownloadDebug(format string, args ...interface{}) { Get(CategoryDownload).Debug(format, args...) }
func DownloadWarn(format string, args ...interface{})  { Get(CategoryDownload).Warn(format, args...) }

func Locator(format string, args ...interface{})      { Get(CategoryLocator).Info(format, args...) }
func LocatorDebug(format string, args ...interface{}) { Get(CategoryLocator).Debug(format, args...) }
func LocatorWarn(format string, args ...interface{})  { Get(CategoryLocator).Warn(format, args...) }

func Filler(format string, args ...interface{})      { Get(CategoryFiller).Info(format, args...) }
func FillerDebug(format string, args ...interface{}) { Get(CategoryFiller).Debug(format, args...) }
func FillerWarn(format string, args ...interface{})  { Get(CategoryFiller).Warn(format, args...) }

func Form(format string, args ...interface{})     { Get(CategoryForm).Info(format, args...) }
func FormWarn(format string, args ...interface{}) { Get(CategoryForm).Warn(format, args...) }

func Run(format string, args ...interface{})      { Get(CategoryRun).Info(format, args...) }
func RunWarn(format string, args ...interface{})  { Get(CategoryRun).Warn(format, args...) }
func RunError(format string, args ...interface{}) { Get(CategoryRun).Error(format, args...) }

func Browser(format string, args ...interface{})      { Get(CategoryBrowser).Info(format, args...) }
func BrowserDebug(format string, args ...interface{}) { Get(CategoryBrowser).Debug(format, args...) }
func BrowserWarn(format string, args ...interface{})  { Get(CategoryBrowser).Warn(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreWarn(format string, args ...interface{})  { Get(CategoryStore).Warn(format, args...) }

// =============================================================================
// TIMING
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer starts timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s took %v", t.operation, elapsed)
	return elapsed
}
