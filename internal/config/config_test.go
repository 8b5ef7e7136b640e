package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/bryanchriswhite/deskpane/internal/geometry"
)

func TestDefaultWindowOptions(t *testing.T) {
	opts, err := MergeOptions(DefaultWindowOptions(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opts.Width != 600 || opts.MinWidth != 300 || opts.Height != 500 || opts.MinHeight != 200 {
		t.Errorf("unexpected size defaults: %+v", opts)
	}
	if opts.MaxWidth != geometry.Unbounded || opts.MaxHeight != geometry.Unbounded {
		t.Errorf("expected unbounded max size, got %dx%d", opts.MaxWidth, opts.MaxHeight)
	}
	if !opts.Resizable || !opts.OpenInCenter || !opts.Animate {
		t.Error("expected resizable, open_in_center and animate to default to true")
	}
	if opts.Title != "New Window" {
		t.Errorf("expected title 'New Window', got %q", opts.Title)
	}
	if opts.Position != (geometry.Point{}) {
		t.Errorf("expected position {0,0}, got %+v", opts.Position)
	}
}

func TestMergeOptionsCallerKeysWin(t *testing.T) {
	opts, err := MergeOptions(DefaultWindowOptions(), map[string]any{"title": "X"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := DefaultWindowOptions()
	want.Title = "X"
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("expected %+v, got %+v", want, opts)
	}
}

func TestMergeOptionsFalseOverridesTrue(t *testing.T) {
	opts, err := MergeOptions(DefaultWindowOptions(), map[string]any{
		"resizable":    false,
		"openInCenter": false,
		"animate":      false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Resizable || opts.OpenInCenter || opts.Animate {
		t.Errorf("expected false overrides to win, got %+v", opts)
	}
}

func TestMergeOptionsPositionReplacedWholesale(t *testing.T) {
	base := DefaultWindowOptions()
	base.Position = geometry.Point{X: 10, Y: 20}

	opts, err := MergeOptions(base, map[string]any{
		"position": map[string]any{"x": 5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Position != (geometry.Point{X: 5, Y: 0}) {
		t.Errorf("expected position {5,0}, got %+v", opts.Position)
	}
}

func TestMergeOptionsJSONNumbers(t *testing.T) {
	// encoding/json hands numbers over as float64
	opts, err := MergeOptions(DefaultWindowOptions(), map[string]any{
		"width":      float64(800),
		"max_height": float64(900),
		"custom_titlebar_buttons": []any{
			map[string]any{"value": "?", "action": "help"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Width != 800 || opts.MaxHeight != 900 {
		t.Errorf("unexpected sizes: %+v", opts)
	}
	if len(opts.CustomTitlebarButtons) != 1 || opts.CustomTitlebarButtons[0].Action != "help" {
		t.Errorf("unexpected buttons: %+v", opts.CustomTitlebarButtons)
	}
}

func TestMergeOptionsRejectsLossyValues(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"fractional width", map[string]any{"width": 1.9}},
		{"number as title", map[string]any{"title": 5}},
		{"null title", map[string]any{"title": nil}},
		{"fractional position", map[string]any{"position": map[string]any{"x": 1.5}}},
		{"string as bool", map[string]any{"animate": "false"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := DefaultWindowOptions()
			opts, err := MergeOptions(base, tt.overrides)
			if !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("expected ErrInvalidOptions, got %v", err)
			}
			if !reflect.DeepEqual(opts, base) {
				t.Errorf("expected base returned on error, got %+v", opts)
			}
		})
	}

	opts, err := MergeOptions(DefaultWindowOptions(), map[string]any{"width": 640.0})
	if err != nil {
		t.Fatalf("unexpected error for integral width: %v", err)
	}
	if opts.Width != 640 {
		t.Errorf("expected width 640, got %d", opts.Width)
	}
}

func TestMergeOptionsUnknownKey(t *testing.T) {
	base := DefaultWindowOptions()
	opts, err := MergeOptions(base, map[string]any{"colour": "red"})
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !reflect.DeepEqual(opts, base) {
		t.Errorf("expected base returned on error, got %+v", opts)
	}
}

func TestInitialRect(t *testing.T) {
	opts := DefaultWindowOptions()
	vp := geometry.Size{Width: 1000, Height: 800}

	r := opts.InitialRect(vp)
	if r != (geometry.Rect{X: 200, Y: 150, Width: 600, Height: 500}) {
		t.Errorf("unexpected centered rect %+v", r)
	}

	opts.OpenInCenter = false
	opts.Position = geometry.Point{X: 40, Y: 30}
	opts.Width = 100 // below min_width
	r = opts.InitialRect(vp)
	if r != (geometry.Rect{X: 40, Y: 30, Width: 300, Height: 500}) {
		t.Errorf("unexpected positioned rect %+v", r)
	}
}

func TestNewManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}

	cfg := m.Get()
	if cfg.ServerPort != 8080 || cfg.LogLevel != "info" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.OutroTimeout != 2*time.Second {
		t.Errorf("expected 2s outro timeout, got %v", cfg.OutroTimeout)
	}
}

func TestNewManagerEmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("# empty\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Get().ServerPort != 8080 {
		t.Errorf("expected default port, got %d", m.Get().ServerPort)
	}
}

func TestWindowDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "server_port: 9090\noutro_timeout: 500ms\nwindow_defaults:\n  title: Panel\n  animate: false\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := m.Get()
	if cfg.ServerPort != 9090 || cfg.OutroTimeout != 500*time.Millisecond {
		t.Errorf("unexpected config %+v", cfg)
	}

	opts := m.WindowDefaults()
	if opts.Title != "Panel" || opts.Animate {
		t.Errorf("expected window_defaults applied, got %+v", opts)
	}
	if opts.Width != 600 {
		t.Errorf("expected untouched defaults kept, got width %d", opts.Width)
	}
}

func TestNewManagerRejectsBadWindowDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("window_defaults:\n  bogus: 1\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := NewManager(path); err == nil {
		t.Fatal("expected error for unknown window_defaults key")
	}
}

func TestSaveAndViperRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	v, err := m.Viper()
	if err != nil {
		t.Fatalf("Viper: %v", err)
	}
	v.Set("server_port", 7070)
	if err := v.WriteConfig(); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	if err := m.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if m.Get().ServerPort != 7070 {
		t.Errorf("expected port 7070 after reload, got %d", m.Get().ServerPort)
	}
}

func TestFlagOverridesSurviveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.SetPort(9999)
	m.SetLogLevel("debug")

	data := "server_port: 7000\nlog_level: warn\noutro_timeout: 750ms\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := m.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	cfg := m.Get()
	if cfg.ServerPort != 9999 || cfg.LogLevel != "debug" {
		t.Errorf("expected flag overrides kept, got port %d level %q", cfg.ServerPort, cfg.LogLevel)
	}
	if cfg.OutroTimeout != 750*time.Millisecond {
		t.Errorf("expected file values applied, got outro timeout %v", cfg.OutroTimeout)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, func(cfg *Config) {
			select {
			case changed <- cfg:
			default:
			}
		})
	}()

	// keep writing until the watcher is up and reports the new value
	deadline := time.After(3 * time.Second)
	for port := 9000; ; port++ {
		data := fmt.Sprintf("server_port: %d\noutro_timeout: 250ms\n", port)
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}

		select {
		case cfg := <-changed:
			// a reload can observe the file mid-write; wait for a full one
			if cfg.ServerPort < 9000 || cfg.OutroTimeout != 250*time.Millisecond {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch: %v", err)
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			cancel()
			t.Fatal("no reload observed")
		}
	}
}
