package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/bryanchriswhite/deskpane/internal/geometry"
	"github.com/go-viper/mapstructure/v2"
)

// ErrInvalidOptions wraps every option merge failure.
var ErrInvalidOptions = errors.New("invalid window options")

// TitlebarButton is an extra chrome button. Action is echoed back by the
// page in a "button" event when the button is clicked.
type TitlebarButton struct {
	Value  string `json:"value" yaml:"value" mapstructure:"value"`
	Action string `json:"action" yaml:"action" mapstructure:"action"`
}

// WindowOptions configures a single window.
type WindowOptions struct {
	Width     int `json:"width" yaml:"width" mapstructure:"width"`
	MinWidth  int `json:"min_width" yaml:"min_width" mapstructure:"min_width"`
	MaxWidth  int `json:"max_width" yaml:"max_width" mapstructure:"max_width"`
	Height    int `json:"height" yaml:"height" mapstructure:"height"`
	MinHeight int `json:"min_height" yaml:"min_height" mapstructure:"min_height"`
	MaxHeight int `json:"max_height" yaml:"max_height" mapstructure:"max_height"`

	Resizable           bool           `json:"resizable" yaml:"resizable" mapstructure:"resizable"`
	Title               string         `json:"title" yaml:"title" mapstructure:"title"`
	Position            geometry.Point `json:"position" yaml:"position" mapstructure:"position"`
	OpenInCenter        bool           `json:"open_in_center" yaml:"open_in_center" mapstructure:"open_in_center"`
	AlwaysOnTop         bool           `json:"always_on_top" yaml:"always_on_top" mapstructure:"always_on_top"`
	PreventBodyOverflow bool           `json:"prevent_body_overflow" yaml:"prevent_body_overflow" mapstructure:"prevent_body_overflow"`
	Animate             bool           `json:"animate" yaml:"animate" mapstructure:"animate"`

	// Passed through to the page verbatim
	CustomTitlebarButtons       []TitlebarButton `json:"custom_titlebar_buttons,omitempty" yaml:"custom_titlebar_buttons,omitempty" mapstructure:"custom_titlebar_buttons"`
	CustomTitlebarClass         string           `json:"custom_titlebar_class,omitempty" yaml:"custom_titlebar_class,omitempty" mapstructure:"custom_titlebar_class"`
	CustomInactiveTitlebarClass string           `json:"custom_inactive_titlebar_class,omitempty" yaml:"custom_inactive_titlebar_class,omitempty" mapstructure:"custom_inactive_titlebar_class"`
	CustomTitlebarButtonClass   string           `json:"custom_titlebar_button_class,omitempty" yaml:"custom_titlebar_button_class,omitempty" mapstructure:"custom_titlebar_button_class"`
	CustomWindowClass           string           `json:"custom_window_class,omitempty" yaml:"custom_window_class,omitempty" mapstructure:"custom_window_class"`
}

// DefaultWindowOptions returns the options every window starts from.
func DefaultWindowOptions() WindowOptions {
	return WindowOptions{
		Width:        600,
		MinWidth:     300,
		MaxWidth:     geometry.Unbounded,
		Height:       500,
		MinHeight:    200,
		MaxHeight:    geometry.Unbounded,
		Resizable:    true,
		Title:        "New Window",
		OpenInCenter: true,
		Position:     geometry.Point{X: 0, Y: 0},
		Animate:      true,
	}
}

// Bounds returns the resize limits of the window.
func (o WindowOptions) Bounds() geometry.Bounds {
	return geometry.Bounds{
		MinWidth:  o.MinWidth,
		MinHeight: o.MinHeight,
		MaxWidth:  o.MaxWidth,
		MaxHeight: o.MaxHeight,
	}
}

// InitialRect places the window for its first mount. OpenInCenter wins over
// Position when a viewport size is known.
func (o WindowOptions) InitialRect(viewport geometry.Size) geometry.Rect {
	size := o.Bounds().ClampSize(geometry.Size{Width: o.Width, Height: o.Height})
	pos := o.Position
	if o.OpenInCenter && viewport.Width > 0 && viewport.Height > 0 {
		pos = geometry.Center(size, viewport)
	}
	return geometry.Rect{X: pos.X, Y: pos.Y, Width: size.Width, Height: size.Height}
}

// MergeOptions applies overrides on top of base with shallow semantics:
// every key present in overrides replaces the base value. Nested values such
// as position and custom_titlebar_buttons are replaced wholesale. Keys may be
// snake_case or camelCase; unknown keys, null values and values of the
// wrong type are rejected. Numbers may be float64 as decoded from JSON but
// must be integral for integer options.
func MergeOptions(base WindowOptions, overrides map[string]any) (WindowOptions, error) {
	merged := base
	if len(overrides) == 0 {
		return merged, nil
	}

	for key, value := range overrides {
		if value == nil {
			return base, fmt.Errorf("%w: %s is null", ErrInvalidOptions, key)
		}
		if normalizeKey(key) == "position" {
			merged.Position = geometry.Point{}
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &merged,
		ErrorUnused: true,
		ZeroFields:  true,
		DecodeHook:  mapstructure.DecodeHookFuncType(integralFloatHook),
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
	})
	if err != nil {
		return base, fmt.Errorf("failed to create options decoder: %w", err)
	}

	if err := decoder.Decode(overrides); err != nil {
		return base, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return merged, nil
}

// integralFloatHook refuses to truncate fractional numbers into integer
// fields.
func integralFloatHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}

	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%v is not a whole number", data)
	}
	return data, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", ""))
}
