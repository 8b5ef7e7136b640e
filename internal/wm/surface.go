package wm

import (
	"sync"

	"github.com/bryanchriswhite/deskpane/internal/config"
)

// ID identifies a window for the lifetime of its registry.
type ID int

// NoWindow is the active id when no window is open.
const NoWindow ID = -1

// EventKind is the kind of message a surface sends to the registry.
type EventKind int

const (
	// EventClose asks the registry to close the window.
	EventClose EventKind = iota
	// EventActivate asks the registry to focus the window.
	EventActivate
)

// String returns a string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventClose:
		return "close"
	case EventActivate:
		return "activate"
	default:
		return "unknown"
	}
}

// Event is a message from a surface; ID is the surface's own window id.
type Event struct {
	Kind EventKind
	ID   ID
}

// Props are handed to a surface at creation. Component is opaque content
// the registry only forwards.
type Props[C any] struct {
	Component      C                    `json:"component"`
	Options        config.WindowOptions `json:"options"`
	ID             ID                   `json:"id"`
	IsActive       bool                 `json:"is_active"`
	ComponentProps any                  `json:"component_props,omitempty"`
}

// SurfaceSpec is everything a factory needs to mount a surface.
type SurfaceSpec[C any] struct {
	Target string
	Props  Props[C]
	Intro  bool // run the entrance transition
}

// Surface renders one window.
type Surface interface {
	// Events delivers close/activate requests. It may be closed once the
	// surface is destroyed.
	Events() <-chan Event

	// SetActive pushes the focus state. It must not call back into the
	// registry synchronously.
	SetActive(active bool)

	// Outro runs the exit transition and calls done once it has finished.
	Outro(done func())

	// Destroy disposes the surface. Calling it more than once is a no-op.
	Destroy()
}

// SurfaceFactory mounts a new surface.
type SurfaceFactory[C any] func(spec SurfaceSpec[C]) (Surface, error)

// ClosingMode selects how a window is torn down. It is fixed at open time
// by the animate option.
type ClosingMode int

const (
	// ClosingImmediate destroys the surface synchronously.
	ClosingImmediate ClosingMode = iota
	// ClosingAnimated runs the outro first and destroys on completion.
	ClosingAnimated
)

// String returns a string representation of the closing mode.
func (m ClosingMode) String() string {
	switch m {
	case ClosingImmediate:
		return "immediate"
	case ClosingAnimated:
		return "animated"
	default:
		return "unknown"
	}
}

func closingModeFor(opts config.WindowOptions) ClosingMode {
	if opts.Animate {
		return ClosingAnimated
	}
	return ClosingImmediate
}

// teardown disposes s according to mode and calls finished once the
// surface is gone. Destroy runs at most once even if the outro completes
// twice.
func teardown(s Surface, mode ClosingMode, finished func()) {
	var once sync.Once
	destroy := func() {
		once.Do(func() {
			s.Destroy()
			finished()
		})
	}

	if mode == ClosingAnimated {
		s.Outro(destroy)
		return
	}
	destroy()
}
