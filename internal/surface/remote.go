package surface

import (
	"sync"
	"time"

	"github.com/bryanchriswhite/deskpane/internal/config"
	"github.com/bryanchriswhite/deskpane/internal/geometry"
	"github.com/bryanchriswhite/deskpane/internal/logger"
	"github.com/bryanchriswhite/deskpane/internal/wm"
)

// Remote is a window rendered by the connected pages. Interaction arrives
// through the Hub; close and activate requests are forwarded to the
// registry on Events.
type Remote struct {
	hub     *Hub
	id      wm.ID
	props   any
	options config.WindowOptions
	events  chan wm.Event

	mu         sync.Mutex
	rect       geometry.Rect
	active     bool
	destroyed  bool
	outroDone  func()
	outroTimer *time.Timer
}

// NewFactory returns a SurfaceFactory that mounts windows on every page
// connected to hub.
func NewFactory[C any](hub *Hub) wm.SurfaceFactory[C] {
	return func(spec wm.SurfaceSpec[C]) (wm.Surface, error) {
		r := &Remote{
			hub:     hub,
			id:      spec.Props.ID,
			props:   spec.Props,
			options: spec.Props.Options,
			events:  make(chan wm.Event, 8),
			rect:    spec.Props.Options.InitialRect(hub.Viewport()),
			active:  spec.Props.IsActive,
		}
		hub.add(r)
		hub.broadcast(r.mountMessage(spec.Intro))
		return r, nil
	}
}

func (r *Remote) mountMessage(intro bool) Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	rect := r.rect
	return Outbound{
		Type:   TypeMount,
		ID:     idPtr(r.id),
		Props:  r.props,
		Rect:   &rect,
		Intro:  intro,
		Active: boolPtr(r.active),
	}
}

// Events implements wm.Surface.
func (r *Remote) Events() <-chan wm.Event {
	return r.events
}

// Rect returns the window's current placement.
func (r *Remote) Rect() geometry.Rect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rect
}

// SetActive implements wm.Surface.
func (r *Remote) SetActive(active bool) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.active = active
	r.mu.Unlock()

	r.hub.broadcast(Outbound{Type: TypeState, ID: idPtr(r.id), Active: boolPtr(active)})
}

// Outro asks the pages to play the exit transition. done runs when a page
// acknowledges, when the hub's outro timeout passes, or right away when no
// page is connected.
func (r *Remote) Outro(done func()) {
	r.mu.Lock()
	if r.destroyed || r.outroDone != nil || r.hub.ClientCount() == 0 {
		r.mu.Unlock()
		done()
		return
	}
	r.outroDone = done
	r.outroTimer = time.AfterFunc(r.hub.OutroTimeout(), r.finishOutro)
	r.mu.Unlock()

	r.hub.broadcast(Outbound{Type: TypeOutro, ID: idPtr(r.id)})
}

// finishOutro runs the pending outro callback once.
func (r *Remote) finishOutro() {
	r.mu.Lock()
	done := r.outroDone
	r.outroDone = nil
	if r.outroTimer != nil {
		r.outroTimer.Stop()
		r.outroTimer = nil
	}
	r.mu.Unlock()

	if done != nil {
		done()
	}
}

// Destroy implements wm.Surface. It unmounts the window from every page
// and closes Events.
func (r *Remote) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	if r.outroTimer != nil {
		r.outroTimer.Stop()
		r.outroTimer = nil
	}
	r.outroDone = nil
	close(r.events)
	r.mu.Unlock()

	r.hub.remove(r.id)
	r.hub.broadcast(Outbound{Type: TypeDestroy, ID: idPtr(r.id)})
}

// emit forwards a page request to the registry without blocking the hub.
func (r *Remote) emit(kind wm.EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	select {
	case r.events <- wm.Event{Kind: kind, ID: r.id}:
	default:
		logger.WithWindow("surface", int(r.id)).Warn().
			Str("event", kind.String()).
			Msg("Event queue full, dropping")
	}
}

// drag moves the window, keeping it inside the viewport.
func (r *Remote) drag(dx, dy int, viewport geometry.Size) {
	r.mu.Lock()
	r.rect = geometry.Drag(r.rect, dx, dy, viewport)
	rect := r.rect
	r.mu.Unlock()

	r.hub.broadcast(Outbound{Type: TypeFrame, ID: idPtr(r.id), Rect: &rect})
}

// resize grows the window within its min/max bounds.
func (r *Remote) resize(dw, dh int) {
	if !r.options.Resizable {
		logger.WithWindow("surface", int(r.id)).Debug().Msg("Ignoring resize of fixed-size window")
		return
	}

	r.mu.Lock()
	r.rect = geometry.Resize(r.rect, dw, dh, r.options.Bounds())
	rect := r.rect
	r.mu.Unlock()

	r.hub.broadcast(Outbound{Type: TypeFrame, ID: idPtr(r.id), Rect: &rect})
}

// place records the placement a page reports after its own layout pass.
func (r *Remote) place(p geometry.Placement) error {
	rect, err := geometry.ElementRect(p)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.rect = rect
	r.mu.Unlock()
	return nil
}
