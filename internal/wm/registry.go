package wm

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bryanchriswhite/deskpane/internal/config"
	"github.com/bryanchriswhite/deskpane/internal/logger"
	"github.com/sourcegraph/conc"
)

// DefaultTarget is the mount point passed to surfaces.
const DefaultTarget = "body"

type entry struct {
	id      ID
	surface Surface
	options config.WindowOptions
	state   State
	cancel  context.CancelFunc
}

// Registry tracks open windows and which one has focus. All state changes
// are serialized on one mutex; surface events are pumped in by one
// goroutine per window.
type Registry[C any] struct {
	mu       sync.Mutex
	factory  SurfaceFactory[C]
	defaults func() config.WindowOptions
	target   string

	nextID  ID
	closed  bool
	windows map[ID]*entry
	active  ID
	// activation order, most recent last; doubles as raise order
	history []ID

	ctx       context.Context
	cancelAll context.CancelFunc
	pumps     conc.WaitGroup
	teardowns sync.WaitGroup

	lmu       sync.RWMutex
	listeners []chan Change
}

type registryOptions struct {
	defaults func() config.WindowOptions
	target   string
}

// Option configures a Registry.
type Option func(*registryOptions)

// WithDefaults sets the source of default window options. It is called on
// every Open so config reloads take effect for new windows.
func WithDefaults(fn func() config.WindowOptions) Option {
	return func(o *registryOptions) {
		o.defaults = fn
	}
}

// WithTarget sets the mount target handed to surfaces.
func WithTarget(target string) Option {
	return func(o *registryOptions) {
		o.target = target
	}
}

// NewRegistry creates an empty registry that mounts windows with factory.
func NewRegistry[C any](factory SurfaceFactory[C], opts ...Option) *Registry[C] {
	o := registryOptions{
		defaults: config.DefaultWindowOptions,
		target:   DefaultTarget,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Registry[C]{
		factory:   factory,
		defaults:  o.defaults,
		target:    o.target,
		windows:   make(map[ID]*entry),
		active:    NoWindow,
		ctx:       ctx,
		cancelAll: cancel,
	}
}

// Open merges overrides over the default options, mounts a new surface and
// focuses it. componentProps is forwarded only when non-nil. The returned
// id is never reused, even after the window closes.
func (r *Registry[C]) Open(component C, overrides map[string]any, componentProps any) (ID, error) {
	opts, err := config.MergeOptions(r.defaults(), overrides)
	if err != nil {
		return NoWindow, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NoWindow, ErrRegistryClosed
	}

	id := r.nextID
	r.nextID++

	log := logger.WithWindow("wm", int(id))

	surface, err := r.factory(SurfaceSpec[C]{
		Target: r.target,
		Props: Props[C]{
			Component:      component,
			Options:        opts,
			ID:             id,
			IsActive:       true,
			ComponentProps: componentProps,
		},
		Intro: opts.Animate,
	})
	if err != nil {
		return NoWindow, fmt.Errorf("failed to create surface for window %d: %w", id, err)
	}

	ctx, cancel := context.WithCancel(r.ctx)
	e := &entry{
		id:      id,
		surface: surface,
		options: opts,
		state:   StateOpening,
		cancel:  cancel,
	}
	r.windows[id] = e

	events := surface.Events()
	r.pumps.Go(func() {
		r.pump(ctx, events)
	})

	if prev, ok := r.windows[r.active]; ok {
		prev.state = StateInactive
		prev.surface.SetActive(false)
	}
	r.active = id
	e.state = StateActive
	r.raise(id)

	log.Info().Str("title", opts.Title).Msg("Window opened")
	r.notify(r.changeLocked(ChangeOpened, id))
	return id, nil
}

// pump forwards surface events into the registry until the window closes.
func (r *Registry[C]) pump(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case EventClose:
				r.Close(ev.ID)
			case EventActivate:
				_ = r.SetActive(ev.ID)
			default:
				logger.WithWindow("wm", int(ev.ID)).Warn().
					Int("kind", int(ev.Kind)).
					Msg("Ignoring unknown surface event")
			}
		}
	}
}

// Close removes the window and tears its surface down. Unknown ids are
// reported and otherwise ignored. Bookkeeping is immediate; with animate
// set, disposal waits for the surface's outro.
func (r *Registry[C]) Close(id ID) {
	log := logger.WithWindow("wm", int(id))

	r.mu.Lock()
	e, ok := r.windows[id]
	if !ok {
		r.mu.Unlock()
		log.Error().Msg("window does not exist")
		return
	}

	delete(r.windows, id)
	e.cancel()
	e.state = StateClosing
	r.history = slices.DeleteFunc(r.history, func(h ID) bool { return h == id })

	if r.active == id {
		r.active = NoWindow
	}
	if n := len(r.history); n > 0 {
		r.setActiveLocked(r.history[n-1])
	}

	r.notify(r.changeLocked(ChangeClosed, id))
	r.teardowns.Add(1)
	r.mu.Unlock()

	mode := closingModeFor(e.options)
	log.Info().Str("mode", mode.String()).Msg("Window closing")

	teardown(e.surface, mode, func() {
		e.state = StateClosed
		log.Debug().Msg("Window disposed")
		r.teardowns.Done()
	})
}

// SetActive focuses the window. Activating an id that is not open is a
// caller error: it is logged and ErrWindowNotFound is returned without
// touching focus. Activating the already active window is a no-op.
func (r *Registry[C]) SetActive(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.windows[id]; !ok {
		logger.WithWindow("wm", int(id)).Error().Msg("cannot activate: window does not exist")
		return fmt.Errorf("activate %d: %w", id, ErrWindowNotFound)
	}

	r.setActiveLocked(id)
	return nil
}

// setActiveLocked moves focus to id, which must be open.
func (r *Registry[C]) setActiveLocked(id ID) {
	if r.active == id {
		return
	}

	if cur, ok := r.windows[r.active]; ok {
		cur.state = StateInactive
		cur.surface.SetActive(false)
	}

	e := r.windows[id]
	r.active = id
	e.state = StateActive
	e.surface.SetActive(true)
	r.raise(id)

	r.notify(r.changeLocked(ChangeActivated, id))
}

// raise moves id to the end of the activation history.
func (r *Registry[C]) raise(id ID) {
	r.history = slices.DeleteFunc(r.history, func(h ID) bool { return h == id })
	r.history = append(r.history, id)
}

// Active returns the focused window, or NoWindow.
func (r *Registry[C]) Active() ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Len returns the number of open windows.
func (r *Registry[C]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}

// Window returns a snapshot of one open window.
func (r *Registry[C]) Window(id ID) (WindowInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.windows[id]
	if !ok {
		return WindowInfo{}, false
	}
	return e.info(), true
}

// Windows returns snapshots of all open windows ordered by id.
func (r *Registry[C]) Windows() []WindowInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]WindowInfo, 0, len(r.windows))
	for _, e := range r.windows {
		infos = append(infos, e.info())
	}
	slices.SortFunc(infos, func(a, b WindowInfo) int { return int(a.ID - b.ID) })
	return infos
}

func (e *entry) info() WindowInfo {
	return WindowInfo{
		ID:      e.id,
		State:   e.state,
		Active:  e.state == StateActive,
		Options: e.options,
	}
}

// Stack returns open windows bottom to top: most recently activated
// windows are higher, and always-on-top windows sit above all others.
func (r *Registry[C]) Stack() []ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	stack := make([]ID, 0, len(r.history))
	var pinned []ID
	for _, id := range r.history {
		if r.windows[id].options.AlwaysOnTop {
			pinned = append(pinned, id)
			continue
		}
		stack = append(stack, id)
	}
	return append(stack, pinned...)
}

// BodyOverflowHidden reports whether any open window asked for the host
// page's scrollbars to be suppressed.
func (r *Registry[C]) BodyOverflowHidden() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodyOverflowHiddenLocked()
}

func (r *Registry[C]) bodyOverflowHiddenLocked() bool {
	for _, e := range r.windows {
		if e.options.PreventBodyOverflow {
			return true
		}
	}
	return false
}

func (r *Registry[C]) changeLocked(kind ChangeKind, id ID) Change {
	return Change{
		Kind:               kind,
		ID:                 id,
		Active:             r.active,
		Open:               len(r.windows),
		BodyOverflowHidden: r.bodyOverflowHiddenLocked(),
	}
}

// Subscribe adds a listener for registry changes
func (r *Registry[C]) Subscribe() chan Change {
	ch := make(chan Change, 32)
	r.lmu.Lock()
	r.listeners = append(r.listeners, ch)
	r.lmu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (r *Registry[C]) Unsubscribe(ch chan Change) {
	r.lmu.Lock()
	defer r.lmu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// notify fans a change out to listeners, dropping it for full channels.
func (r *Registry[C]) notify(c Change) {
	r.lmu.RLock()
	defer r.lmu.RUnlock()

	for _, listener := range r.listeners {
		select {
		case listener <- c:
		default:
		}
	}
}

// Shutdown closes every window and waits for event pumps and pending
// teardowns, or for ctx to end. Open fails with ErrRegistryClosed once
// Shutdown has started.
func (r *Registry[C]) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	ids := make([]ID, 0, len(r.windows))
	for id := range r.windows {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		r.Close(id)
	}
	r.cancelAll()

	done := make(chan struct{})
	go func() {
		r.pumps.Wait()
		r.teardowns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("registry shutdown: %w", ctx.Err())
	}
}
