package surface

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bryanchriswhite/deskpane/internal/geometry"
	"github.com/bryanchriswhite/deskpane/internal/wm"
)

func newTestHub() *Hub {
	return NewHub(geometry.Size{Width: 1000, Height: 800}, time.Second)
}

func newRegistry(t *testing.T, hub *Hub) *wm.Registry[string] {
	t.Helper()
	r := wm.NewRegistry[string](NewFactory[string](hub))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return r
}

// next reads the next message of the given type, skipping others.
func next(t *testing.T, c *client, msgType string) Outbound {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case data := <-c.send:
			var msg Outbound
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if msg.Type == msgType {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", msgType)
		}
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMountIsCentered(t *testing.T) {
	hub := newTestHub()
	c := hub.register()
	r := newRegistry(t, hub)

	id, err := r.Open("notes", map[string]any{"animate": false}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	msg := next(t, c, TypeMount)
	if msg.ID == nil || *msg.ID != id {
		t.Fatalf("expected mount for %d, got %+v", id, msg)
	}
	want := geometry.Rect{X: 200, Y: 150, Width: 600, Height: 500}
	if msg.Rect == nil || *msg.Rect != want {
		t.Errorf("expected rect %+v, got %+v", want, msg.Rect)
	}
	if msg.Intro {
		t.Error("expected no intro for animate=false")
	}
	if msg.Active == nil || !*msg.Active {
		t.Error("expected mount to be active")
	}
}

func TestLateClientReceivesDesktop(t *testing.T) {
	hub := newTestHub()
	r := newRegistry(t, hub)

	a, _ := r.Open("a", map[string]any{"animate": false, "prevent_body_overflow": true}, nil)
	hub.SetBodyOverflowHidden(r.BodyOverflowHidden())

	c := hub.register()
	overflow := next(t, c, TypeBodyOverflow)
	if overflow.Hidden == nil || !*overflow.Hidden {
		t.Error("expected body overflow hidden for late client")
	}
	mount := next(t, c, TypeMount)
	if *mount.ID != a || mount.Intro {
		t.Errorf("unexpected replayed mount %+v", mount)
	}
}

func TestPageEventsReachRegistry(t *testing.T) {
	hub := newTestHub()
	c := hub.register()
	r := newRegistry(t, hub)

	a, _ := r.Open("a", map[string]any{"animate": false}, nil)
	b, _ := r.Open("b", map[string]any{"animate": false}, nil)

	hub.handle(Inbound{Type: TypeActivate, ID: a})
	eventually(t, func() bool { return r.Active() == a })

	state := next(t, c, TypeState)
	if state.Active == nil {
		t.Fatalf("expected active flag in %+v", state)
	}

	hub.handle(Inbound{Type: TypeClose, ID: b})
	eventually(t, func() bool { return r.Len() == 1 })

	destroy := next(t, c, TypeDestroy)
	if *destroy.ID != b {
		t.Errorf("expected destroy for %d, got %d", b, *destroy.ID)
	}
	if _, ok := hub.Surface(b); ok {
		t.Error("expected surface removed from hub")
	}
}

func TestDragAndResize(t *testing.T) {
	hub := newTestHub()
	c := hub.register()
	r := newRegistry(t, hub)

	id, _ := r.Open("a", map[string]any{
		"animate":        false,
		"open_in_center": false,
		"position":       map[string]any{"x": 10, "y": 10},
		"max_width":      700,
	}, nil)

	hub.handle(Inbound{Type: TypeDrag, ID: id, DX: 5000, DY: -50})
	frame := next(t, c, TypeFrame)
	if frame.Rect.X != 400 || frame.Rect.Y != 0 {
		t.Errorf("expected drag clamped to (400, 0), got (%d, %d)", frame.Rect.X, frame.Rect.Y)
	}

	hub.handle(Inbound{Type: TypeResize, ID: id, DW: 500, DH: -1000})
	frame = next(t, c, TypeFrame)
	if frame.Rect.Width != 700 || frame.Rect.Height != 200 {
		t.Errorf("expected resize clamped to 700x200, got %dx%d", frame.Rect.Width, frame.Rect.Height)
	}
}

func TestResizeIgnoredWhenNotResizable(t *testing.T) {
	hub := newTestHub()
	r := newRegistry(t, hub)

	id, _ := r.Open("a", map[string]any{"animate": false, "resizable": false}, nil)
	s, _ := hub.Surface(id)
	before := s.Rect()

	hub.handle(Inbound{Type: TypeResize, ID: id, DW: 100, DH: 100})
	if s.Rect() != before {
		t.Errorf("expected rect unchanged, got %+v", s.Rect())
	}
}

func TestPlacement(t *testing.T) {
	hub := newTestHub()
	r := newRegistry(t, hub)
	id, _ := r.Open("a", map[string]any{"animate": false}, nil)
	s, _ := hub.Surface(id)

	hub.handle(Inbound{Type: TypePlacement, ID: id, Placement: geometry.Placement{
		Left: "120px", Top: "40px", Width: "320px", Height: "240px",
	}})
	if got := s.Rect(); got != (geometry.Rect{X: 120, Y: 40, Width: 320, Height: 240}) {
		t.Errorf("unexpected rect %+v", got)
	}

	hub.handle(Inbound{Type: TypePlacement, ID: id, Placement: geometry.Placement{
		Left: "1em", Top: "40px", Width: "320px", Height: "240px",
	}})
	if got := s.Rect(); got.X != 120 {
		t.Errorf("expected malformed placement ignored, got %+v", got)
	}
}

func TestViewportUpdate(t *testing.T) {
	hub := newTestHub()
	hub.handle(Inbound{Type: TypeViewport, Width: 640, Height: 480})
	if hub.Viewport() != (geometry.Size{Width: 640, Height: 480}) {
		t.Errorf("unexpected viewport %+v", hub.Viewport())
	}

	hub.handle(Inbound{Type: TypeViewport, Width: 0, Height: 480})
	if hub.Viewport().Width != 640 {
		t.Error("expected invalid viewport ignored")
	}
}

func TestAnimatedCloseWaitsForAck(t *testing.T) {
	hub := newTestHub()
	c := hub.register()
	r := newRegistry(t, hub)

	id, _ := r.Open("a", nil, nil)
	r.Close(id)

	next(t, c, TypeOutro)
	if _, ok := hub.Surface(id); !ok {
		t.Fatal("expected surface mounted until the outro finishes")
	}

	hub.handle(Inbound{Type: TypeOutroDone, ID: id})
	hub.handle(Inbound{Type: TypeOutroDone, ID: id})
	next(t, c, TypeDestroy)
	if _, ok := hub.Surface(id); ok {
		t.Error("expected surface removed after outro")
	}
}

func TestAnimatedCloseTimesOut(t *testing.T) {
	hub := NewHub(geometry.Size{Width: 1000, Height: 800}, 20*time.Millisecond)
	c := hub.register()
	r := newRegistry(t, hub)

	id, _ := r.Open("a", nil, nil)
	r.Close(id)

	next(t, c, TypeDestroy)
	if _, ok := hub.Surface(id); ok {
		t.Error("expected surface removed after timeout")
	}
}

func TestAnimatedCloseWithoutPagesIsImmediate(t *testing.T) {
	hub := newTestHub()
	r := newRegistry(t, hub)

	id, _ := r.Open("a", nil, nil)
	r.Close(id)

	if _, ok := hub.Surface(id); ok {
		t.Error("expected immediate destroy with no connected page")
	}
}

func TestButtonHandler(t *testing.T) {
	hub := newTestHub()
	r := newRegistry(t, hub)
	id, _ := r.Open("a", map[string]any{"animate": false}, nil)

	got := make(chan string, 1)
	hub.OnButton(func(wid wm.ID, action string) {
		if wid == id {
			got <- action
		}
	})

	hub.handle(Inbound{Type: TypeButton, ID: id, Action: "help"})
	select {
	case action := <-got:
		if action != "help" {
			t.Errorf("expected help, got %s", action)
		}
	case <-time.After(time.Second):
		t.Fatal("button handler not called")
	}
}

func TestBodyOverflowBroadcastOnlyOnChange(t *testing.T) {
	hub := newTestHub()
	c := hub.register()
	next(t, c, TypeBodyOverflow) // initial state

	hub.SetBodyOverflowHidden(false)
	hub.SetBodyOverflowHidden(true)

	msg := next(t, c, TypeBodyOverflow)
	if msg.Hidden == nil || !*msg.Hidden {
		t.Errorf("expected hidden=true, got %+v", msg)
	}
	select {
	case data := <-c.send:
		t.Errorf("unexpected extra message %s", data)
	default:
	}
}
