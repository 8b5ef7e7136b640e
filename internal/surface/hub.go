package surface

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/bryanchriswhite/deskpane/internal/geometry"
	"github.com/bryanchriswhite/deskpane/internal/logger"
	"github.com/bryanchriswhite/deskpane/internal/wm"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Hub fans window state out to every connected page and routes page input
// to the matching Remote surface.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*client
	surfaces     map[wm.ID]*Remote
	viewport     geometry.Size
	outroTimeout time.Duration
	bodyHidden   bool
	onButton     func(id wm.ID, action string)
}

type client struct {
	id   string
	send chan []byte
}

// NewHub creates a hub. viewport is used for centering and drag limits
// until a page reports its own size.
func NewHub(viewport geometry.Size, outroTimeout time.Duration) *Hub {
	return &Hub{
		clients:      make(map[string]*client),
		surfaces:     make(map[wm.ID]*Remote),
		viewport:     viewport,
		outroTimeout: outroTimeout,
	}
}

// Viewport returns the current viewport size.
func (h *Hub) Viewport() geometry.Size {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewport
}

// SetViewport updates the viewport size.
func (h *Hub) SetViewport(s geometry.Size) {
	h.mu.Lock()
	h.viewport = s
	h.mu.Unlock()
}

// OutroTimeout returns how long an outro may take before the window is
// destroyed anyway.
func (h *Hub) OutroTimeout() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.outroTimeout
}

// SetOutroTimeout changes the outro timeout for future closes.
func (h *Hub) SetOutroTimeout(d time.Duration) {
	h.mu.Lock()
	h.outroTimeout = d
	h.mu.Unlock()
}

// OnButton registers the handler for custom titlebar button clicks.
func (h *Hub) OnButton(fn func(id wm.ID, action string)) {
	h.mu.Lock()
	h.onButton = fn
	h.mu.Unlock()
}

// ClientCount returns the number of connected pages.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Surface returns the mounted surface for id.
func (h *Hub) Surface(id wm.ID) (*Remote, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.surfaces[id]
	return r, ok
}

// Rects returns the current placement of every mounted window.
func (h *Hub) Rects() map[wm.ID]geometry.Rect {
	rects := make(map[wm.ID]geometry.Rect)
	for _, r := range h.snapshot() {
		rects[r.id] = r.Rect()
	}
	return rects
}

// BodyOverflowHidden reports the body overflow state last sent to pages.
func (h *Hub) BodyOverflowHidden() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bodyHidden
}

// SetBodyOverflowHidden tells pages whether to suppress body scrollbars.
func (h *Hub) SetBodyOverflowHidden(hidden bool) {
	h.mu.Lock()
	changed := h.bodyHidden != hidden
	h.bodyHidden = hidden
	h.mu.Unlock()

	if changed {
		h.broadcast(Outbound{Type: TypeBodyOverflow, Hidden: boolPtr(hidden)})
	}
}

func (h *Hub) add(r *Remote) {
	h.mu.Lock()
	h.surfaces[r.id] = r
	h.mu.Unlock()
}

func (h *Hub) remove(id wm.ID) {
	h.mu.Lock()
	delete(h.surfaces, id)
	h.mu.Unlock()
}

// snapshot returns mounted surfaces ordered by id.
func (h *Hub) snapshot() []*Remote {
	h.mu.RLock()
	list := make([]*Remote, 0, len(h.surfaces))
	for _, r := range h.surfaces {
		list = append(list, r)
	}
	h.mu.RUnlock()

	slices.SortFunc(list, func(a, b *Remote) int { return int(a.id - b.id) })
	return list
}

func (h *Hub) broadcast(msg Outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.WithComponent("surface").Error().Err(err).Str("type", msg.Type).Msg("Failed to encode message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			logger.WithComponent("surface").Warn().
				Str("client", c.id).
				Str("type", msg.Type).
				Msg("Client send buffer full, dropping message")
		}
	}
}

// register adds a client and queues the current desktop for it.
func (h *Hub) register() *client {
	c := &client{id: uuid.NewString(), send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c.id] = c
	hidden := h.bodyHidden
	h.mu.Unlock()

	queue := func(msg Outbound) {
		data, err := json.Marshal(msg)
		if err != nil {
			return
		}
		select {
		case c.send <- data:
		default:
		}
	}

	queue(Outbound{Type: TypeBodyOverflow, Hidden: boolPtr(hidden)})
	for _, r := range h.snapshot() {
		queue(r.mountMessage(false))
	}

	logger.WithComponent("surface").Info().Str("client", c.id).Msg("Page connected")
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()

	logger.WithComponent("surface").Info().Str("client", c.id).Msg("Page disconnected")
}

// handle routes one page message.
func (h *Hub) handle(msg Inbound) {
	log := logger.WithWindow("surface", int(msg.ID))

	if msg.Type == TypeViewport {
		if msg.Width <= 0 || msg.Height <= 0 {
			log.Warn().Int("width", msg.Width).Int("height", msg.Height).Msg("Ignoring invalid viewport")
			return
		}
		h.SetViewport(geometry.Size{Width: msg.Width, Height: msg.Height})
		return
	}

	r, ok := h.Surface(msg.ID)
	if !ok {
		log.Debug().Str("type", msg.Type).Msg("Message for unmounted window")
		return
	}

	switch msg.Type {
	case TypeClose:
		r.emit(wm.EventClose)
	case TypeActivate:
		r.emit(wm.EventActivate)
	case TypeDrag:
		r.drag(msg.DX, msg.DY, h.Viewport())
	case TypeResize:
		r.resize(msg.DW, msg.DH)
	case TypeOutroDone:
		r.finishOutro()
	case TypePlacement:
		if err := r.place(msg.Placement); err != nil {
			log.Warn().Err(err).Msg("Ignoring malformed placement")
		}
	case TypeButton:
		h.mu.RLock()
		fn := h.onButton
		h.mu.RUnlock()
		if fn != nil {
			fn(msg.ID, msg.Action)
		}
	default:
		log.Warn().Str("type", msg.Type).Msg("Unknown message type")
	}
}

// Serve pumps messages for one websocket connection until it closes.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := h.register()
	defer h.unregister(c)

	go writePump(conn, c.send)

	for {
		var msg Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithComponent("surface").Warn().Err(err).Str("client", c.id).Msg("WebSocket read error")
			}
			return
		}
		h.handle(msg)
	}
}

func writePump(conn *websocket.Conn, send <-chan []byte) {
	defer conn.Close()

	for data := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.WithComponent("surface").Warn().Err(err).Msg("WebSocket write error")
			return
		}
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
