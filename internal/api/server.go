package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bryanchriswhite/deskpane/internal/config"
	"github.com/bryanchriswhite/deskpane/internal/geometry"
	"github.com/bryanchriswhite/deskpane/internal/logger"
	"github.com/bryanchriswhite/deskpane/internal/output"
	"github.com/bryanchriswhite/deskpane/internal/preview"
	"github.com/bryanchriswhite/deskpane/internal/surface"
	"github.com/bryanchriswhite/deskpane/internal/wm"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

const (
	layoutScale    = 0.25
	layoutInterval = 200 * time.Millisecond
)

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	registry  *wm.Registry[string]
	hub       *surface.Hub
	configMgr *config.Manager
	upgrader  websocket.Upgrader
	http      *http.Server
	layout    *output.MJPEGStream
	changes   chan wm.Change
	done      chan struct{}
}

// NewServer creates a new API server and starts mirroring registry changes
// to the connected pages.
func NewServer(registry *wm.Registry[string], hub *surface.Hub, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		registry:  registry,
		hub:       hub,
		configMgr: configMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the page may be served from another origin during development
			},
		},
		layout:  output.NewMJPEGStream(output.DefaultQuality),
		changes: registry.Subscribe(),
		done:    make(chan struct{}),
	}

	s.setupRoutes()
	go s.followRegistry()
	go s.streamLayout()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Windows
	api.HandleFunc("/windows", s.handleListWindows).Methods("GET")
	api.HandleFunc("/windows", s.handleOpenWindow).Methods("POST")
	api.HandleFunc("/windows/{id:[0-9]+}", s.handleGetWindow).Methods("GET")
	api.HandleFunc("/windows/{id:[0-9]+}", s.handleCloseWindow).Methods("DELETE")
	api.HandleFunc("/windows/{id:[0-9]+}/activate", s.handleActivateWindow).Methods("POST")

	// Streams
	api.HandleFunc("/surface", s.handleSurface)
	api.HandleFunc("/events", s.handleEvents)

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/defaults", s.handleGetDefaults).Methods("GET")

	api.HandleFunc("/layout.png", s.handleLayout).Methods("GET")
	api.Handle("/layout.mjpeg", s.layout).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// Handler returns the router wrapped with CORS headers.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves HTTP on port until Shutdown is called.
func (s *Server) Start(port int) error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.WithComponent("api").Info().Int("port", port).Msg("Starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and the registry follower.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Close stops following registry changes and ends the layout stream.
func (s *Server) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
		s.registry.Unsubscribe(s.changes)
		s.layout.Close()
	}
}

// followRegistry keeps the pages' body overflow in sync with the registry.
// Each change is only a wakeup: the registry is read directly because
// changes may be dropped when the subscription buffer is full, and a drop
// always leaves a queued change that wakes the loop again.
func (s *Server) followRegistry() {
	for range s.changes {
		s.hub.SetBodyOverflowHidden(s.registry.BodyOverflowHidden())
	}
}

// streamLayout renders the layout for MJPEG viewers while any are connected.
func (s *Server) streamLayout() {
	ticker := time.NewTicker(layoutInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.layout.ClientCount() == 0 {
				continue
			}
			img := preview.Render(s.layoutFrames(), preview.Options{Viewport: s.hub.Viewport(), Scale: layoutScale})
			if err := s.layout.WriteFrame(img); err != nil {
				logger.WithComponent("api").Debug().Err(err).Msg("Layout frame dropped")
			}
		}
	}
}

// layoutFrames lists the mounted windows bottom to top for the preview.
func (s *Server) layoutFrames() []preview.Frame {
	rects := s.hub.Rects()
	active := s.registry.Active()
	frames := make([]preview.Frame, 0, len(rects))
	for _, id := range s.registry.Stack() {
		rect, ok := rects[id]
		if !ok {
			continue
		}
		info, ok := s.registry.Window(id)
		if !ok {
			continue
		}
		frames = append(frames, preview.Frame{Rect: rect, Title: info.Options.Title, Active: id == active})
	}
	return frames
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// WindowView is a window as reported by the API.
type WindowView struct {
	wm.WindowInfo
	Rect *geometry.Rect `json:"rect,omitempty"`
}

// DesktopView is the response of GET /api/windows.
type DesktopView struct {
	Windows            []WindowView `json:"windows"`
	Active             wm.ID        `json:"active"`
	Stack              []wm.ID      `json:"stack"`
	BodyOverflowHidden bool         `json:"body_overflow_hidden"`
}

// OpenRequest is the body of POST /api/windows.
type OpenRequest struct {
	Component string         `json:"component"`
	Options   map[string]any `json:"options,omitempty"`
	Props     any            `json:"props,omitempty"`
}

// OpenResponse is returned after a window opens.
type OpenResponse struct {
	ID wm.ID `json:"id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("Failed to write response")
	}
}

func windowID(r *http.Request) (wm.ID, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return wm.NoWindow, err
	}
	return wm.ID(id), nil
}

func (s *Server) view(info wm.WindowInfo) WindowView {
	v := WindowView{WindowInfo: info}
	if r, ok := s.hub.Surface(info.ID); ok {
		rect := r.Rect()
		v.Rect = &rect
	}
	return v
}

// HTTP Handlers

func (s *Server) handleListWindows(w http.ResponseWriter, r *http.Request) {
	infos := s.registry.Windows()
	views := make([]WindowView, 0, len(infos))
	for _, info := range infos {
		views = append(views, s.view(info))
	}

	writeJSON(w, http.StatusOK, DesktopView{
		Windows:            views,
		Active:             s.registry.Active(),
		Stack:              s.registry.Stack(),
		BodyOverflowHidden: s.registry.BodyOverflowHidden(),
	})
}

func (s *Server) handleOpenWindow(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Component == "" {
		http.Error(w, "component is required", http.StatusBadRequest)
		return
	}

	id, err := s.registry.Open(req.Component, req.Options, req.Props)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, config.ErrInvalidOptions):
			status = http.StatusBadRequest
		case errors.Is(err, wm.ErrRegistryClosed):
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusCreated, OpenResponse{ID: id})
}

func (s *Server) handleGetWindow(w http.ResponseWriter, r *http.Request) {
	id, err := windowID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	info, ok := s.registry.Window(id)
	if !ok {
		http.Error(w, wm.ErrWindowNotFound.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.view(info))
}

// handleCloseWindow always answers 204; closing an unknown window is only
// reported in the server log.
func (s *Server) handleCloseWindow(w http.ResponseWriter, r *http.Request) {
	id, err := windowID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.registry.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateWindow(w http.ResponseWriter, r *http.Request) {
	id, err := windowID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.registry.SetActive(id); err != nil {
		if errors.Is(err, wm.ErrWindowNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSurface attaches a host page to the hub.
func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	s.hub.Serve(conn)
}

// handleEvents streams registry changes as JSON. The subscription starts
// before the upgrade so no change after the handshake is missed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	updates := s.registry.Subscribe()
	defer s.registry.Unsubscribe(updates)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	// Detect client disconnects
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-s.done:
			return
		case change, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(change); err != nil {
				logger.WithComponent("api").Warn().Err(err).Msg("WebSocket write error")
				return
			}
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleGetDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.WindowDefaults())
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	scale := layoutScale
	if v := r.URL.Query().Get("scale"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "invalid scale", http.StatusBadRequest)
			return
		}
		scale = parsed
	}

	w.Header().Set("Content-Type", "image/png")
	if err := preview.Encode(w, s.layoutFrames(), preview.Options{Viewport: s.hub.Viewport(), Scale: scale}); err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("Failed to encode layout preview")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": Version,
		"windows": s.registry.Len(),
		"pages":   s.hub.ClientCount(),
		"viewers": s.layout.ClientCount(),
	})
}
