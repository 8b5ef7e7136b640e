// Package output streams rendered frames to HTTP clients.
package output

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"

	"github.com/bryanchriswhite/deskpane/internal/logger"
)

// DefaultQuality is the JPEG quality used when none is given.
const DefaultQuality = 85

// MJPEGStream broadcasts frames as Motion JPEG over HTTP. Slow clients skip
// frames instead of blocking the writer.
type MJPEGStream struct {
	quality int

	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	closed  bool
	frames  uint64
}

// NewMJPEGStream creates a stream. quality outside 1..100 selects
// DefaultQuality.
func NewMJPEGStream(quality int) *MJPEGStream {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &MJPEGStream{
		quality: quality,
		clients: make(map[chan []byte]struct{}),
	}
}

// ClientCount returns the number of connected viewers.
func (m *MJPEGStream) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Frames returns how many frames were written.
func (m *MJPEGStream) Frames() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frames
}

// WriteFrame encodes frame once and sends it to every client.
func (m *MJPEGStream) WriteFrame(frame image.Image) error {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: m.quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	data := buf.Bytes()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("MJPEG stream closed")
	}
	m.frames++

	for ch := range m.clients {
		select {
		case ch <- data:
		default:
			// slow client, skip this frame
		}
	}
	return nil
}

// Close disconnects every client. Later WriteFrame calls fail.
func (m *MJPEGStream) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for ch := range m.clients {
		close(ch)
	}
	m.clients = make(map[chan []byte]struct{})

	logger.WithComponent("output").Info().Uint64("frames", m.frames).Msg("MJPEG stream closed")
}

// ServeHTTP streams frames until the client goes away or the stream closes.
func (m *MJPEGStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	frames := make(chan []byte, 2)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		http.Error(w, "stream closed", http.StatusServiceUnavailable)
		return
	}
	m.clients[frames] = struct{}{}
	count := len(m.clients)
	m.mu.Unlock()

	log := logger.WithComponent("output")
	log.Info().Int("clients", count).Msg("MJPEG client connected")

	defer func() {
		m.mu.Lock()
		if _, ok := m.clients[frames]; ok {
			delete(m.clients, frames)
		}
		count := len(m.clients)
		m.mu.Unlock()
		log.Info().Int("clients", count).Msg("MJPEG client disconnected")
	}()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-frames:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}
