package stream

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Sink is an append-only output target. Flush makes everything written so
// far visible to the reader.
type Sink interface {
	io.Writer
	Flush() error
}

// =============================================================================
// HTTP
// =============================================================================

// HTTPSink writes to an http.ResponseWriter, flushing through http.Flusher
// when the writer supports it.
type HTTPSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	written bool
}

// NewHTTPSink creates a sink for w.
func NewHTTPSink(w http.ResponseWriter) *HTTPSink {
	flusher, _ := w.(http.Flusher)
	return &HTTPSink{w: w, flusher: flusher}
}

// Write implements io.Writer.
func (s *HTTPSink) Write(p []byte) (int, error) {
	s.written = true
	return s.w.Write(p)
}

// Flush implements Sink.
func (s *HTTPSink) Flush() error {
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Written reports whether any bytes reached the response.
func (s *HTTPSink) Written() bool {
	return s.written
}

// =============================================================================
// Writer
// =============================================================================

// WriterSink wraps an io.Writer. Flush is a no-op that only counts calls.
type WriterSink struct {
	io.Writer
	FlushCount int
}

// Flush implements Sink.
func (w *WriterSink) Flush() error {
	w.FlushCount++
	return nil
}

// =============================================================================
// Buffer
// =============================================================================

// BufferSink collects output in memory and records each flushed chunk.
// It is safe for concurrent use.
type BufferSink struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	pending int
	chunks  []string
}

// Write implements io.Writer.
func (b *BufferSink) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending += len(p)
	return b.buf.Write(p)
}

// Flush implements Sink. It records the bytes written since the last flush.
func (b *BufferSink) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	all := b.buf.Bytes()
	b.chunks = append(b.chunks, string(all[len(all)-b.pending:]))
	b.pending = 0
	return nil
}

// String returns everything written so far.
func (b *BufferSink) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Chunks returns the flushed chunks in order.
func (b *BufferSink) Chunks() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.chunks))
	copy(out, b.chunks)
	return out
}

// =============================================================================
// WebSocket
// =============================================================================

// WebSocketSink sends each flushed chunk as one text message.
type WebSocketSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	buf          bytes.Buffer
}

// NewWebSocketSink creates a sink for conn. A zero writeTimeout disables
// write deadlines.
func NewWebSocketSink(conn *websocket.Conn, writeTimeout time.Duration) *WebSocketSink {
	return &WebSocketSink{conn: conn, writeTimeout: writeTimeout}
}

// Write implements io.Writer. Nothing is sent until Flush.
func (s *WebSocketSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Flush implements Sink.
func (s *WebSocketSink) Flush() error {
	if s.buf.Len() == 0 {
		return nil
	}
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	err := s.conn.WriteMessage(websocket.TextMessage, s.buf.Bytes())
	s.buf.Reset()
	return err
}

// Close sends a close frame with the given code and reason.
func (s *WebSocketSink) Close(code int, reason string) error {
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
