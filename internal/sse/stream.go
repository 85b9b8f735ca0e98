// Package sse writes server-sent events on a single HTTP response.
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/learnloop-backend/internal/platform/logger"
)

type Event string

const (
	EventDelta Event = "delta"
	EventDone  Event = "done"
	EventError Event = "error"
)

var (
	ErrStreamingUnsupported = errors.New("streaming unsupported")
	ErrClosed               = errors.New("stream closed")
)

// Stream is safe for concurrent use; writes are serialized.
type Stream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	log     *logger.Logger
	closed  bool
}

// Open writes the event-stream headers. Nothing is sent until the first event.
func Open(w http.ResponseWriter, log *logger.Logger) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	if log == nil {
		log = logger.Nop()
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Stream{w: w, flusher: flusher, log: log.With("component", "SSEStream")}, nil
}

func (s *Stream) Send(event Event, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		s.log.Warn("Failed to marshal SSE message", "event", event, "error", err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// KeepAlive sends a comment line every interval until ctx ends, so proxies keep the connection open
// while the model is thinking.
func (s *Stream) KeepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			_, err := fmt.Fprint(s.w, ": ping "+strings.Repeat("#", 16)+"\n\n")
			if err == nil {
				s.flusher.Flush()
			}
			s.mu.Unlock()
			if err != nil {
				s.log.Debug("SSE keep-alive stopped", "error", err)
				return
			}
		}
	}
}

// Close stops all further writes. The response itself is finished by the HTTP server.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
