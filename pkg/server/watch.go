package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Message is sent to watchers each time the watched cell changes. The first
// message carries the value at connection time.
type Message struct {
	Cell  string `json:"cell"`
	Value any    `json:"value"`
	Seq   uint64 `json:"seq"`
}

// watcher is one WebSocket connection following one cell.
type watcher struct {
	id   string
	cell string
	conn *websocket.Conn

	// seq and closed are guarded by Server.mu; reactions run under it.
	seq    uint64
	closed bool
	send   chan []byte

	stop func()
	done chan struct{}
	once sync.Once
}

// enqueue must be called with Server.mu held. It reports false when the
// queue is full.
func (w *watcher) enqueue(v any) (bool, error) {
	if w.closed {
		return true, nil
	}
	w.seq++
	data, err := json.Marshal(Message{Cell: w.cell, Value: v, Seq: w.seq})
	if err != nil {
		return true, err
	}
	select {
	case w.send <- data:
		return true, nil
	default:
		return false, nil
	}
}

// close must be called with Server.mu held.
func (w *watcher) close() {
	w.once.Do(func() {
		w.closed = true
		close(w.send)
	})
}

func (s *Server) handleWatch(rw http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.mu.Lock()
	_, err := s.sheet.Kind(name)
	s.mu.Unlock()
	if err != nil {
		s.writeError(rw, err)
		return
	}

	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	w := &watcher{
		id:   uuid.NewString(),
		cell: name,
		conn: conn,
		send: make(chan []byte, s.config.WatchBuffer),
		done: make(chan struct{}),
	}
	logger := s.logger.With("watcher", w.id, "cell", name)

	go s.writeLoop(w, logger)

	s.mu.Lock()
	stop, err := s.sheet.Watch(name, func(v any) error {
		ok, err := w.enqueue(v)
		if err != nil {
			logger.Error("encode failed", "error", err)
			return nil
		}
		s.metrics.messages.Inc()
		if !ok {
			logger.Warn("watcher too slow, disconnecting")
			s.metrics.dropped.Inc()
			w.close()
		}
		return nil
	})
	if err != nil {
		w.close()
		s.mu.Unlock()
		<-w.done
		logger.Error("watch failed", "error", err)
		return
	}
	w.stop = stop
	s.mu.Unlock()

	s.addWatcher(w)
	logger.Info("watcher connected")

	// Clients never send anything; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				logger.Warn("read error", "error", err)
			}
			break
		}
	}

	s.removeWatcher(w)
	<-w.done
	logger.Info("watcher disconnected")
}

// writeLoop sends queued messages until the queue is closed, then closes
// the connection.
func (s *Server) writeLoop(w *watcher, logger *slog.Logger) {
	defer close(w.done)
	defer w.conn.Close()

	for data := range w.send {
		w.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Warn("write error", "error", err)
			s.mu.Lock()
			w.close()
			s.mu.Unlock()
			// Drain so reactions never block on a dead connection.
			for range w.send {
			}
			return
		}
	}
	w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (s *Server) addWatcher(w *watcher) {
	s.wmu.Lock()
	s.watchers[w.id] = w
	n := len(s.watchers)
	s.wmu.Unlock()
	s.metrics.watchers.Set(float64(n))
}

// removeWatcher stops w's watch and closes its queue.
func (s *Server) removeWatcher(w *watcher) {
	s.mu.Lock()
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
	w.close()
	s.mu.Unlock()

	s.wmu.Lock()
	delete(s.watchers, w.id)
	n := len(s.watchers)
	s.wmu.Unlock()
	s.metrics.watchers.Set(float64(n))
}

// WatcherCount returns the number of connected watchers.
func (s *Server) WatcherCount() int {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return len(s.watchers)
}

// closeWatchers closes every watcher's queue. Their writers send a close
// frame and their handlers clean up once the connection ends.
func (s *Server) closeWatchers() {
	s.wmu.Lock()
	ws := make([]*watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		ws = append(ws, w)
	}
	s.wmu.Unlock()

	s.mu.Lock()
	for _, w := range ws {
		w.close()
	}
	s.mu.Unlock()
}
