// Package httpapi serves the daemon's status surface: health, current
// reading, history and a live SSE stream. It runs beside the monitor
// loop and never blocks it.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danglock/ict-temperature/internal/readings"
	"github.com/danglock/ict-temperature/internal/version"
)

// Info holds the static facts of this daemon instance, reported by
// /api/status next to the store's counters.
type Info struct {
	DevicePattern   string
	DeviceID        string
	DeviceConnected bool
	QueueDriver     string
	QueueName       string
	Interval        time.Duration
}

type Server struct {
	store     *readings.Store
	info      Info
	startedAt time.Time
}

func New(store *readings.Store, info Info) *Server {
	return &Server{store: store, info: info, startedAt: time.Now()}
}

// Handler returns the router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain")
		_, _ = w.Write([]byte(version.String()))
	})
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/readings", s.handleReadings)
	r.Get("/api/stream/readings", s.handleStream)
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "application/json")
	st := s.store.Stats()
	body := map[string]any{
		"started_at":       s.startedAt.Format(time.RFC3339),
		"uptime_s":         int64(time.Since(s.startedAt).Seconds()),
		"device_pattern":   s.info.DevicePattern,
		"device_id":        s.info.DeviceID,
		"device_connected": s.info.DeviceConnected,
		"queue_driver":     s.info.QueueDriver,
		"queue_name":       s.info.QueueName,
		"interval_s":       int64(s.info.Interval.Seconds()),
		"ticks":            st.Ticks,
		"publish_ok":       st.PublishOK,
		"publish_fail":     st.PublishFail,
		"last_error":       st.LastError,
	}
	if last, ok := s.store.Last(); ok {
		body["last_reading"] = last
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "application/json")
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		limit, _ = strconv.Atoi(q)
	}
	out := s.store.Recent(limit)
	if out == nil {
		out = []readings.Entry{}
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusBadRequest)
		return
	}

	w.Header().Set("content-type", "text/event-stream")
	w.Header().Set("cache-control", "no-cache")
	w.Header().Set("connection", "keep-alive")

	ctx := r.Context()
	ch := s.store.Subscribe(ctx)

	send := func() {
		last, ok := s.store.Last()
		if !ok {
			return
		}
		b, _ := json.Marshal(last)
		_, _ = fmt.Fprintf(w, "event: reading\ndata: %s\n\n", b)
		flusher.Flush()
	}
	send()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			send()
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, "event: ping\ndata: 1\n\n")
			flusher.Flush()
		}
	}
}
