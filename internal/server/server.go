package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
	"github.com/marmistrz/ipu6-camera-hal/internal/pipeline"
	"github.com/marmistrz/ipu6-camera-hal/internal/storage"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBody   = 1 << 20
	defaultListing = 50
)

// Server exposes the pipeline over HTTP.
type Server struct {
	addr     string
	store    *storage.Store
	pipeline *pipeline.Pipeline
	log      *slog.Logger
	upgrader websocket.Upgrader
	server   *http.Server
}

// NewServer creates a server for addr. store may be nil, in which case the
// session endpoints report 503.
func NewServer(addr string, store *storage.Store, pipe *pipeline.Pipeline, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		addr:     addr,
		store:    store,
		pipeline: pipe,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.setupRoutes(r)
	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down http server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctxShutdown)
	}()

	s.log.Info("http server starting", "addr", s.addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) setupRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/cameras", s.handleCameras).Methods("GET")
	r.HandleFunc("/cameras/{id:[0-9]+}/frames", s.handleFrame).Methods("POST")
	r.HandleFunc("/cameras/{id:[0-9]+}/params", s.handleParams).Methods("GET")
	r.HandleFunc("/sessions", s.handleSessions).Methods("GET")
	r.HandleFunc("/sessions/{id}/frames", s.handleSessionFrames).Methods("GET")
	r.HandleFunc("/stream", s.handleStream).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleCameras(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cameras": s.pipeline.Cameras()})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	id, err := cameraID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var frame pipeline.Frame
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBody))
	if err := dec.Decode(&frame); err != nil {
		http.Error(w, "decode frame: "+err.Error(), http.StatusBadRequest)
		return
	}
	frame.CameraID = id

	if r.URL.Query().Get("async") == "true" {
		if err := s.pipeline.Submit(frame); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	res, err := s.pipeline.Do(r.Context(), frame)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, aiq.ErrInvalidArgument):
		writeJSON(w, http.StatusUnprocessableEntity, res)
	default:
		http.Error(w, err.Error(), statusFor(err))
	}
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	id, err := cameraID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap, ok := s.pipeline.Latest(id)
	if !ok {
		http.Error(w, "camera has not translated a frame", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListing
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.store.RecentSessions(limit)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if recs == nil {
		recs = []storage.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleSessionFrames(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.SessionFrames(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if recs == nil {
		recs = []storage.FrameRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleStream pushes every pipeline result to a websocket client. Only the
// write loop writes to the connection; the read loop just notices when the
// client goes away and answers pongs.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	results, unsubscribe := s.pipeline.Subscribe()
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	s.log.Debug("stream client connected", "remote", r.RemoteAddr)

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case res, ok := <-results:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "pipeline stopped"))
				return
			}
			if err := conn.WriteJSON(res); err != nil {
				s.log.Debug("stream client dropped", "remote", r.RemoteAddr, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func cameraID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped),
		errors.Is(err, storage.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
