package store

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/example/boxmark/internal/raster"
)

// maxRecordBytes bounds the size of a POST /save body.
const maxRecordBytes = 64 << 20

// Server exposes a Store over the endpoints the web editor uses:
//
//	GET    /overview[?thumb=N]
//	POST   /save
//	GET    /load/{id}
//	DELETE /delete/{id}
//	GET    /events (websocket)
type Server struct {
	store  Store
	hub    *Hub
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer wires the handlers. hub may be nil to disable /events.
func NewServer(st Store, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: st, hub: hub, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /overview", s.handleOverview)
	s.mux.HandleFunc("POST /save", s.handleSave)
	s.mux.HandleFunc("GET /load/{id}", s.handleLoad)
	s.mux.HandleFunc("DELETE /delete/{id}", s.handleDelete)
	if hub != nil {
		s.mux.Handle("GET /events", hub)
	}
	return s
}

// ServeHTTP adds permissive CORS headers and logs each request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	images, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("thumb")); err == nil && n > 0 {
		for i := range images {
			th, err := raster.ThumbnailDataURL(images[i].Image, n)
			if err != nil {
				s.logger.Warn("thumbnail", "id", images[i].IDValue(), "err", err)
				continue
			}
			images[i].Image = th
		}
	}
	writeJSON(w, http.StatusOK, images)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var img EditorImage
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBytes))
	if err := dec.Decode(&img); err != nil {
		writeError(w, http.StatusBadRequest, "invalid record: "+err.Error())
		return
	}
	if img.OriginImage == "" {
		writeError(w, http.StatusBadRequest, "origin_image is required")
		return
	}
	if img.Image == "" {
		img.Image = img.OriginImage
	}
	saved, err := s.store.Save(r.Context(), img)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("saved image", "id", saved.IDValue(), "boxes", len(saved.Boxes))
	s.publish(Event{Op: OpSave, ID: saved.IDValue()})
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	img, err := s.store.Load(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("deleted image", "id", id)
	s.publish(Event{Op: OpDelete, ID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) publish(ev Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("store", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
