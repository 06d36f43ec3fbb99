// Package media serves objects from durable storage over HTTP so clients
// never need storage credentials.
package media

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/Maxlottie/pray-production-studio/internal/storage"
)

type Server struct {
	store  storage.Store
	logger *slog.Logger
}

func NewServer(store storage.Store, logger *slog.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// ServeKey streams the object stored under key. Range and conditional
// requests are handled by http.ServeContent.
func (s *Server) ServeKey(w http.ResponseWriter, r *http.Request, key string) error {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if s.store == nil || key == "" {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}

	obj, err := s.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "private, max-age=3600")

	http.ServeContent(w, r, path.Base(key), obj.ModTime, obj.Body)
	return nil
}

// Handler serves GET requests for keys below prefix.
func (s *Server) Handler(prefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, prefix)
		if err := s.ServeKey(w, r, key); err != nil {
			if s.logger != nil {
				s.logger.Error("media proxy failed", "key", key, "error", err)
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	})
}
