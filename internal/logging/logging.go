// Package logging provides structured JSON logging for the production studio.
// It uses the standard library log/slog package for structured logging.
package logging

import (
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// NewLogger creates a new structured JSON logger with the specified log level.
// Supported levels: debug, info, warn, error
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: lvl,
		// Add source location for debug level
		AddSource: lvl == slog.LevelDebug,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// WithRequestID returns a logger with request_id attribute
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithComponent returns a logger with component attribute
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

func WithProjectID(logger *slog.Logger, projectID string) *slog.Logger {
	return logger.With("project_id", projectID)
}

func WithShotID(logger *slog.Logger, shotID string) *slog.Logger {
	return logger.With("shot_id", shotID)
}

// WithGenerationID tags a logger with an image or video generation id.
func WithGenerationID(logger *slog.Logger, generationID string) *slog.Logger {
	return logger.With("generation_id", generationID)
}

// SanitizeToken masks a token for safe logging.
// Shows first 4 and last 4 characters only.
// Returns "****" for tokens shorter than 8 characters.
func SanitizeToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeURL drops the query string and fragment of a media URL.
// Provider result URLs are signed and must not end up in logs.
// Data URIs are reduced to their media type.
func SanitizeURL(raw string) string {
	if strings.HasPrefix(raw, "data:") {
		if idx := strings.Index(raw, ","); idx != -1 {
			return raw[:idx] + ",..."
		}
		return "data:..."
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
