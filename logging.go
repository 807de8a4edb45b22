package main

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/fracture-detection-service/models"
)

type contextKey int

const logEntryKey contextKey = iota

func newLogger(debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// withRequestLogger tags each request with an ID and stores a request
// scoped entry in its context.
func (s *AppState) withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		entry := s.Logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), logEntryKey, entry)
		next.ServeHTTP(w, r.WithContext(ctx))
		entry.WithField("duration", time.Since(start)).Debug("Request handled")
	})
}

func requestLogger(r *http.Request) *logrus.Entry {
	if entry, ok := r.Context().Value(logEntryKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func requestID(log *logrus.Entry) string {
	if id, ok := log.Data["request_id"].(string); ok {
		return id
	}
	return uuid.NewString()
}

func logTimings(log *logrus.Entry, t *models.ProcessingTimings) {
	log.WithFields(logrus.Fields{
		"image_decode": t.ImageDecode,
		"stage":        t.Stage,
		"inference":    t.Inference,
		"summary":      t.Summary,
		"total":        t.Total,
	}).Debug("Processing times")
}
