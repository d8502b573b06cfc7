package synth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fetcher produces audio for text. *Upstream is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, text string) ([]byte, string, error)
}

const maxBodyBytes = 16 << 10

// NewRouter wires the proxy endpoints.
func NewRouter(f Fetcher, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/api/tts", Speak(f, log))
	r.Get("/healthz", Healthz)
	return r
}

// Speak validates {text}, forwards it upstream and streams the audio back.
//
// Responses: 400 for a malformed body, a non-string text, whitespace-only text or more than
// MaxTextLength characters; 503 when the upstream is unreachable or answers non-2xx, so a
// transport failure is 503 rather than a generic 500; 500 for any other fetch error.
func Speak(f Fetcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		start := time.Now()
		l := log.With(zap.String("request", id))

		var body struct {
			Text any `json:"text"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid text")
			return
		}
		text, ok := body.Text.(string)
		if !ok || Validate(text) != nil {
			writeError(w, http.StatusBadRequest, "Invalid text")
			return
		}

		data, ct, err := f.Fetch(r.Context(), text)
		switch {
		case errors.Is(err, ErrUnavailable):
			l.Warn("upstream synthesis failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "TTS unavailable")
			return
		case err != nil:
			l.Error("synthesis error", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "TTS error")
			return
		}

		w.Header().Set("Content-Type", ct)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		l.Info("synthesized", zap.Int("chars", len(text)), zap.Int("bytes", len(data)), zap.Duration("took", time.Since(start)))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
}
