package audio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// ErrSourceClosed is returned by Capture once the source has been stopped.
var ErrSourceClosed = errors.New("audio source closed")

const maxUploadBytes = 10 * 1024 * 1024

// HTTPSource receives utterances as HTTP uploads. Each upload satisfies one
// pending Capture call.
type HTTPSource struct {
	audioChan chan []byte
	done      chan struct{}
	logger    *slog.Logger
	closeOnce sync.Once
}

func NewHTTPSource(logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		audioChan: make(chan []byte, 1),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

func (h *HTTPSource) Name() string {
	return "http"
}

func (h *HTTPSource) Start(_ context.Context) error {
	return nil
}

func (h *HTTPSource) Stop() error {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	return nil
}

func (h *HTTPSource) Capture(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrSourceClosed
	case audio := <-h.audioChan:
		return audio, nil
	}
}

// InjectAudio queues data for the next Capture. It reports false when an
// earlier upload is still waiting to be consumed.
func (h *HTTPSource) InjectAudio(data []byte) bool {
	select {
	case h.audioChan <- data:
		return true
	default:
		return false
	}
}

// Handler accepts a raw audio body.
func (h *HTTPSource) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			h.logger.Error("reading audio body", "error", err)
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		if len(data) == 0 {
			http.Error(w, "empty audio", http.StatusBadRequest)
			return
		}

		if !h.InjectAudio(data) {
			http.Error(w, "queue full, try again", http.StatusServiceUnavailable)
			return
		}

		h.logger.Info("received audio via HTTP", "bytes", len(data))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{"status": "received", "bytes": len(data)})
	}
}
