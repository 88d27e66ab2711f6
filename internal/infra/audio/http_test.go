package audio_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"purpose-ideas/internal/infra/audio"
)

func TestHTTPSource_CaptureReceivesInjectedAudio(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := audio.NewHTTPSource(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	testAudio := []byte("fake audio data for testing")

	go func() {
		time.Sleep(50 * time.Millisecond)
		source.InjectAudio(testAudio)
	}()

	received, err := source.Capture(ctx)
	if err != nil {
		t.Fatalf("capturing audio: %v", err)
	}

	if !bytes.Equal(received, testAudio) {
		t.Errorf("audio mismatch: got %d bytes, want %d bytes", len(received), len(testAudio))
	}
}

func TestHTTPSource_Handler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := audio.NewHTTPSource(logger)
	handler := source.Handler()

	post := func(body []byte) int {
		req := httptest.NewRequest(http.MethodPost, "/api/speech/audio", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post(nil); code != http.StatusBadRequest {
		t.Errorf("empty body: got %d, want %d", code, http.StatusBadRequest)
	}
	if code := post([]byte("utterance one")); code != http.StatusAccepted {
		t.Errorf("first upload: got %d, want %d", code, http.StatusAccepted)
	}
	if code := post([]byte("utterance two")); code != http.StatusServiceUnavailable {
		t.Errorf("second upload while first pending: got %d, want %d", code, http.StatusServiceUnavailable)
	}
}

func TestHTTPSource_StopUnblocksCapture(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := audio.NewHTTPSource(logger)

	go func() {
		time.Sleep(50 * time.Millisecond)
		source.Stop()
	}()

	_, err := source.Capture(context.Background())
	if !errors.Is(err, audio.ErrSourceClosed) {
		t.Errorf("error: got %v, want %v", err, audio.ErrSourceClosed)
	}
}

func TestFileSource_LoadFromDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	testCases := []struct {
		filename string
		content  []byte
	}{
		{"command1.wav", []byte("RIFF....WAVEfmt audio data 1")},
		{"command2.wav", []byte("RIFF....WAVEfmt audio data 2")},
		{"notes.txt", []byte("ignored")},
	}

	for _, tc := range testCases {
		path := filepath.Join(tmpDir, tc.filename)
		if err := os.WriteFile(path, tc.content, 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}
	}

	source := audio.NewFileSource(tmpDir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := source.Start(ctx); err != nil {
		t.Fatalf("starting source: %v", err)
	}

	audio1, err := source.Capture(ctx)
	if err != nil {
		t.Fatalf("reading first utterance: %v", err)
	}
	if !bytes.Equal(audio1, testCases[0].content) {
		t.Errorf("first utterance: got %q", audio1)
	}

	audio2, err := source.Capture(ctx)
	if err != nil {
		t.Fatalf("reading second utterance: %v", err)
	}
	if !bytes.Equal(audio2, testCases[1].content) {
		t.Errorf("second utterance: got %q", audio2)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "command1.wav.processed")); err != nil {
		t.Errorf("expected processed marker: %v", err)
	}
}

func TestFileSource_CaptureHonoursContext(t *testing.T) {
	source := audio.NewFileSource(t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := source.Capture(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error: got %v, want %v", err, context.DeadlineExceeded)
	}
}
