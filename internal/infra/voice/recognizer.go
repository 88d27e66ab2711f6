package voice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"purpose-ideas/internal/application"
	"purpose-ideas/internal/domain"
	"purpose-ideas/internal/speech"
)

// Recognizer captures one utterance per session and transcribes it in the
// session language. Stop ends capture early; whatever was already captured
// is still transcribed before the session ends.
type Recognizer struct {
	source  application.AudioSource
	stt     application.SpeechToText
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	sessions map[speech.SessionID]context.CancelFunc
	wg       sync.WaitGroup
}

func NewRecognizer(source application.AudioSource, stt application.SpeechToText, logger *slog.Logger) *Recognizer {
	return &Recognizer{
		source:   source,
		stt:      stt,
		logger:   logger,
		timeout:  60 * time.Second,
		sessions: make(map[speech.SessionID]context.CancelFunc),
	}
}

func (r *Recognizer) Listen(id speech.SessionID, locale domain.Locale, sink speech.Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return fmt.Errorf("recognition session %s already running", id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.sessions[id] = cancel

	r.wg.Add(1)
	go r.run(ctx, id, locale, sink)
	return nil
}

func (r *Recognizer) Stop(id speech.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cancel, ok := r.sessions[id]; ok {
		cancel()
	}
}

// Close stops every session and waits for them to finish.
func (r *Recognizer) Close() {
	r.mu.Lock()
	for _, cancel := range r.sessions {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recognizer) run(captureCtx context.Context, id speech.SessionID, locale domain.Locale, sink speech.Sink) {
	defer r.wg.Done()
	defer r.finish(id)

	sink(speech.Event{Session: id, Kind: speech.EventStarted})

	audio, err := r.source.Capture(captureCtx)
	if err != nil {
		if captureCtx.Err() != nil {
			r.logger.Debug("dictation stopped before any audio", "session", id)
			sink(speech.Event{Session: id, Kind: speech.EventEnded})
			return
		}
		sink(speech.Event{Session: id, Kind: speech.EventError, Err: fmt.Errorf("capturing audio from %s: %w", r.source.Name(), err)})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	text, err := r.stt.Transcribe(ctx, audio, locale.Language())
	if err != nil {
		sink(speech.Event{Session: id, Kind: speech.EventError, Err: fmt.Errorf("transcribing: %w", err)})
		return
	}

	if text = strings.TrimSpace(text); text != "" {
		sink(speech.Event{Session: id, Kind: speech.EventFinalResult, Text: text})
	}
	sink(speech.Event{Session: id, Kind: speech.EventEnded})
}

func (r *Recognizer) finish(id speech.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cancel, ok := r.sessions[id]; ok {
		cancel()
		delete(r.sessions, id)
	}
}
