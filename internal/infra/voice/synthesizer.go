package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"purpose-ideas/internal/application"
	"purpose-ideas/internal/domain"
	"purpose-ideas/internal/speech"
)

// Synthesizer renders text with a TextToSpeech service and plays the result
// on an AudioSink. Cancel stops synthesis or playback and the session ends
// with EventEnded.
type Synthesizer struct {
	tts    application.TextToSpeech
	out    application.AudioSink
	format application.AudioFormat
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[speech.SessionID]context.CancelFunc
	wg       sync.WaitGroup
}

func NewSynthesizer(tts application.TextToSpeech, out application.AudioSink, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		tts:      tts,
		out:      out,
		format:   application.SpeechAudioFormat(),
		logger:   logger,
		sessions: make(map[speech.SessionID]context.CancelFunc),
	}
}

func (s *Synthesizer) Speak(id speech.SessionID, text string, locale domain.Locale, sink speech.Sink) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("nothing to speak")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; ok {
		return fmt.Errorf("speech session %s already running", id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.sessions[id] = cancel

	s.wg.Add(1)
	go s.run(ctx, id, text, locale, sink)
	return nil
}

func (s *Synthesizer) Cancel(id speech.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.sessions[id]; ok {
		cancel()
	}
}

// Close cancels every session and waits for them to finish.
func (s *Synthesizer) Close() {
	s.mu.Lock()
	for _, cancel := range s.sessions {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Synthesizer) run(ctx context.Context, id speech.SessionID, text string, locale domain.Locale, sink speech.Sink) {
	defer s.wg.Done()
	defer s.finish(id)

	sink(speech.Event{Session: id, Kind: speech.EventStarted})

	pcm, err := s.tts.Synthesize(ctx, text, locale.Language())
	if ctx.Err() != nil {
		sink(speech.Event{Session: id, Kind: speech.EventEnded})
		return
	}
	if err != nil {
		sink(speech.Event{Session: id, Kind: speech.EventError, Err: fmt.Errorf("synthesizing: %w", err)})
		return
	}

	s.logger.Debug("playing synthesized speech", "session", id, "bytes", len(pcm), "sink", s.out.Name())
	if err := s.out.Play(ctx, pcm, s.format.SampleRate); err != nil && ctx.Err() == nil {
		sink(speech.Event{Session: id, Kind: speech.EventError, Err: fmt.Errorf("playing audio: %w", err)})
		return
	}
	sink(speech.Event{Session: id, Kind: speech.EventEnded})
}

func (s *Synthesizer) finish(id speech.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.sessions[id]; ok {
		cancel()
		delete(s.sessions, id)
	}
}
