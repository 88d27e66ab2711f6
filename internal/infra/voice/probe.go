package voice

import (
	"context"
	"log/slog"

	"purpose-ideas/internal/application"
	"purpose-ideas/internal/infra/audio"
	"purpose-ideas/internal/infra/openai"
	"purpose-ideas/internal/speech"
)

type Options struct {
	// Capture selects the utterance source: microphone, http, file or none.
	Capture    string
	FileDir    string
	SampleRate int

	// Synthesis is openai or none.
	Synthesis string

	OpenAIKey string
	TTSModel  string
	TTSVoice  string

	// Overrides for the OpenAI clients and the speaker.
	Transcriber application.SpeechToText
	Speech      application.TextToSpeech
	Output      application.AudioSink
}

// Engines is the result of the startup probe.
type Engines struct {
	speech.Capabilities
	// Upload is set when utterances arrive over HTTP.
	Upload *audio.HTTPSource

	closers []func()
}

// Close stops the engines and releases audio devices.
func (e *Engines) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// Probe runs once at startup and reports which speech capabilities this
// process has. A missing capability is a nil handle, never an error.
func Probe(ctx context.Context, opts Options, logger *slog.Logger) *Engines {
	e := &Engines{}
	e.probeRecognition(ctx, opts, logger)
	e.probeSynthesis(opts, logger)

	logger.Info("speech capabilities",
		"recognition", e.Recognizer != nil,
		"synthesis", e.Synthesizer != nil,
		"capture", opts.Capture,
	)
	return e
}

func (e *Engines) probeRecognition(ctx context.Context, opts Options, logger *slog.Logger) {
	stt := opts.Transcriber
	if stt == nil && opts.OpenAIKey != "" {
		stt = openai.NewWhisperClient(opts.OpenAIKey)
	}
	if stt == nil {
		logger.Info("dictation disabled: no transcription key")
		return
	}

	var source application.AudioSource
	switch opts.Capture {
	case "none", "":
		return
	case "http":
		e.Upload = audio.NewHTTPSource(logger)
		source = e.Upload
	case "file":
		source = audio.NewFileSource(opts.FileDir)
	case "microphone":
		if !audio.Available {
			logger.Warn("dictation disabled: built without portaudio")
			return
		}
		rate := opts.SampleRate
		if rate == 0 {
			rate = application.DefaultAudioFormat().SampleRate
		}
		source = audio.NewMicrophoneSource(rate, logger)
	default:
		logger.Warn("dictation disabled: unknown capture source", "capture", opts.Capture)
		return
	}

	if err := source.Start(ctx); err != nil {
		logger.Warn("dictation disabled: audio source failed", "source", source.Name(), "error", err)
		e.Upload = nil
		return
	}

	rec := NewRecognizer(source, stt, logger)
	e.Recognizer = rec
	e.closers = append(e.closers, func() {
		source.Stop()
		rec.Close()
	})
}

func (e *Engines) probeSynthesis(opts Options, logger *slog.Logger) {
	if opts.Synthesis != "openai" {
		return
	}

	tts := opts.Speech
	if tts == nil && opts.OpenAIKey != "" {
		tts = openai.NewSpeechClient(opts.OpenAIKey, opts.TTSModel, opts.TTSVoice)
	}
	if tts == nil {
		logger.Info("spoken output disabled: no synthesis key")
		return
	}

	out := opts.Output
	if out == nil {
		if !audio.Available {
			logger.Warn("spoken output disabled: built without portaudio")
			return
		}
		out = audio.NewSpeaker(logger)
	}

	synth := NewSynthesizer(tts, out, logger)
	e.Synthesizer = synth
	e.closers = append(e.closers, synth.Close)
}
