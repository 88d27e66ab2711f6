package application

import "context"

type SpeechToText interface {
	// Transcribe returns the text spoken in audio. language is an ISO-639-1
	// hint; empty lets the service detect it.
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

type TextToSpeech interface {
	// Synthesize returns raw 16-bit little-endian mono PCM at the engine's
	// sample rate.
	Synthesize(ctx context.Context, text string, language string) ([]byte, error)
}
