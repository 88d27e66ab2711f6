package application

import "context"

// AudioSource captures a single utterance per call.
type AudioSource interface {
	Start(ctx context.Context) error
	Stop() error
	Capture(ctx context.Context) ([]byte, error)
	Name() string
}

// AudioSink plays raw PCM until done or ctx is cancelled.
type AudioSink interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
	Name() string
}

type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
	}
}

// SpeechAudioFormat is the PCM layout returned by the synthesis service.
func SpeechAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 24000,
		Channels:   1,
		BitDepth:   16,
	}
}
