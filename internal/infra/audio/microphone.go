//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Available reports whether this build can reach audio hardware.
const Available = true

const framesPerBuffer = 1024

// MicrophoneSource records one utterance per Capture from the default input
// device, ending after a second of silence or ten seconds overall.
type MicrophoneSource struct {
	stream     *portaudio.Stream
	sampleRate int
	logger     *slog.Logger

	mu     sync.Mutex
	buffer []int16
}

func NewMicrophoneSource(sampleRate int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		logger:     logger,
		buffer:     make([]int16, framesPerBuffer),
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}
	m.stream = stream

	m.logger.Info("microphone ready", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	if m.stream != nil {
		m.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

// Capture returns what was recorded so far when ctx is cancelled, or
// ctx.Err() if nothing was recorded.
func (m *MicrophoneSource) Capture(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil, fmt.Errorf("microphone not started")
	}
	if err := m.stream.Start(); err != nil {
		return nil, fmt.Errorf("starting stream: %w", err)
	}
	defer m.stream.Stop()

	samples := make([]int16, 0, m.sampleRate*5)
	silenceThreshold := int16(500)
	silenceDuration := 0
	maxSilenceFrames := m.sampleRate

	for {
		if ctx.Err() != nil {
			if len(samples) == 0 {
				return nil, ctx.Err()
			}
			break
		}

		if err := m.stream.Read(); err != nil {
			return nil, fmt.Errorf("reading from stream: %w", err)
		}

		samples = append(samples, m.buffer...)

		if isSilent(m.buffer, silenceThreshold) {
			silenceDuration += len(m.buffer)
		} else {
			silenceDuration = 0
		}

		if silenceDuration > maxSilenceFrames && len(samples) > m.sampleRate {
			break
		}

		if len(samples) > m.sampleRate*10 {
			break
		}
	}

	m.logger.Debug("utterance captured", "samples", len(samples))
	return samplesToWav(samples, m.sampleRate), nil
}
