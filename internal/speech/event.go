package speech

import (
	"github.com/google/uuid"

	"purpose-ideas/internal/domain"
)

// SessionID identifies one dictation or playback attempt. Engines tag every
// event with it so that events from a finished session can be ignored.
type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

type EventKind string

const (
	EventStarted       EventKind = "started"
	EventPartialResult EventKind = "partial_result"
	EventFinalResult   EventKind = "final_result"
	EventError         EventKind = "error"
	EventEnded         EventKind = "ended"
)

type Event struct {
	Session SessionID
	Kind    EventKind
	Text    string
	Err     error
}

// Sink receives engine events. Engines may call it from any goroutine.
type Sink func(Event)

// Synthesizer is the process-wide spoken-output engine. Speak returns once
// playback has been scheduled; progress is reported through sink and always
// ends with EventEnded or EventError. Cancel on an unknown or finished
// session is a no-op.
type Synthesizer interface {
	Speak(id SessionID, text string, locale domain.Locale, sink Sink) error
	Cancel(id SessionID)
}

// Recognizer is a single-shot dictation engine. Listen returns once capture
// has been scheduled. Stop asks the engine to finish the session; the engine
// confirms with EventEnded. After EventError an engine may or may not emit
// EventEnded.
type Recognizer interface {
	Listen(id SessionID, locale domain.Locale, sink Sink) error
	Stop(id SessionID)
}

// Capabilities holds the engine handles found by the startup probe. A nil
// handle means the platform lacks that capability.
type Capabilities struct {
	Synthesizer Synthesizer
	Recognizer  Recognizer
}

type LocaleSource interface {
	Current() domain.Locale
}
