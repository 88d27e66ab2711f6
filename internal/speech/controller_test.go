package speech_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"purpose-ideas/internal/domain"
	"purpose-ideas/internal/locale"
	"purpose-ideas/internal/speech"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startLoop(t *testing.T) *speech.Loop {
	t.Helper()
	loop := speech.NewLoop(newLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

func on(t *testing.T, loop *speech.Loop, fn func()) {
	t.Helper()
	require.NoError(t, loop.Call(context.Background(), fn))
}

type call struct {
	session speech.SessionID
	text    string
	locale  domain.Locale
}

// fakeSynth ends an utterance with EventEnded when it is cancelled.
type fakeSynth struct {
	mu      sync.Mutex
	speaks  []call
	cancels []speech.SessionID
	sinks   map[speech.SessionID]speech.Sink
	fail    error
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{sinks: make(map[speech.SessionID]speech.Sink)}
}

func (f *fakeSynth) Speak(id speech.SessionID, text string, loc domain.Locale, sink speech.Sink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.speaks = append(f.speaks, call{session: id, text: text, locale: loc})
	f.sinks[id] = sink
	sink(speech.Event{Session: id, Kind: speech.EventStarted})
	return nil
}

func (f *fakeSynth) Cancel(id speech.SessionID) {
	f.mu.Lock()
	f.cancels = append(f.cancels, id)
	sink, ok := f.sinks[id]
	delete(f.sinks, id)
	f.mu.Unlock()
	if ok {
		sink(speech.Event{Session: id, Kind: speech.EventEnded})
	}
}

func (f *fakeSynth) emit(id speech.SessionID, ev speech.Event) {
	f.mu.Lock()
	sink := f.sinks[id]
	f.mu.Unlock()
	ev.Session = id
	sink(ev)
}

func (f *fakeSynth) speakCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.speaks...)
}

func (f *fakeSynth) cancelCalls() []speech.SessionID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]speech.SessionID(nil), f.cancels...)
}

// fakeRecognizer only ends a session when told to.
type fakeRecognizer struct {
	mu      sync.Mutex
	listens []call
	stops   []speech.SessionID
	sinks   map[speech.SessionID]speech.Sink
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{sinks: make(map[speech.SessionID]speech.Sink)}
}

func (f *fakeRecognizer) Listen(id speech.SessionID, loc domain.Locale, sink speech.Sink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listens = append(f.listens, call{session: id, locale: loc})
	f.sinks[id] = sink
	return nil
}

func (f *fakeRecognizer) Stop(id speech.SessionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, id)
}

func (f *fakeRecognizer) emit(id speech.SessionID, ev speech.Event) {
	f.mu.Lock()
	sink := f.sinks[id]
	f.mu.Unlock()
	ev.Session = id
	sink(ev)
}

func (f *fakeRecognizer) listenCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.listens...)
}

func (f *fakeRecognizer) stopCalls() []speech.SessionID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]speech.SessionID(nil), f.stops...)
}

func TestOutputController_SecondStartPreemptsFirst(t *testing.T) {
	loop := startLoop(t)
	engine := newFakeSynth()
	voice := speech.NewVoice(engine, loop, newLogger())
	locales := locale.NewContext(domain.LocaleEN, nil, newLogger())

	var first, second *speech.OutputController
	on(t, loop, func() {
		first = voice.NewController("Idea one. First.", locales, nil)
		second = voice.NewController("Idea two. Second.", locales, nil)
		first.Toggle()
		second.Toggle()
	})

	var firstState, secondState speech.OutputState
	on(t, loop, func() {
		firstState = first.State()
		secondState = second.State()
	})

	assert.Equal(t, speech.OutputIdle, firstState)
	assert.Equal(t, speech.OutputSpeaking, secondState)

	speaks := engine.speakCalls()
	require.Len(t, speaks, 2)
	assert.Equal(t, "Idea two. Second.", speaks[1].text)
	assert.Equal(t, []speech.SessionID{speaks[0].session}, engine.cancelCalls())
}

func TestOutputController_ToggleStopsAndEngineEvents(t *testing.T) {
	loop := startLoop(t)
	engine := newFakeSynth()
	voice := speech.NewVoice(engine, loop, newLogger())
	locales := locale.NewContext(domain.LocalePT, nil, newLogger())

	var changes []speech.OutputState
	var c *speech.OutputController
	on(t, loop, func() {
		c = voice.NewController("text", locales, func(s speech.OutputState) { changes = append(changes, s) })
		c.Toggle()
	})

	speaks := engine.speakCalls()
	require.Len(t, speaks, 1)
	assert.Equal(t, domain.LocalePT, speaks[0].locale)

	// Natural end.
	engine.emit(speaks[0].session, speech.Event{Kind: speech.EventEnded})
	var state speech.OutputState
	on(t, loop, func() { state = c.State() })
	assert.Equal(t, speech.OutputIdle, state)

	// Error.
	on(t, loop, func() { c.Toggle() })
	speaks = engine.speakCalls()
	require.Len(t, speaks, 2)
	engine.emit(speaks[1].session, speech.Event{Kind: speech.EventError, Err: errors.New("audio device lost")})
	on(t, loop, func() { state = c.State() })
	assert.Equal(t, speech.OutputIdle, state)

	// Toggle off.
	on(t, loop, func() {
		c.Toggle()
		c.Toggle()
		state = c.State()
	})
	assert.Equal(t, speech.OutputIdle, state)
	speaks = engine.speakCalls()
	require.Len(t, speaks, 3)
	assert.Contains(t, engine.cancelCalls(), speaks[2].session)

	on(t, loop, func() {})
	assert.Equal(t, []speech.OutputState{
		speech.OutputSpeaking, speech.OutputIdle,
		speech.OutputSpeaking, speech.OutputIdle,
		speech.OutputSpeaking, speech.OutputIdle,
	}, changes)
}

func TestOutputController_DisposeCancelsPlayback(t *testing.T) {
	loop := startLoop(t)
	engine := newFakeSynth()
	voice := speech.NewVoice(engine, loop, newLogger())
	locales := locale.NewContext(domain.LocaleEN, nil, newLogger())

	var c *speech.OutputController
	on(t, loop, func() {
		c = voice.NewController("text", locales, nil)
		c.Start()
		c.Dispose()
		c.Start()
	})

	speaks := engine.speakCalls()
	require.Len(t, speaks, 1, "disposed controller must not start again")
	assert.Equal(t, []speech.SessionID{speaks[0].session}, engine.cancelCalls())

	var available bool
	var state speech.OutputState
	on(t, loop, func() {
		available = c.Available()
		state = c.State()
	})
	assert.False(t, available)
	assert.Equal(t, speech.OutputIdle, state)
}

func TestOutputController_SpeakFailureReturnsToIdle(t *testing.T) {
	loop := startLoop(t)
	engine := newFakeSynth()
	engine.fail = errors.New("no voice")
	voice := speech.NewVoice(engine, loop, newLogger())
	locales := locale.NewContext(domain.LocaleEN, nil, newLogger())

	var state speech.OutputState
	on(t, loop, func() {
		c := voice.NewController("text", locales, nil)
		c.Toggle()
		state = c.State()
	})
	assert.Equal(t, speech.OutputIdle, state)
}

func TestOutputController_InertWithoutEngine(t *testing.T) {
	loop := startLoop(t)
	voice := speech.NewVoice(nil, loop, newLogger())
	locales := locale.NewContext(domain.LocaleEN, nil, newLogger())

	var state speech.OutputState
	var available bool
	on(t, loop, func() {
		c := voice.NewController("text", locales, nil)
		c.Toggle()
		state = c.State()
		available = c.Available()
	})
	assert.False(t, available)
	assert.Equal(t, speech.OutputIdle, state)
}

func TestInputController_InvalidTransitionsAreNoOps(t *testing.T) {
	loop := startLoop(t)
	engine := newFakeRecognizer()
	mic := speech.NewMicrophone(engine, loop, newLogger())
	locales := locale.NewContext(domain.LocaleEN, nil, newLogger())

	var c *speech.InputController
	var state speech.InputState
	on(t, loop, func() {
		c = mic.NewController(domain.FieldPassions, locales, nil, nil)
		c.Stop()
		state = c.State()
	})
	assert.Equal(t, speech.InputIdle, state)
	assert.Empty(t, engine.listenCalls())
	assert.Empty(t, engine.stopCalls())

	on(t, loop, func() {
		c.Start()
		c.Start()
		state = c.State()
	})
	assert.Equal(t, speech.InputListening, state)
	assert.Len(t, engine.listenCalls(), 1)
	assert.Empty(t, engine.stopCalls())
}

func TestInputController_StopWaitsForEngine(t *testing.T) {
	loop := startLoop(t)
	engine := newFakeRecognizer()
	mic := speech.NewMicrophone(engine, loop, newLogger())
	locales := locale.NewContext(domain.LocaleEN, nil, newLogger())

	var transcripts []string
	var c *speech.InputController
	var state speech.InputState
	on(t, loop, func() {
		c = mic.NewController(domain.FieldSkills, locales, func(s string) { transcripts = append(transcripts, s) }, nil)
		c.Toggle()
	})
	session := engine.listenCalls()[0].session

	engine.emit(session, speech.Event{Kind: speech.EventPartialResult, Text: "video"})
	engine.emit(session, speech.Event{Kind: speech.EventFinalResult, Text: "video editing"})
	on(t, loop, func() {
		c.Toggle()
		c.Toggle()
		state = c.State()
	})
	assert.Equal(t, speech.InputListening, state, "must stay listening until the engine confirms")
	assert.Equal(t, []string{"video editing"}, transcripts)
	assert.Equal(t, []speech.SessionID{session}, engine.stopCalls())

	engine.emit(session, speech.Event{Kind: speech.EventEnded})
	on(t, loop, func() { state = c.State() })
	assert.Equal(t, speech.InputIdle, state)
}

func TestInputController_ErrorWithoutEndDoesNotStick(t *testing.T) {
	loop := startLoop(t)
	engine := newFakeRecognizer()
	mic := speech.NewMicrophone(engine, loop, newLogger())
	locales := locale.NewContext(domain.LocaleEN, nil, newLogger())

	var c *speech.InputController
	on(t, loop, func() {
		c = mic.NewController(domain.FieldPassions, locales, nil, nil)
		c.Toggle()
	})
	session := engine.listenCalls()[0].session

	engine.emit(session, speech.Event{Kind: speech.EventError, Err: errors.New("no-speech")})

	var state speech.InputState
	on(t, loop, func() { state = c.State() })
	assert.Equal(t, speech.InputIdle, state)

	// A late end from the failed session must not disturb a new one.
	on(t, loop, func() { c.Toggle() })
	engine.emit(session, speech.Event{Kind: speech.EventEnded})
	on(t, loop, func() { state = c.State() })
	assert.Equal(t, speech.InputListening, state)
	assert.Len(t, engine.listenCalls(), 2)
}

func TestInputController_OneSessionAcrossFields(t *testing.T) {
	loop := startLoop(t)
	engine := newFakeRecognizer()
	mic := speech.NewMicrophone(engine, loop, newLogger())
	locales := locale.NewContext(domain.LocaleEN, nil, newLogger())

	var passions, skills *speech.InputController
	var passionsState, skillsState speech.InputState
	on(t, loop, func() {
		passions = mic.NewController(domain.FieldPassions, locales, nil, nil)
		skills = mic.NewController(domain.FieldSkills, locales, nil, nil)
		passions.Start()
		skills.Start()
		passionsState = passions.State()
		skillsState = skills.State()
	})

	assert.Equal(t, speech.InputIdle, passionsState)
	assert.Equal(t, speech.InputListening, skillsState)
	listens := engine.listenCalls()
	require.Len(t, listens, 2)
	assert.Equal(t, []speech.SessionID{listens[0].session}, engine.stopCalls())
}

func TestInputController_SessionKeepsLocaleCapturedAtStart(t *testing.T) {
	loop := startLoop(t)
	engine := newFakeRecognizer()
	mic := speech.NewMicrophone(engine, loop, newLogger())
	locales := locale.NewContext(domain.LocaleEN, nil, newLogger())

	var c *speech.InputController
	on(t, loop, func() {
		c = mic.NewController(domain.FieldPassions, locales, nil, nil)
		c.Start()
	})
	locales.Set(domain.LocalePT)

	first := engine.listenCalls()[0]
	engine.emit(first.session, speech.Event{Kind: speech.EventEnded})
	on(t, loop, func() { c.Start() })

	listens := engine.listenCalls()
	require.Len(t, listens, 2)
	assert.Equal(t, domain.LocaleEN, listens[0].locale)
	assert.Equal(t, domain.LocalePT, listens[1].locale)
}

func TestInputController_InertWithoutEngine(t *testing.T) {
	loop := startLoop(t)
	mic := speech.NewMicrophone(nil, loop, newLogger())
	locales := locale.NewContext(domain.LocaleEN, nil, newLogger())

	var state speech.InputState
	on(t, loop, func() {
		c := mic.NewController(domain.FieldPassions, locales, nil, nil)
		c.Toggle()
		state = c.State()
	})
	assert.Equal(t, speech.InputIdle, state)
}

func TestLoop_CallAfterStop(t *testing.T) {
	loop := speech.NewLoop(newLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = loop.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	err := loop.Call(context.Background(), func() {})
	assert.Error(t, err)
}
