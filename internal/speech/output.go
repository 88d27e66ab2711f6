package speech

import (
	"log/slog"
)

// Voice coordinates every OutputController in the process around the single
// shared synthesis engine. At most one controller is speaking at a time.
type Voice struct {
	engine Synthesizer
	loop   *Loop
	logger *slog.Logger
	active *OutputController
}

// NewVoice returns a Voice. A nil engine yields inert controllers.
func NewVoice(engine Synthesizer, loop *Loop, logger *slog.Logger) *Voice {
	return &Voice{
		engine: engine,
		loop:   loop,
		logger: logger,
	}
}

func (v *Voice) Available() bool {
	return v.engine != nil
}

// claim makes c the active speaker, forcing the previous one to idle within
// the same loop step.
func (v *Voice) claim(c *OutputController) {
	if prev := v.active; prev != nil && prev != c {
		v.logger.Debug("preempting spoken output", "session", prev.model.session)
		prev.apply(input{kind: inPreempted})
	}
	v.active = c
}

func (v *Voice) release(c *OutputController) {
	if v.active == c {
		v.active = nil
	}
}

// OutputController speaks one text with toggle semantics. All methods must
// run on the Voice's loop.
type OutputController struct {
	voice    *Voice
	text     string
	locales  LocaleSource
	onChange func(OutputState)
	model    outputModel
	disposed bool
}

// NewController creates a controller for text. onChange may be nil.
func (v *Voice) NewController(text string, locales LocaleSource, onChange func(OutputState)) *OutputController {
	return &OutputController{
		voice:    v,
		text:     text,
		locales:  locales,
		onChange: onChange,
		model:    outputModel{state: OutputIdle},
	}
}

func (c *OutputController) Available() bool {
	return c.voice.Available() && !c.disposed
}

func (c *OutputController) State() OutputState {
	return c.model.state
}

func (c *OutputController) Text() string {
	return c.text
}

func (c *OutputController) Toggle() {
	c.user(inToggle)
}

func (c *OutputController) Start() {
	c.user(inStart)
}

func (c *OutputController) Stop() {
	c.user(inStop)
}

// Dispose cancels any playback and makes the controller inert.
func (c *OutputController) Dispose() {
	if c.disposed {
		return
	}
	c.apply(input{kind: inDispose})
	c.disposed = true
	c.voice.release(c)
}

func (c *OutputController) user(kind inputKind) {
	if !c.Available() {
		return
	}
	c.apply(input{
		kind:    kind,
		session: NewSessionID(),
		locale:  c.locales.Current(),
	})
}

func (c *OutputController) sink() Sink {
	return func(ev Event) {
		c.voice.loop.Post(func() {
			c.apply(input{kind: inEvent, event: ev})
		})
	}
}

func (c *OutputController) apply(in input) {
	prev := c.model.state
	next, cmds := reduceOutput(c.model, in)
	c.model = next

	var followUps []Event
	for _, cmd := range cmds {
		if ev, ok := c.exec(cmd); ok {
			followUps = append(followUps, ev)
		}
	}

	if next.state == OutputIdle {
		c.voice.release(c)
	}
	if next.state != prev && c.onChange != nil {
		c.onChange(next.state)
	}

	for _, ev := range followUps {
		c.apply(input{kind: inEvent, event: ev})
	}
}

// exec runs one command. A failed engine call comes back as an error event
// for the same session.
func (c *OutputController) exec(cmd command) (Event, bool) {
	logger := c.voice.logger
	switch cmd.kind {
	case cmdPreemptOthers:
		c.voice.claim(c)
	case cmdSpeak:
		logger.Debug("starting spoken output", "session", cmd.session, "locale", cmd.locale)
		if err := c.voice.engine.Speak(cmd.session, c.text, cmd.locale, c.sink()); err != nil {
			return Event{Session: cmd.session, Kind: EventError, Err: err}, true
		}
	case cmdCancelSpeech:
		logger.Debug("cancelling spoken output", "session", cmd.session)
		c.voice.engine.Cancel(cmd.session)
	case cmdLogError:
		logger.Warn("speech synthesis error", "session", cmd.session, "error", cmd.err)
	}
	return Event{}, false
}
