package speech

import (
	"log/slog"

	"purpose-ideas/internal/domain"
)

// Microphone coordinates InputControllers around one recognition engine.
// Starting a session on one controller stops any other active session.
type Microphone struct {
	engine Recognizer
	loop   *Loop
	logger *slog.Logger
	active *InputController
}

// NewMicrophone returns a Microphone. A nil engine yields inert controllers.
func NewMicrophone(engine Recognizer, loop *Loop, logger *slog.Logger) *Microphone {
	return &Microphone{
		engine: engine,
		loop:   loop,
		logger: logger,
	}
}

func (m *Microphone) Available() bool {
	return m.engine != nil
}

func (m *Microphone) claim(c *InputController) {
	if prev := m.active; prev != nil && prev != c {
		m.logger.Debug("stopping other dictation", "field", prev.field, "session", prev.model.session)
		prev.apply(input{kind: inPreempted})
	}
	m.active = c
}

func (m *Microphone) release(c *InputController) {
	if m.active == c {
		m.active = nil
	}
}

// InputController turns dictation into text for one field. All methods must
// run on the Microphone's loop.
type InputController struct {
	mic      *Microphone
	field    domain.Field
	locales  LocaleSource
	deliver  func(string)
	onChange func(InputState)
	model    inputModel
	disposed bool
}

// NewController creates a controller whose final transcripts go to deliver.
// onChange may be nil.
func (m *Microphone) NewController(field domain.Field, locales LocaleSource, deliver func(string), onChange func(InputState)) *InputController {
	return &InputController{
		mic:      m,
		field:    field,
		locales:  locales,
		deliver:  deliver,
		onChange: onChange,
		model:    inputModel{state: InputIdle},
	}
}

func (c *InputController) Available() bool {
	return c.mic.Available() && !c.disposed
}

func (c *InputController) State() InputState {
	return c.model.state
}

func (c *InputController) Field() domain.Field {
	return c.field
}

func (c *InputController) Toggle() {
	c.user(inToggle)
}

func (c *InputController) Start() {
	c.user(inStart)
}

func (c *InputController) Stop() {
	c.user(inStop)
}

func (c *InputController) Dispose() {
	if c.disposed {
		return
	}
	c.apply(input{kind: inDispose})
	c.disposed = true
	c.mic.release(c)
}

func (c *InputController) user(kind inputKind) {
	if !c.Available() {
		return
	}
	c.apply(input{
		kind:    kind,
		session: NewSessionID(),
		locale:  c.locales.Current(),
	})
}

func (c *InputController) sink() Sink {
	return func(ev Event) {
		c.mic.loop.Post(func() {
			c.apply(input{kind: inEvent, event: ev})
		})
	}
}

func (c *InputController) apply(in input) {
	prev := c.model.state
	next, cmds := reduceInput(c.model, in)
	c.model = next

	var followUps []Event
	for _, cmd := range cmds {
		if ev, ok := c.exec(cmd); ok {
			followUps = append(followUps, ev)
		}
	}

	if next.state == InputIdle {
		c.mic.release(c)
	}
	if next.state != prev && c.onChange != nil {
		c.onChange(next.state)
	}

	for _, ev := range followUps {
		c.apply(input{kind: inEvent, event: ev})
	}
}

func (c *InputController) exec(cmd command) (Event, bool) {
	logger := c.mic.logger
	switch cmd.kind {
	case cmdPreemptOthers:
		c.mic.claim(c)
	case cmdListen:
		logger.Debug("starting dictation", "field", c.field, "session", cmd.session, "locale", cmd.locale)
		if err := c.mic.engine.Listen(cmd.session, cmd.locale, c.sink()); err != nil {
			return Event{Session: cmd.session, Kind: EventError, Err: err}, true
		}
	case cmdStopListening:
		logger.Debug("stopping dictation", "field", c.field, "session", cmd.session)
		c.mic.engine.Stop(cmd.session)
	case cmdDeliver:
		logger.Info("dictation transcript", "field", c.field, "chars", len(cmd.text))
		if c.deliver != nil {
			c.deliver(cmd.text)
		}
	case cmdLogError:
		logger.Warn("speech recognition error", "field", c.field, "session", cmd.session, "error", cmd.err)
	}
	return Event{}, false
}
