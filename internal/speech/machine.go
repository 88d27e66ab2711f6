package speech

import "purpose-ideas/internal/domain"

type OutputState string

const (
	OutputIdle     OutputState = "idle"
	OutputSpeaking OutputState = "speaking"
)

type InputState string

const (
	InputIdle      InputState = "idle"
	InputListening InputState = "listening"
)

type inputKind int

const (
	inToggle inputKind = iota
	inStart
	inStop
	inPreempted
	inDispose
	inEvent
)

// input is what a reducer consumes: a user action, a coordinator signal or
// an engine event. Start inputs carry the new session id and the locale
// captured at that instant.
type input struct {
	kind    inputKind
	session SessionID
	locale  domain.Locale
	event   Event
}

type commandKind int

const (
	cmdPreemptOthers commandKind = iota
	cmdSpeak
	cmdCancelSpeech
	cmdListen
	cmdStopListening
	cmdDeliver
	cmdLogError
)

// command is a side effect a reducer asks its controller to perform.
type command struct {
	kind    commandKind
	session SessionID
	locale  domain.Locale
	text    string
	err     error
}

type outputModel struct {
	state   OutputState
	session SessionID
}

func reduceOutput(m outputModel, in input) (outputModel, []command) {
	switch in.kind {
	case inToggle:
		if m.state == OutputSpeaking {
			return reduceOutput(m, input{kind: inStop})
		}
		return reduceOutput(m, input{kind: inStart, session: in.session, locale: in.locale})

	case inStart:
		if m.state == OutputSpeaking {
			return m, nil
		}
		next := outputModel{state: OutputSpeaking, session: in.session}
		return next, []command{
			{kind: cmdPreemptOthers},
			{kind: cmdSpeak, session: in.session, locale: in.locale},
		}

	case inStop, inPreempted, inDispose:
		if m.state != OutputSpeaking {
			return m, nil
		}
		return outputModel{state: OutputIdle}, []command{
			{kind: cmdCancelSpeech, session: m.session},
		}

	case inEvent:
		if m.state != OutputSpeaking || in.event.Session != m.session {
			return m, nil
		}
		switch in.event.Kind {
		case EventEnded:
			return outputModel{state: OutputIdle}, nil
		case EventError:
			return outputModel{state: OutputIdle}, []command{
				{kind: cmdLogError, session: m.session, err: in.event.Err},
			}
		}
	}
	return m, nil
}

type inputModel struct {
	state    InputState
	session  SessionID
	stopping bool
}

func reduceInput(m inputModel, in input) (inputModel, []command) {
	switch in.kind {
	case inToggle:
		if m.state == InputListening {
			return reduceInput(m, input{kind: inStop})
		}
		return reduceInput(m, input{kind: inStart, session: in.session, locale: in.locale})

	case inStart:
		if m.state == InputListening {
			return m, nil
		}
		next := inputModel{state: InputListening, session: in.session}
		return next, []command{
			{kind: cmdPreemptOthers},
			{kind: cmdListen, session: in.session, locale: in.locale},
		}

	case inStop:
		// Stay listening until the engine confirms with EventEnded.
		if m.state != InputListening || m.stopping {
			return m, nil
		}
		m.stopping = true
		return m, []command{{kind: cmdStopListening, session: m.session}}

	case inPreempted, inDispose:
		if m.state != InputListening {
			return m, nil
		}
		return inputModel{state: InputIdle}, []command{
			{kind: cmdStopListening, session: m.session},
		}

	case inEvent:
		if m.state != InputListening || in.event.Session != m.session {
			return m, nil
		}
		switch in.event.Kind {
		case EventFinalResult:
			return m, []command{{kind: cmdDeliver, session: m.session, text: in.event.Text}}
		case EventEnded:
			return inputModel{state: InputIdle}, nil
		case EventError:
			// The engine may never send EventEnded after an error.
			return inputModel{state: InputIdle}, []command{
				{kind: cmdLogError, session: m.session, err: in.event.Err},
				{kind: cmdStopListening, session: m.session},
			}
		}
	}
	return m, nil
}
