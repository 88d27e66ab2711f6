package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"purpose-ideas/internal/domain"
	"purpose-ideas/internal/locale"
	"purpose-ideas/internal/speech"
)

// Generator produces ideas for a request. *application.IdeaPipeline
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.ProjectIdea, error)
}

type Form struct {
	Name     string `json:"name"`
	Passions string `json:"passions"`
	Skills   string `json:"skills"`
}

type Options struct {
	// Upload accepts utterances for HTTP capture. Nil disables the route.
	Upload http.Handler
	// RateLimit caps POST /api/ideas per client per minute. Zero disables it.
	RateLimit int
}

// Server is the JSON API behind the UI. Speech controllers live on the
// loop; form and idea state is guarded by mu.
type Server struct {
	generator Generator
	locales   *locale.Context
	loop      *speech.Loop
	voice     *speech.Voice
	mic       *speech.Microphone
	hub       *Hub
	logger    *slog.Logger
	limiter   *RateLimiter
	upload    http.Handler
	mux       *http.ServeMux

	mu    sync.Mutex
	form  Form
	ideas []domain.ProjectIdea

	// loop-owned
	cards     []*speech.OutputController
	dictation map[domain.Field]*speech.InputController

	unsubscribe func()
}

func NewServer(generator Generator, locales *locale.Context, loop *speech.Loop, caps speech.Capabilities, logger *slog.Logger, opts Options) *Server {
	s := &Server{
		generator: generator,
		locales:   locales,
		loop:      loop,
		voice:     speech.NewVoice(caps.Synthesizer, loop, logger),
		mic:       speech.NewMicrophone(caps.Recognizer, loop, logger),
		hub:       NewHub(logger),
		logger:    logger,
		limiter:   NewRateLimiter(opts.RateLimit, time.Minute),
		upload:    opts.Upload,
		mux:       http.NewServeMux(),
		dictation: make(map[domain.Field]*speech.InputController),
	}

	for _, field := range []domain.Field{domain.FieldPassions, domain.FieldSkills} {
		s.dictation[field] = s.mic.NewController(field, locales,
			s.deliverTranscript(field),
			func(state speech.InputState) {
				s.hub.Broadcast(StateChange{Component: "dictation", Field: string(field), State: string(state)})
			},
		)
	}

	s.hub.snapshot = func() []StateChange {
		return []StateChange{{Component: "locale", State: string(locales.Current())}}
	}
	s.unsubscribe = locales.Subscribe(func(loc domain.Locale) {
		s.hub.Broadcast(StateChange{Component: "locale", State: string(loc)})
	})

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/locale", s.handleGetLocale)
	s.mux.HandleFunc("PUT /api/locale", s.handleSetLocale)
	s.mux.HandleFunc("GET /api/translations", s.handleTranslations)
	s.mux.HandleFunc("GET /api/form", s.handleGetForm)
	s.mux.HandleFunc("PUT /api/form", s.handleSetForm)
	s.mux.HandleFunc("POST /api/ideas", s.limiter.Middleware(s.handleGenerate))
	s.mux.HandleFunc("GET /api/ideas", s.handleListIdeas)
	s.mux.HandleFunc("POST /api/ideas/{index}/speech", s.handleToggleSpeech)
	s.mux.HandleFunc("POST /api/dictation/{field}", s.handleToggleDictation)
	s.mux.HandleFunc("POST /api/speech/audio", s.handleUpload)
	s.mux.Handle("GET /api/events", s.hub)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Close disposes every controller and disconnects websocket clients.
func (s *Server) Close(ctx context.Context) error {
	s.unsubscribe()
	err := s.loop.Call(ctx, func() {
		s.disposeCards()
		for _, c := range s.dictation {
			c.Dispose()
		}
	})
	s.hub.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) deliverTranscript(field domain.Field) func(string) {
	return func(text string) {
		s.mu.Lock()
		var value string
		switch field {
		case domain.FieldPassions:
			s.form.Passions = domain.AppendTranscript(s.form.Passions, text)
			value = s.form.Passions
		case domain.FieldSkills:
			s.form.Skills = domain.AppendTranscript(s.form.Skills, text)
			value = s.form.Skills
		}
		s.mu.Unlock()

		s.hub.Broadcast(StateChange{Component: "form", Field: string(field), Value: value})
	}
}

// disposeCards must run on the loop.
func (s *Server) disposeCards() {
	for _, c := range s.cards {
		c.Dispose()
	}
	s.cards = nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"recognition": s.mic.Available(),
		"synthesis":   s.voice.Available(),
	})
}

func (s *Server) handleGetLocale(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"locale": string(s.locales.Current())})
}

func (s *Server) handleSetLocale(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Locale string `json:"locale"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	loc, err := domain.ParseLocale(body.Locale)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.locales.Set(loc)
	s.logger.Info("locale changed", "locale", loc)
	writeJSON(w, http.StatusOK, map[string]string{"locale": string(loc)})
}

func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"locale":       s.locales.Current(),
		"translations": s.locales.Translations(),
	})
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	form := s.form
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) handleSetForm(w http.ResponseWriter, r *http.Request) {
	var form Form
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.form = form
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, form)
}

type ideaView struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Speech      string `json:"speech"`
	Speakable   bool   `json:"speakable"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength != 0 {
		var form Form
		if err := decodeJSON(r, &form); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.mu.Lock()
		s.form = form
		s.mu.Unlock()
	}

	s.mu.Lock()
	form := s.form
	s.mu.Unlock()

	req, err := domain.NewGenerationRequest(form.Passions, form.Skills, s.locales.Current())
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	if err := s.loop.Call(r.Context(), s.disposeCards); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.mu.Lock()
	s.ideas = nil
	s.mu.Unlock()

	ideas, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}

	s.mu.Lock()
	s.ideas = ideas
	s.mu.Unlock()

	var views []ideaView
	err = s.loop.Call(r.Context(), func() {
		s.disposeCards()
		s.cards = make([]*speech.OutputController, len(ideas))
		for i, idea := range ideas {
			s.cards[i] = s.voice.NewController(idea.SpokenText(), s.locales, func(state speech.OutputState) {
				s.hub.Broadcast(StateChange{Component: "idea", Index: &i, State: string(state)})
			})
		}
		views = s.cardViews(ideas)
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	header := s.locales.Translate("ideasHeader")
	if name := strings.TrimSpace(form.Name); name != "" {
		header += ", " + name + "!"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"header": header,
		"ideas":  views,
	})
}

// cardViews must run on the loop.
func (s *Server) cardViews(ideas []domain.ProjectIdea) []ideaView {
	views := make([]ideaView, len(ideas))
	for i, idea := range ideas {
		views[i] = ideaView{
			Title:       idea.Title,
			Description: idea.Description,
			Speech:      string(speech.OutputIdle),
		}
		if i < len(s.cards) {
			views[i].Speech = string(s.cards[i].State())
			views[i].Speakable = s.cards[i].Available()
		}
	}
	return views
}

func (s *Server) writeGenerationError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)

	status, key := http.StatusBadGateway, "errorGeneric"
	switch kind {
	case domain.KindEmptyInput:
		status, key = http.StatusBadRequest, "errorEmptyFields"
	case domain.KindBusy:
		status, key = http.StatusConflict, "errorBusy"
	}

	s.logger.Warn("idea generation failed", "kind", kind, "error", err)
	writeJSON(w, status, map[string]string{
		"error": s.locales.Translate(key),
		"kind":  string(kind),
	})
}

func (s *Server) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ideas := s.ideas
	s.mu.Unlock()

	var views []ideaView
	if err := s.loop.Call(r.Context(), func() { views = s.cardViews(ideas) }); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ideas": views})
}

func (s *Server) handleToggleSpeech(w http.ResponseWriter, r *http.Request) {
	if !s.voice.Available() {
		writeError(w, http.StatusNotFound, "spoken output not available")
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid idea index")
		return
	}

	var (
		state speech.OutputState
		found bool
	)
	err = s.loop.Call(r.Context(), func() {
		if index < 0 || index >= len(s.cards) {
			return
		}
		found = true
		s.cards[index].Toggle()
		state = s.cards[index].State()
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no such idea")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"index": index, "state": state})
}

func (s *Server) handleToggleDictation(w http.ResponseWriter, r *http.Request) {
	field := domain.Field(r.PathValue("field"))
	if !field.Valid() {
		writeError(w, http.StatusBadRequest, "unknown field")
		return
	}
	if !s.mic.Available() {
		writeError(w, http.StatusNotFound, "dictation not available")
		return
	}

	var state speech.InputState
	err := s.loop.Call(r.Context(), func() {
		c := s.dictation[field]
		c.Toggle()
		state = c.State()
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": field, "state": state})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.upload == nil {
		writeError(w, http.StatusNotFound, "audio upload not enabled")
		return
	}
	s.upload.ServeHTTP(w, r)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 64*1024))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
