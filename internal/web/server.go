package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"anime-thumbnail-studio/internal/session"
	"anime-thumbnail-studio/internal/studio"
	"anime-thumbnail-studio/internal/thumbnail"
)

//go:embed static/*
var staticFS embed.FS

const maxBodyBytes = 16 << 10

type Options struct {
	Sessions *session.Store
	// NewController builds a session's controller once its locale is known.
	NewController func(msgs studio.Messages) *studio.Controller
	// BaseContext outlives requests; generations run on it so a closed tab
	// does not cancel a call that other tabs of the session are watching.
	BaseContext   context.Context
	DefaultLocale language.Tag
	SecureCookie  bool
	Logger        *zerolog.Logger
}

type Server struct {
	sessions      *session.Store
	newController func(msgs studio.Messages) *studio.Controller
	baseCtx       context.Context
	defaultLocale language.Tag
	secureCookie  bool
	logger        zerolog.Logger
}

type apiError struct {
	Error string `json:"error"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type styleRequest struct {
	Style string `json:"style"`
}

type generateRequest struct {
	Title *string `json:"title,omitempty"`
	Style *string `json:"style,omitempty"`
}

func New(opts Options) *Server {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	baseCtx := opts.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	locale := opts.DefaultLocale
	if locale == language.Und {
		locale = language.Japanese
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{})
	}

	newController := opts.NewController
	if newController == nil {
		newController = func(msgs studio.Messages) *studio.Controller {
			return studio.New(studio.Options{Messages: &msgs, Logger: &logger})
		}
	}

	return &Server{
		sessions:      sessions,
		newController: newController,
		baseCtx:       baseCtx,
		defaultLocale: locale,
		secureCookie:  opts.SecureCookie,
		logger:        logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		s.withLogging,
		s.withSession,
	)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Put("/title", s.handleTitle)
		r.Put("/style", s.handleStyle)
		r.Post("/generate", s.handleGenerate)
		r.Get("/image", s.handleImage)
		r.Get("/download", s.handleDownload)
		r.Get("/events", s.handleEvents)
	})

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "index missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller(r)
	writeJSON(w, http.StatusOK, s.view(ctrl, ctrl.Snapshot()))
}

func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctrl := s.controller(r)
	if err := ctrl.SetTitle(req.Title); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(ctrl, ctrl.Snapshot()))
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctrl := s.controller(r)
	if err := ctrl.SetStyle(req.Style); err != nil {
		s.writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(ctrl, ctrl.Snapshot()))
}

// handleGenerate enters Loading synchronously and runs the remote call in
// the background. Validation failures come back as an Errored view.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	ctrl := s.controller(r)
	if req.Title != nil {
		if err := ctrl.SetTitle(*req.Title); err != nil {
			s.writeControllerError(w, err)
			return
		}
	}
	if req.Style != nil {
		if err := ctrl.SetStyle(*req.Style); err != nil {
			s.writeControllerError(w, err)
			return
		}
	}

	pending, err := ctrl.Begin()
	if errors.Is(err, studio.ErrGenerationInFlight) {
		s.writeControllerError(w, err)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusOK, s.view(ctrl, ctrl.Snapshot()))
		return
	}

	reqID := middleware.GetReqID(r.Context())
	go func() {
		if err := pending.Run(s.baseCtx); err != nil {
			s.logger.Debug().Err(err).Str("request_id", reqID).Msg("background generation ended with error")
		}
	}()

	writeJSON(w, http.StatusAccepted, s.view(ctrl, ctrl.Snapshot()))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	dl, ok := s.controller(r).Download()
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "no image loaded"})
		return
	}

	w.Header().Set("content-type", dl.Image.ContentType())
	w.Header().Set("cache-control", "no-store")
	w.Header().Set("content-length", strconv.Itoa(len(dl.Image.Bytes)))
	_, _ = w.Write(dl.Image.Bytes)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	dl, ok := s.controller(r).Download()
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "no image loaded"})
		return
	}

	w.Header().Set("content-type", dl.Image.ContentType())
	w.Header().Set("content-disposition", contentDisposition(dl.Filename))
	w.Header().Set("cache-control", "no-store")
	w.Header().Set("content-length", strconv.Itoa(len(dl.Image.Bytes)))
	_, _ = w.Write(dl.Image.Bytes)
}

func (s *Server) controller(r *http.Request) *studio.Controller {
	key := sessionKey(r.Context())
	sess := s.sessions.GetOrCreate(key, func() *studio.Controller {
		return s.newController(s.messagesFor(r))
	})
	return sess.Controller
}

func (s *Server) messagesFor(r *http.Request) studio.Messages {
	if raw := r.URL.Query().Get("lang"); raw != "" {
		if tag, err := language.Parse(raw); err == nil {
			return studio.MessagesFor(tag)
		}
	}
	return studio.MessagesForHeader(r.Header.Get("Accept-Language"), s.defaultLocale)
}

// view renders a snapshot with an image URL that changes with every state
// version so browsers never show a stale image.
func (s *Server) view(ctrl *studio.Controller, snap studio.Snapshot) studio.View {
	v := ctrl.Render(snap)
	if v.Display.Kind == studio.DisplayImage {
		v.Display.ImageURL = "/api/image?v=" + strconv.FormatUint(snap.Version, 10)
	}
	return v
}

func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, studio.ErrGenerationInFlight):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
	case errors.Is(err, thumbnail.ErrInvalidStyleKey):
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
	default:
		s.logger.Error().Err(err).Msg("unexpected controller error")
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
	}
}

// controllerImageURL keeps Render from base64-encoding every image; the web
// view replaces it with a versioned URL.
func controllerImageURL(thumbnail.Image) string {
	return "/api/image"
}

// NewControllerFunc is the factory used by cmd/web.
func NewControllerFunc(gen studio.Generator, logger *zerolog.Logger) func(studio.Messages) *studio.Controller {
	return func(msgs studio.Messages) *studio.Controller {
		return studio.New(studio.Options{
			Generator: gen,
			Messages:  &msgs,
			Logger:    logger,
			ImageURL:  controllerImageURL,
		})
	}
}

func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("dur_ms", time.Since(start).Milliseconds()).
			Msg("http")
	})
}
