package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"eventfeed/internal/config"
	"eventfeed/internal/feed"
	"eventfeed/internal/ics"
	appLog "eventfeed/internal/log"
	"eventfeed/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

var feedTemplate = template.Must(template.ParseFS(templateFS, "templates/feed.html"))

// Server exposes the event feed over HTTP. Every request that renders the
// feed mounts a fresh screen, so nothing is cached between requests.
type Server struct {
	cfg     *config.Config
	fetcher feed.Fetcher
	metrics *metrics.Metrics
	loc     *time.Location
	mux     *http.ServeMux
}

// NewServer constructs a new Server. m may be nil.
func NewServer(cfg *config.Config, fetcher feed.Fetcher, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		fetcher: fetcher,
		metrics: m,
		loc:     cfg.Location(),
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventfeed", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleFeed)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /events.ics", s.handleICS)
	s.mux.HandleFunc("GET /signup", s.handleSignUp)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// mount activates a screen for the lifetime of r and waits for it to
// settle. The caller must Deactivate the returned screen.
func (s *Server) mount(r *http.Request, opener feed.URLOpener) (*feed.Screen, feed.State) {
	screen := feed.NewScreen(s.fetcher, opener, s.loc)
	screen.Activate(r.Context())
	return screen, screen.Wait(r.Context())
}

// feedView is the template data for the HTML feed.
type feedView struct {
	Header         string
	State          string
	Ready          bool
	Message        string
	Cards          []feed.Card
	MaxRows        int
	LoadingMessage string
	EmptyMessage   string
	SignUpLabel    string
	NoSignUpText   string
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	screen, st := s.mount(r, nil)
	defer screen.Deactivate()

	view := feedView{
		Header:         feed.HeaderTitle,
		State:          st.Phase.String(),
		Ready:          st.Phase != feed.PhaseLoading,
		Message:        st.Message,
		Cards:          screen.Cards(),
		MaxRows:        feed.MaxDescriptionRows,
		LoadingMessage: feed.LoadingMessage,
		EmptyMessage:   feed.EmptyMessage,
		SignUpLabel:    feed.SignUpLabel,
		NoSignUpText:   feed.NoSignUpText,
	}

	var buf bytes.Buffer
	if err := feedTemplate.Execute(&buf, view); err != nil {
		appLog.Error("feed template failed", err)
		http.Error(w, "failed to render feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Header  string     `json:"header"`
	State   string     `json:"state"`
	Message string     `json:"message,omitempty"`
	Events  []eventDTO `json:"events"`
}

// eventDTO is a JSON-friendly view of a card.
type eventDTO struct {
	Key           string `json:"key"`
	StableKey     bool   `json:"stable_key"`
	StartDateTime string `json:"start_date_time,omitempty"`
	Description   string `json:"description,omitempty"`
	SignUpURL     string `json:"sign_up_url,omitempty"`
	GraphicURL    string `json:"graphic_url,omitempty"`
	FormattedDate string `json:"formatted_date"`
	FormattedTime string `json:"formatted_time"`
}

// handleEvents returns the screen as JSON. A failed fetch answers 502 with
// the same message the feed shows.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	screen, st := s.mount(r, nil)
	defer screen.Deactivate()

	cards := screen.Cards()
	resp := eventsResponse{
		Header:  feed.HeaderTitle,
		State:   st.Phase.String(),
		Message: st.Message,
		Events:  make([]eventDTO, 0, len(cards)),
	}
	for _, c := range cards {
		resp.Events = append(resp.Events, eventDTO{
			Key:           c.Key,
			StableKey:     c.StableKey,
			StartDateTime: c.StartDateTime,
			Description:   c.Description,
			SignUpURL:     c.SignUpURL,
			GraphicURL:    c.GraphicURL,
			FormattedDate: c.FormattedDate,
			FormattedTime: c.FormattedTime,
		})
	}

	status := http.StatusOK
	if st.Phase != feed.PhaseLoaded {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

// handleICS exports events with a valid start as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	screen, st := s.mount(r, nil)
	defer screen.Deactivate()

	if st.Phase != feed.PhaseLoaded {
		http.Error(w, st.Message, http.StatusBadGateway)
		return
	}

	body := ics.Export(screen.Cards(), s.loc, time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=events.ics")
	_, _ = w.Write([]byte(body))
}

// handleSignUp redirects to the sign-up link of the event with the given
// key. Any failure sends the user back to the feed.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	opener := &redirectOpener{w: w, r: r}

	screen, _ := s.mount(r, opener)
	defer screen.Deactivate()

	if !screen.SignUp(r.Context(), key) {
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// redirectOpener opens a URL by redirecting the browser to it.
type redirectOpener struct {
	w http.ResponseWriter
	r *http.Request
}

func (o *redirectOpener) OpenURL(_ context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	http.Redirect(o.w, o.r, u.String(), http.StatusFound)
	return nil
}

// handlePreview serves the last PNG snapshot written by the capturer.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Capture.OutputPath)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
