package dashboard

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/logging"
	"github.com/hupe1980/agentfeed/render"
)

// ServerOptions configures a Server.
type ServerOptions struct {
	// Refresh is the page auto-refresh interval. Zero disables it.
	Refresh time.Duration
	// TriggerTimeout bounds one trigger round trip.
	TriggerTimeout time.Duration
	Logger         logging.Logger
}

// Server renders a Board as HTML and accepts trigger submissions.
type Server struct {
	board *Board
	tmpl  *template.Template
	opts  ServerOptions

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	sendStatus string
}

// NewServer creates a Server for board.
func NewServer(board *Board, optFns ...func(o *ServerOptions)) *Server {
	opts := ServerOptions{
		Refresh:        3 * time.Second,
		TriggerTimeout: 5 * time.Minute,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		board:  board,
		tmpl:   template.Must(template.New("page").Funcs(pageFuncs).Parse(pageTemplate)),
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
}

var pageFuncs = template.FuncMap{
	"markdown": func(rec core.Record) template.HTML { return render.MustMarkdown(bodyText(rec)) },
	"summary":  render.Summary,
	"clock":    Clock,
	"label":    KindLabel,
	"lower":    strings.ToLower,
}

// Register mounts the dashboard routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.ServePage)
	mux.HandleFunc("GET /api/snapshot", s.ServeSnapshot)
	mux.HandleFunc("POST /trigger", s.ServeTrigger)
}

// Close cancels pending triggers and waits for them.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

type pageData struct {
	Snapshot
	Presets    []Preset
	Agents     []string
	Debug      bool
	SendStatus string
	Refresh    int
}

// ServePage renders the board. ?debug=1 adds the diagnostic panel.
func (s *Server) ServePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Snapshot:   s.board.Snapshot(),
		Presets:    Presets,
		Agents:     s.board.Agents(),
		Debug:      r.URL.Query().Get("debug") == "1",
		SendStatus: s.status(),
		Refresh:    int(s.opts.Refresh / time.Second),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := s.tmpl.Execute(w, data); err != nil {
		s.opts.Logger.Error("render page failed", "error", err.Error())
	}
}

// ServeSnapshot writes the display model as JSON.
func (s *Server) ServeSnapshot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.board.Snapshot())
}

// ServeTrigger accepts either a preset index or a target and custom message,
// dispatches the trigger in the background and redirects back to the board.
func (s *Server) ServeTrigger(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	target := r.PostForm.Get("target")
	message := strings.TrimSpace(r.PostForm.Get("message"))

	if raw := r.PostForm.Get("preset"); raw != "" {
		i, err := strconv.Atoi(raw)
		if err != nil || i < 0 || i >= len(Presets) {
			http.Error(w, "unknown preset", http.StatusBadRequest)
			return
		}

		target, message = Presets[i].Target, Presets[i].Message
	}

	if message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	if s.board.feed(target) == nil {
		http.Error(w, "unknown agent", http.StatusBadRequest)
		return
	}

	s.setStatus("Sending to " + target + "...")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.send(target, message)
	}()

	back := "/"
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Query().Get("debug") == "1" {
		back = "/?debug=1"
	}

	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) send(target, message string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.TriggerTimeout)
	defer cancel()

	if _, err := s.board.Trigger(ctx, target, message); err != nil {
		s.opts.Logger.Warn("trigger failed", "agent", target, "error", err.Error())
		s.setStatus("Failed to send to " + target + ".")

		return
	}

	s.setStatus("Sent to " + target + ": " + render.Summary(message, 80))
}

func (s *Server) setStatus(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sendStatus = v
}

func (s *Server) status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sendStatus
}
