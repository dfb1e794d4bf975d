// Package server exposes the upload/generate/review HTTP surface around the
// outreach pipeline. Pipeline correctness lives below this layer.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trytheo/outreach/internal/orgio"
	"github.com/trytheo/outreach/internal/outreach"
	"github.com/trytheo/outreach/internal/redact"
	"github.com/trytheo/outreach/internal/session"
)

const (
	sessionCookie    = "session_id"
	sessionCookieAge = 24 * time.Hour
	maxUploadBytes   = 10 << 20

	// Step tag published when a full run finishes.
	stepRunComplete = "run_complete"
)

// PipelineRunner is the orchestration entrypoint the server drives. Tests
// substitute a stub.
type PipelineRunner interface {
	Run(ctx context.Context, orgs []outreach.Organization, template string, progress outreach.ProgressFunc) []outreach.OrganizationResult
}

type Server struct {
	store     *session.Store
	runner    PipelineRunner
	validator *outreach.Validator
	log       *zap.Logger

	mu      sync.Mutex
	hubs    map[string]*hub
	running map[string]bool
}

func New(store *session.Store, runner PipelineRunner, validator *outreach.Validator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		store:     store,
		runner:    runner,
		validator: validator,
		log:       log,
		hubs:      make(map[string]*hub),
		running:   make(map[string]bool),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /results", s.handleResults)
	mux.HandleFunc("POST /update_email", s.handleUpdateEmail)
	mux.HandleFunc("GET /download", s.handleDownload)
	return mux
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	file, _, err := r.FormFile("csv_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no CSV file uploaded")
		return
	}
	defer func() { _ = file.Close() }()

	template := r.FormValue("template")
	if template == "" {
		writeError(w, http.StatusBadRequest, "no template provided")
		return
	}

	orgs, columns, err := orgio.ReadOrganizations(file, s.validator)
	if err != nil {
		writeError(w, http.StatusBadRequest, "parse CSV: "+err.Error())
		return
	}

	data, err := s.store.Load(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	data.Template = template
	data.Columns = columns
	data.Organizations = orgs
	data.Results = nil
	data.Export = nil
	if err := s.store.Save(id, data); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.setSessionCookie(w, id)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"organization_count": len(orgs),
		"columns":            columns,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(r)
	data, err := s.store.Load(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(data.Organizations) == 0 || data.Template == "" {
		writeError(w, http.StatusBadRequest, "please upload CSV and template first")
		return
	}

	s.mu.Lock()
	if s.running[id] {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "generation already running for this session")
		return
	}
	s.running[id] = true
	s.mu.Unlock()

	h := s.hubFor(id)
	go s.runPipeline(id, data, h)

	s.setSessionCookie(w, id)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"started":            true,
		"organization_count": len(data.Organizations),
	})
}

func (s *Server) runPipeline(id string, data session.Data, h *hub) {
	defer func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
	}()

	results := s.runner.Run(context.Background(), data.Organizations, data.Template, h.publish)
	rows := outreach.FlattenResults(results)
	summary := outreach.Summarize(rows)

	data.Results = results
	data.Export = rows
	if err := s.store.Save(id, data); err != nil {
		s.log.Error("save session results failed",
			zap.String("session", id),
			zap.String("error", redact.Secrets(err.Error())))
	}

	detail, _ := json.Marshal(summary)
	h.publish(outreach.ProgressEvent{
		OrgIndex: len(data.Organizations),
		OrgTotal: len(data.Organizations),
		Step:     stepRunComplete,
		Detail:   string(detail),
	})
	s.log.Info("generation run complete",
		zap.String("session", id),
		zap.Int("emails", summary.TotalEmails),
		zap.Int("flagged", summary.FlaggedCount))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, cancel := s.hubFor(id).subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			if ev.Step == stepRunComplete {
				return
			}
		}
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(r)
	data, err := s.store.Load(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"emails":  data.Export,
		"summary": outreach.Summarize(data.Export),
	})
}

func (s *Server) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(r)

	var req struct {
		Index int `json:"index"`
		Email struct {
			Subject *string `json:"subject"`
			Body    *string `json:"body"`
		} `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	data, err := s.store.Load(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.Index < 0 || req.Index >= len(data.Export) {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	if req.Email.Subject != nil {
		data.Export[req.Index].Subject = *req.Email.Subject
	}
	if req.Email.Body != nil {
		data.Export[req.Index].Body = *req.Email.Body
	}
	if err := s.store.Save(id, data); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(r)
	data, err := s.store.Load(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(data.Export) == 0 {
		writeError(w, http.StatusBadRequest, "no data to export")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="outreach_emails.csv"`)
	if err := orgio.WriteExport(w, data.Export); err != nil {
		s.log.Error("write export failed", zap.String("session", id), zap.Error(err))
	}
}

func (s *Server) hubFor(id string) *hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hubs[id]
	if !ok {
		h = newHub()
		s.hubs[id] = h
	}
	return h
}

// sessionID returns the session from the cookie, or a fresh one.
func (s *Server) sessionID(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return session.NewID()
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionCookieAge.Seconds()),
		HttpOnly: true,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": redact.Secrets(msg)})
}
