// Package service exposes the daemon's localhost HTTP surface: item
// submission for out-of-process capture sources, queue and janitor
// status, manual sweeps, and read access to tasks and vault search.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vigil-dev/vigil/pkg/ingest"
	"github.com/vigil-dev/vigil/pkg/journal"
	"github.com/vigil-dev/vigil/pkg/lifecycle"
	"github.com/vigil-dev/vigil/pkg/tasks"
	"github.com/vigil-dev/vigil/pkg/types"
	"github.com/vigil-dev/vigil/pkg/vault"
)

// Server handles HTTP requests for the vigil daemon.
type Server struct {
	queue   *ingest.Queue
	janitor *lifecycle.Janitor
	tasks   *tasks.Store
	journal *journal.Journal
	vault   *vault.Vault
	addr    string
}

// New creates a daemon server bound to addr.
func New(addr string, q *ingest.Queue, j *lifecycle.Janitor, ts *tasks.Store, jr *journal.Journal, v *vault.Vault) *Server {
	return &Server{queue: q, janitor: j, tasks: ts, journal: jr, vault: v, addr: addr}
}

// Handler returns the routed handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /items", s.submitItem)
	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("POST /sweep", s.sweep)
	mux.HandleFunc("GET /tasks", s.listTasks)
	mux.HandleFunc("GET /search", s.search)
	mux.HandleFunc("GET /log/{day}", s.readLog)
	mux.HandleFunc("GET /health", s.health)

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("service: listening", "addr", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("service: serve: %w", err)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubmitRequest is the body for POST /items. Source defaults to "api"
// when absent.
type SubmitRequest struct {
	Text       string         `json:"text"`
	Source     string         `json:"source,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (s *Server) submitItem(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	accepted := s.queue.Put(types.RawItem{
		Text:       req.Text,
		Source:     types.Source(source),
		Timestamp:  time.Now(),
		Attributes: req.Attributes,
	})

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": accepted,
		"pending":  s.queue.PendingCount(),
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	stats := s.janitor.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": s.queue.PendingCount(),
		"janitor": map[string]any{
			"running":        stats.Running,
			"last_run":       stats.LastRun,
			"last_archived":  stats.LastArchived,
			"total_archived": stats.TotalArchived,
		},
	})
}

func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	result := s.janitor.RunOnce()
	writeJSON(w, http.StatusOK, map[string]any{
		"scanned":  result.Scanned,
		"archived": result.Archived,
	})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": s.tasks.ListActive(),
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	results := s.vault.Search(query, nil, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": results,
	})
}

func (s *Server) readLog(w http.ResponseWriter, r *http.Request) {
	day := r.PathValue("day")
	parsed, err := time.Parse(vault.DateFormat, day)
	if err != nil {
		writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
		return
	}
	content, ok := s.journal.Read(parsed)
	if !ok {
		writeError(w, http.StatusNotFound, "no log for "+day)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"day":     day,
		"content": content,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
