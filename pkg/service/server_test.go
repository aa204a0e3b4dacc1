package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-dev/vigil/pkg/ingest"
	"github.com/vigil-dev/vigil/pkg/journal"
	"github.com/vigil-dev/vigil/pkg/lifecycle"
	"github.com/vigil-dev/vigil/pkg/tasks"
	"github.com/vigil-dev/vigil/pkg/vault"
)

func newTestServer(t *testing.T) (*Server, *vault.Vault) {
	t.Helper()
	v, err := vault.Open(t.TempDir())
	require.NoError(t, err)

	q := ingest.NewQueue(ingest.WithBatchSize(100))
	j := lifecycle.NewJanitor(lifecycle.NewManager(v), time.Hour)
	ts := tasks.NewStore(v)
	jr := journal.New(v)
	return New("127.0.0.1:0", q, j, ts, jr, v), v
}

func doRequest(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec, body := doRequest(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestSubmitItemEntersQueue(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := doRequest(t, s, http.MethodPost, "/items",
		`{"text": "reviewed the deploy checklist", "source": "terminal"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, float64(1), body["pending"])

	// Identical resubmission is deduplicated.
	rec, body = doRequest(t, s, http.MethodPost, "/items",
		`{"text": "reviewed the deploy checklist", "source": "terminal"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, float64(1), body["pending"])
}

func TestSubmitItemRejectsEmptyText(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := doRequest(t, s, http.MethodPost, "/items", `{"text": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, s, http.MethodPost, "/items", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusReportsQueueAndJanitor(t *testing.T) {
	s, _ := newTestServer(t)
	doRequest(t, s, http.MethodPost, "/items", `{"text": "one"}`)

	rec, body := doRequest(t, s, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["pending"])

	janitor, ok := body["janitor"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, janitor["running"])
	assert.Equal(t, float64(0), janitor["total_archived"])
}

func TestSweepArchivesExpired(t *testing.T) {
	s, v := newTestServer(t)

	content := vault.BuildFrontmatter(vault.Fields{
		"date":     "2020-01-01",
		"priority": "P2",
		"expire":   "2020-01-31",
	}, "stale note")
	require.NoError(t, v.Write("logs", "2020-01-01.md", content))

	rec, body := doRequest(t, s, http.MethodPost, "/sweep", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["archived"])

	_, ok := v.Read("archive/logs_2020-01-01.md")
	assert.True(t, ok)
}

func TestListTasks(t *testing.T) {
	s, _ := newTestServer(t)
	_, err := s.tasks.Add("ship the release", "", "")
	require.NoError(t, err)

	rec, body := doRequest(t, s, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	list, ok := body["tasks"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
}

func TestSearch(t *testing.T) {
	s, v := newTestServer(t)
	require.NoError(t, v.Write("insights", "golang.md", "---\ndate: 2026-08-29\n---\nlearned about goroutine leaks today"))

	rec, body := doRequest(t, s, http.MethodGet, "/search?q=goroutine+leaks", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)

	rec, _ = doRequest(t, s, http.MethodGet, "/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadLog(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.journal.Append("wrote the quarterly summary", "terminal", "work", nil))

	day := time.Now().Format("2006-01-02")
	rec, body := doRequest(t, s, http.MethodGet, "/log/"+day, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["content"], "quarterly summary")

	rec, _ = doRequest(t, s, http.MethodGet, "/log/1999-01-01", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
