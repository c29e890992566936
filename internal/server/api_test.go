package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/coach"
	"github.com/harshraj32/emo-insight-backend/internal/session"
	"github.com/harshraj32/emo-insight-backend/internal/storage"
	"github.com/harshraj32/emo-insight-backend/internal/stream"
)

type apiStoreStub struct {
	sessions    map[string]storage.Session
	transcripts map[string][]coach.TranscriptLine
	trails      map[string][]storage.EmotionTrailEntry
	summaries   map[string][]coach.WindowSummary
}

func (s apiStoreStub) GetSession(id string) (storage.Session, error) {
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	return storage.Session{}, sql.ErrNoRows
}

func (s apiStoreStub) ListSessions() ([]storage.Session, error) {
	out := make([]storage.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out, nil
}

func (s apiStoreStub) GetTranscripts(sessionID string) ([]coach.TranscriptLine, error) {
	return s.transcripts[sessionID], nil
}

func (s apiStoreStub) GetEmotionTrail(sessionID string) ([]storage.EmotionTrailEntry, error) {
	return s.trails[sessionID], nil
}

func (s apiStoreStub) GetWindowSummaries(sessionID string) ([]coach.WindowSummary, error) {
	return s.summaries[sessionID], nil
}

type engineStub struct {
	events []stream.Event
	err    error
}

func (e *engineStub) HandleEvent(sessionID string, ev stream.Event) error {
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, ev)
	return nil
}

func newTestServer(t *testing.T, store SessionStore, controls SessionControls) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(Handler(nil, NewHub(), store, &engineStub{}, controls, IngestHooks{}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateSession(t *testing.T) {
	var gotRep, gotObjective, gotURL string
	controls := SessionControls{
		Start: func(ctx context.Context, repName, objective, meetingURL string) (string, error) {
			gotRep, gotObjective, gotURL = repName, objective, meetingURL
			return "sess-1", nil
		},
	}
	srv := newTestServer(t, apiStoreStub{}, controls)

	body := `{"rep_name": "Rita", "objective": "close the deal", "meeting_url": "https://meet.example/abc"}`
	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["id"] != "sess-1" {
		t.Fatalf("expected session id in response, got %v", out)
	}
	if gotRep != "Rita" || gotObjective != "close the deal" || gotURL != "https://meet.example/abc" {
		t.Fatalf("hook got %q %q %q", gotRep, gotObjective, gotURL)
	}
}

func TestCreateSessionRequiresRepName(t *testing.T) {
	srv := newTestServer(t, apiStoreStub{}, SessionControls{
		Start: func(context.Context, string, string, string) (string, error) { return "x", nil },
	})

	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", strings.NewReader(`{"objective": "x"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetSessionDetail(t *testing.T) {
	createdAt := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	store := apiStoreStub{
		sessions: map[string]storage.Session{
			"sess-1": {ID: "sess-1", RepName: "Rita", Status: storage.StatusActive, CreatedAt: createdAt},
		},
		transcripts: map[string][]coach.TranscriptLine{
			"sess-1": {{At: createdAt, Speaker: "Bob", Text: "hello"}},
		},
		summaries: map[string][]coach.WindowSummary{
			"sess-1": {{Summary: "intro", Phase: coach.PhasePleasantries}},
		},
	}
	srv := newTestServer(t, store, SessionControls{})

	resp, err := http.Get(srv.URL + "/api/sessions/sess-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, key := range []string{"session", "transcripts", "emotion_trail", "window_summaries"} {
		if _, ok := out[key]; !ok {
			t.Fatalf("expected %s in response, got keys %v", key, out)
		}
	}
}

func TestGetSessionNotFound(t *testing.T) {
	srv := newTestServer(t, apiStoreStub{}, SessionControls{})

	resp, err := http.Get(srv.URL + "/api/sessions/missing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDeleteSession(t *testing.T) {
	stopped := ""
	controls := SessionControls{
		Stop: func(ctx context.Context, id string) error {
			stopped = id
			return nil
		},
	}
	srv := newTestServer(t, apiStoreStub{}, controls)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/sess-1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if stopped != "sess-1" {
		t.Fatalf("expected stop hook called, got %q", stopped)
	}
}

func TestDeleteUnknownSession(t *testing.T) {
	controls := SessionControls{
		Stop: func(ctx context.Context, id string) error { return session.ErrUnknownSession },
	}
	srv := newTestServer(t, apiStoreStub{}, controls)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/missing", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, apiStoreStub{}, SessionControls{})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
