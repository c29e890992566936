package recall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStartBot(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bot" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "bot-42"})
	}))
	defer srv.Close()

	c := NewClient("secret", "us-east-1", WithBaseURL(srv.URL))
	botID, err := c.StartBot(context.Background(), "https://meet.example/abc", "wss://coach.example/ingest?session_id=s1")
	if err != nil {
		t.Fatalf("StartBot failed: %v", err)
	}
	if botID != "bot-42" {
		t.Fatalf("expected bot id bot-42, got %q", botID)
	}
	if gotAuth != "Token secret" {
		t.Fatalf("expected token auth header, got %q", gotAuth)
	}
	if gotPayload["meeting_url"] != "https://meet.example/abc" {
		t.Fatalf("expected meeting url in payload, got %v", gotPayload["meeting_url"])
	}

	rec, ok := gotPayload["recording_config"].(map[string]any)
	if !ok {
		t.Fatal("expected recording_config in payload")
	}
	endpoints, ok := rec["realtime_endpoints"].([]any)
	if !ok || len(endpoints) != 1 {
		t.Fatalf("expected one realtime endpoint, got %v", rec["realtime_endpoints"])
	}
	endpoint := endpoints[0].(map[string]any)
	if endpoint["url"] != "wss://coach.example/ingest?session_id=s1" {
		t.Fatalf("expected receiver url wired through, got %v", endpoint["url"])
	}
	events, _ := endpoint["events"].([]any)
	if len(events) != 4 {
		t.Fatalf("expected 4 subscribed event kinds, got %v", events)
	}
}

func TestStartBotErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "invalid meeting url"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("secret", "", WithBaseURL(srv.URL))
	_, err := c.StartBot(context.Background(), "nonsense", "wss://coach.example/ingest")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestStopBot(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("secret", "", WithBaseURL(srv.URL))
	if err := c.StopBot(context.Background(), "bot-42"); err != nil {
		t.Fatalf("StopBot failed: %v", err)
	}
	if gotPath != "/bot/bot-42/leave/" {
		t.Fatalf("expected leave path, got %q", gotPath)
	}
}
