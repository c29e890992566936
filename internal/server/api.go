package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/harshraj32/emo-insight-backend/internal/coach"
	"github.com/harshraj32/emo-insight-backend/internal/session"
	"github.com/harshraj32/emo-insight-backend/internal/storage"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// SessionStore reads persisted session data for the REST surface.
type SessionStore interface {
	GetSession(id string) (storage.Session, error)
	ListSessions() ([]storage.Session, error)
	GetTranscripts(sessionID string) ([]coach.TranscriptLine, error)
	GetEmotionTrail(sessionID string) ([]storage.EmotionTrailEntry, error)
	GetWindowSummaries(sessionID string) ([]coach.WindowSummary, error)
}

// SessionControls are the lifecycle hooks wired in by main: starting a
// session provisions the engine state and (when a meeting URL is given)
// dispatches the capture bot; stopping tears both down.
type SessionControls struct {
	Start func(ctx context.Context, repName, objective, meetingURL string) (sessionID string, err error)
	Stop  func(ctx context.Context, sessionID string) error
}

type createSessionRequest struct {
	RepName    string `json:"rep_name"`
	Objective  string `json:"objective"`
	MeetingURL string `json:"meeting_url"`
}

func registerAPIRoutes(mux *http.ServeMux, store SessionStore, controls SessionControls) {
	mux.HandleFunc("POST /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}
		if strings.TrimSpace(req.RepName) == "" {
			writeJSONError(w, http.StatusBadRequest, "rep_name is required")
			return
		}
		if controls.Start == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "session start not available")
			return
		}

		sessionID, err := controls.Start(r.Context(), req.RepName, req.Objective, req.MeetingURL)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("start session: %v", err))
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"id": sessionID})
	})

	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		sessions, err := store.ListSessions()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	})

	mux.HandleFunc("GET /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}

		sessionData, err := store.GetSession(sessionID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sql.ErrNoRows) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get session: %v", err))
			return
		}

		transcripts, err := store.GetTranscripts(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session transcripts: %v", err))
			return
		}
		trail, err := store.GetEmotionTrail(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session emotion trail: %v", err))
			return
		}
		summaries, err := store.GetWindowSummaries(sessionID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get session summaries: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"session":          sessionData,
			"transcripts":      transcripts,
			"emotion_trail":    trail,
			"window_summaries": summaries,
		})
	})

	mux.HandleFunc("DELETE /api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if !validSessionID(sessionID) {
			writeJSONError(w, http.StatusForbidden, "invalid session id")
			return
		}
		if controls.Stop == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "session stop not available")
			return
		}

		if err := controls.Stop(r.Context(), sessionID); err != nil {
			if errors.Is(err, session.ErrUnknownSession) {
				writeJSONError(w, http.StatusNotFound, "session not found")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("stop session: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func validSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
