package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harshraj32/emo-insight-backend/internal/session"
	"github.com/harshraj32/emo-insight-backend/internal/stream"
)

// IngestEngine routes parsed meeting-bot events into session state.
type IngestEngine interface {
	HandleEvent(sessionID string, ev stream.Event) error
}

// IngestHooks lets the caller observe ingest connection lifecycle, e.g. to
// arm a silence watchdog when the bot's stream drops.
type IngestHooks struct {
	Resolve  func(sessionID string) bool
	OnAttach func(sessionID string)
	OnDetach func(sessionID string)
}

// registerIngestRoute serves the websocket the meeting bot streams into. A
// connection naming an unknown session is closed with policy-violation (1008)
// rather than silently buffering for a session that will never exist.
func registerIngestRoute(mux *http.ServeMux, engine IngestEngine, hooks IngestHooks) {
	mux.HandleFunc("GET /ingest", func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ingest upgrade error: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		if sessionID == "" || (hooks.Resolve != nil && !hooks.Resolve(sessionID)) {
			rejectIngest(conn, sessionID)
			return
		}

		if hooks.OnAttach != nil {
			hooks.OnAttach(sessionID)
		}
		if hooks.OnDetach != nil {
			defer hooks.OnDetach(sessionID)
		}

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}

			ev, err := stream.Parse(raw)
			if err != nil {
				// Malformed messages are skipped, not fatal.
				log.Printf("warning: skipping ingest message for %s: %v", sessionID, err)
				continue
			}

			if err := engine.HandleEvent(sessionID, ev); err != nil {
				if err == session.ErrUnknownSession {
					rejectIngest(conn, sessionID)
					return
				}
				log.Printf("warning: ingest event for %s: %v", sessionID, err)
			}
		}
	})
}

func rejectIngest(conn *websocket.Conn, sessionID string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown session")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	log.Printf("warning: rejected ingest connection for unknown session %q", sessionID)
}
