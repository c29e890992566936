package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/coach"
	"github.com/harshraj32/emo-insight-backend/internal/emotion"
)

// Hub fans live session events out to connected UI clients. Slow clients are
// skipped, never blocked on.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) BroadcastSessionStarted(sessionID, repName string) {
	h.broadcastEvent(SessionStartedEvent{
		Event:     newEvent("session_started", time.Now().UTC()),
		SessionID: sessionID,
		RepName:   repName,
	})
}

func (h *Hub) BroadcastSessionEnded(sessionID string, duration time.Duration) {
	h.broadcastEvent(SessionEndedEvent{
		Event:     newEvent("session_ended", time.Now().UTC()),
		SessionID: sessionID,
		Duration:  duration.Seconds(),
	})
}

func (h *Hub) BroadcastTranscript(sessionID string, line coach.TranscriptLine, partial bool) {
	h.broadcastEvent(TranscriptEvent{
		Event:     newEvent("transcript", line.At),
		SessionID: sessionID,
		Speaker:   line.Speaker,
		Text:      line.Text,
		Partial:   partial,
	})
}

func (h *Hub) BroadcastPresence(sessionID, speaker, kind string) {
	h.broadcastEvent(PresenceEvent{
		Event:     newEvent("presence", time.Now().UTC()),
		SessionID: sessionID,
		Speaker:   speaker,
		Kind:      kind,
	})
}

func (h *Hub) BroadcastEmotion(sessionID, speaker string, summary emotion.Summary, blended string) {
	h.broadcastEvent(EmotionEvent{
		Event:     newEvent("emotion", time.Now().UTC()),
		SessionID: sessionID,
		Speaker:   speaker,
		Blended:   blended,
		Summary:   summary,
	})
}

func (h *Hub) BroadcastAdvice(sessionID string, advice coach.Advice) {
	h.broadcastEvent(AdviceEvent{
		Event:     newEvent("advice", time.Now().UTC()),
		SessionID: sessionID,
		Advice:    advice,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}
