package stream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound event kinds as named by the meeting-capture agent.
const (
	KindVideoFrame        = "video_separate_png.data"
	KindAudioChunk        = "audio_separate_raw.data"
	KindTranscript        = "transcript.data"
	KindTranscriptPartial = "transcript.partial_data"
	KindParticipantJoin   = "participant_events.join"
	KindParticipantLeave  = "participant_events.leave"
	KindSpeechOn          = "participant_events.speech_on"
	KindWebcamOn          = "participant_events.webcam_on"
)

// Participant identifies the speaker an event belongs to.
type Participant struct {
	Name string
	ID   int
}

// Event is one parsed inbound message, normalized so the engine never touches
// wire encoding. Exactly the fields for the event's kind are populated.
type Event struct {
	Kind        string
	Participant Participant

	// Audio chunk.
	Audio      []byte
	RelativeTS float64

	// Video frame.
	Frame []byte

	// Transcript line, words joined in order.
	Text    string
	Partial bool
}

// IsPresence reports whether the event is a participant presence change
// rather than a media or transcript payload.
func (e Event) IsPresence() bool {
	switch e.Kind {
	case KindParticipantJoin, KindParticipantLeave, KindSpeechOn, KindWebcamOn:
		return true
	}
	return false
}

// Wire shape of the capture agent's messages. Payload fields are nested two
// levels down and vary by kind; unknown fields are ignored.
type wireMessage struct {
	Event string `json:"event"`
	Data  struct {
		Data struct {
			Participant struct {
				Name string `json:"name"`
				ID   int    `json:"id"`
			} `json:"participant"`
			Buffer    string `json:"buffer"`
			Timestamp struct {
				Relative float64 `json:"relative"`
			} `json:"timestamp"`
			Words []struct {
				Text string `json:"text"`
			} `json:"words"`
		} `json:"data"`
	} `json:"data"`
}

// Parse decodes one inbound message. Unrecognized event kinds and payloads
// that fail to decode return an error; callers skip such messages and keep
// reading.
func Parse(raw []byte) (Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	ev := Event{
		Kind: msg.Event,
		Participant: Participant{
			Name: msg.Data.Data.Participant.Name,
			ID:   msg.Data.Data.Participant.ID,
		},
	}

	switch msg.Event {
	case KindAudioChunk:
		pcm, err := base64.StdEncoding.DecodeString(msg.Data.Data.Buffer)
		if err != nil {
			return Event{}, fmt.Errorf("decode audio buffer: %w", err)
		}
		ev.Audio = pcm
		ev.RelativeTS = msg.Data.Data.Timestamp.Relative

	case KindVideoFrame:
		frame, err := base64.StdEncoding.DecodeString(msg.Data.Data.Buffer)
		if err != nil {
			return Event{}, fmt.Errorf("decode frame buffer: %w", err)
		}
		ev.Frame = frame

	case KindTranscript, KindTranscriptPartial:
		words := make([]string, 0, len(msg.Data.Data.Words))
		for _, w := range msg.Data.Data.Words {
			if w.Text != "" {
				words = append(words, w.Text)
			}
		}
		ev.Text = strings.Join(words, " ")
		ev.Partial = msg.Event == KindTranscriptPartial

	case KindParticipantJoin, KindParticipantLeave, KindSpeechOn, KindWebcamOn:
		// Presence events carry only the participant.

	default:
		return Event{}, fmt.Errorf("unknown event kind %q", msg.Event)
	}

	if ev.Participant.Name == "" {
		return Event{}, fmt.Errorf("event %q missing participant name", msg.Event)
	}

	return ev, nil
}
