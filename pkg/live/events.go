package live

import (
	"encoding/json"
	"fmt"

	"github.com/arilabs/go-ari/pkg/pcm"
)

// EventKind tags a decoded server event.
type EventKind int

const (
	// EventNone marks an unknown or empty payload; handlers ignore it.
	EventNone EventKind = iota
	// EventAudio carries a decoded model audio chunk.
	EventAudio
	// EventInputTranscript carries a user transcript delta.
	EventInputTranscript
	// EventOutputTranscript carries a model transcript delta.
	EventOutputTranscript
	// EventTurnComplete signals the end of the current turn.
	EventTurnComplete
	// EventInterrupted signals the user barged in over model playback.
	EventInterrupted
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventAudio:
		return "audio"
	case EventInputTranscript:
		return "input_transcript"
	case EventOutputTranscript:
		return "output_transcript"
	case EventTurnComplete:
		return "turn_complete"
	case EventInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ServerEvent is one decoded inbound event. Audio is set for EventAudio,
// Text for the transcript kinds.
type ServerEvent struct {
	Kind  EventKind
	Audio pcm.Chunk
	Text  string
}

// Wire shapes of the BidiGenerateContent server messages. Decoded once
// at the boundary; everything past this point works on ServerEvent.
type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete"`
	ServerContent *serverContent `json:"serverContent"`
}

type serverContent struct {
	TurnComplete        bool           `json:"turnComplete"`
	Interrupted         bool           `json:"interrupted"`
	ModelTurn           *modelTurn     `json:"modelTurn"`
	InputTranscription  *transcription `json:"inputTranscription"`
	OutputTranscription *transcription `json:"outputTranscription"`
}

type modelTurn struct {
	Parts []contentPart `json:"parts"`
}

type contentPart struct {
	Text       string      `json:"text"`
	InlineData *inlineData `json:"inlineData"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type transcription struct {
	Text string `json:"text"`
}

// decodeEvents maps one raw server message to events, in delivery order:
// audio chunks first, then transcript deltas, then interruption, then
// turn completion. A malformed audio payload drops that chunk only;
// remaining events in the message still decode. Unknown messages decode
// to nothing rather than an error.
func decodeEvents(raw []byte, outputRate int) ([]ServerEvent, error) {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("live: parse server message: %w", err)
	}

	sc := msg.ServerContent
	if sc == nil {
		return nil, nil
	}

	var events []ServerEvent

	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || !isPCMMime(part.InlineData.MimeType) {
				continue
			}
			samples, err := pcm.Decode(part.InlineData.Data)
			if err != nil || len(samples) == 0 {
				// Local recovery: drop the offending chunk, keep going.
				continue
			}
			events = append(events, ServerEvent{
				Kind:  EventAudio,
				Audio: pcm.Chunk{Samples: samples, Rate: outputRate},
			})
		}
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		events = append(events, ServerEvent{Kind: EventInputTranscript, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		events = append(events, ServerEvent{Kind: EventOutputTranscript, Text: sc.OutputTranscription.Text})
	}
	if sc.Interrupted {
		events = append(events, ServerEvent{Kind: EventInterrupted})
	}
	if sc.TurnComplete {
		events = append(events, ServerEvent{Kind: EventTurnComplete})
	}

	return events, nil
}

func isPCMMime(mime string) bool {
	return mime == "audio/pcm" || mime == "audio/pcm;rate=24000"
}
