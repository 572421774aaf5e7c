package live

import (
	"encoding/base64"
	"testing"

	"github.com/arilabs/go-ari/pkg/pcm"
)

func audioMessage(mime, data string) string {
	return `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"` + mime + `","data":"` + data + `"}}]}}}`
}

func TestDecodeAudioEvent(t *testing.T) {
	data := pcm.Encode([]float32{0.25, -0.25, 0.5})
	events, err := decodeEvents([]byte(audioMessage("audio/pcm;rate=24000", data)), 24000)
	if err != nil {
		t.Fatalf("decodeEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Kind != EventAudio {
		t.Errorf("kind = %v, want EventAudio", ev.Kind)
	}
	if len(ev.Audio.Samples) != 3 {
		t.Errorf("got %d samples, want 3", len(ev.Audio.Samples))
	}
	if ev.Audio.Rate != 24000 {
		t.Errorf("rate = %d, want 24000", ev.Audio.Rate)
	}
}

func TestDecodeTranscriptEvents(t *testing.T) {
	raw := `{"serverContent":{"inputTranscription":{"text":"hello "},"outputTranscription":{"text":"hi there"}}}`
	events, err := decodeEvents([]byte(raw), 24000)
	if err != nil {
		t.Fatalf("decodeEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != EventInputTranscript || events[0].Text != "hello " {
		t.Errorf("event 0 = %v %q", events[0].Kind, events[0].Text)
	}
	if events[1].Kind != EventOutputTranscript || events[1].Text != "hi there" {
		t.Errorf("event 1 = %v %q", events[1].Kind, events[1].Text)
	}
}

func TestDecodeTurnCompleteAndInterrupted(t *testing.T) {
	events, err := decodeEvents([]byte(`{"serverContent":{"turnComplete":true}}`), 24000)
	if err != nil || len(events) != 1 || events[0].Kind != EventTurnComplete {
		t.Errorf("turnComplete: events=%v err=%v", events, err)
	}

	events, err = decodeEvents([]byte(`{"serverContent":{"interrupted":true}}`), 24000)
	if err != nil || len(events) != 1 || events[0].Kind != EventInterrupted {
		t.Errorf("interrupted: events=%v err=%v", events, err)
	}
}

func TestDecodeInterruptedBeforeTurnComplete(t *testing.T) {
	raw := `{"serverContent":{"interrupted":true,"turnComplete":true}}`
	events, err := decodeEvents([]byte(raw), 24000)
	if err != nil {
		t.Fatalf("decodeEvents: %v", err)
	}
	if len(events) != 2 || events[0].Kind != EventInterrupted || events[1].Kind != EventTurnComplete {
		t.Errorf("unexpected order: %v", events)
	}
}

func TestDecodeUnknownMessage(t *testing.T) {
	for _, raw := range []string{
		`{"setupComplete":{}}`,
		`{"somethingElse":{"x":1}}`,
		`{}`,
	} {
		events, err := decodeEvents([]byte(raw), 24000)
		if err != nil {
			t.Errorf("%s: unexpected error %v", raw, err)
		}
		if len(events) != 0 {
			t.Errorf("%s: expected no events, got %v", raw, events)
		}
	}
}

func TestDecodeMalformedAudioDropsChunkOnly(t *testing.T) {
	// Odd byte count in the first part; the transcript in the same
	// message must still be delivered.
	bad := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	raw := `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm","data":"` + bad + `"}}]},"outputTranscription":{"text":"still here"}}}`

	events, err := decodeEvents([]byte(raw), 24000)
	if err != nil {
		t.Fatalf("decodeEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Kind != EventOutputTranscript || events[0].Text != "still here" {
		t.Errorf("surviving event = %v %q", events[0].Kind, events[0].Text)
	}
}

func TestDecodeSkipsNonAudioInlineData(t *testing.T) {
	events, err := decodeEvents([]byte(audioMessage("image/png", "aGVsbG8=")), 24000)
	if err != nil {
		t.Fatalf("decodeEvents: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events for non-audio inline data, got %v", events)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	if _, err := decodeEvents([]byte(`{not json`), 24000); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
