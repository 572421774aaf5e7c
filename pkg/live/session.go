package live

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arilabs/go-ari/pkg/attention"
	"github.com/arilabs/go-ari/pkg/pcm"
)

// State is the session lifecycle state.
type State int32

const (
	Idle State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Conn is the subset of the WebSocket connection the session uses.
// *websocket.Conn satisfies it; tests inject fakes.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// DialFunc opens the transport connection. Overridable for tests and
// proxies via WithDialFunc.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// Option configures a Session.
type Option func(*Session)

// WithDialFunc replaces the WebSocket dialer.
func WithDialFunc(dial DialFunc) Option {
	return func(s *Session) { s.dial = dial }
}

// WithOutputRate overrides the sample rate stamped on inbound audio
// chunks. The default is 24000, the rate the endpoint emits.
func WithOutputRate(rate int) Option {
	return func(s *Session) { s.outputRate = rate }
}

// Session owns the lifecycle of one bidirectional remote interaction.
// At most one session is Open per pipeline instance; the handle is never
// shared outside this type.
type Session struct {
	cfg        Config
	gate       func() attention.State
	onEvent    func(ServerEvent)
	onError    func(error)
	dial       DialFunc
	outputRate int

	state atomic.Int32

	wsMu sync.Mutex // serializes writes
	ws   Conn

	mu       sync.Mutex // guards connect/close transitions
	readDone chan struct{}

	audioSent    atomic.Int64
	audioDropped atomic.Int64
}

// NewSession creates a session. The gate is consulted on every SendAudio
// call: audio is transmitted if and only if it reports Focused. onEvent
// receives decoded server events; onError receives read-side failures
// after the session opens.
func NewSession(cfg Config, gate func() attention.State, onEvent func(ServerEvent), onError func(error), opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gate == nil {
		return nil, fmt.Errorf("live: nil attention gate")
	}

	s := &Session{
		cfg:        cfg,
		gate:       gate,
		onEvent:    onEvent,
		onError:    onError,
		dial:       dialWebSocket,
		outputRate: 24000,
	}
	s.state.Store(int32(Idle))
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func dialWebSocket(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Connect dials the endpoint, sends the setup message and starts the
// read loop. Idle transitions through Connecting to Open; any failure
// lands in Closed with ErrConnection.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case Open, Connecting:
		return ErrAlreadyOpen
	case Closed:
		return fmt.Errorf("%w: session already closed", ErrConnection)
	}
	s.state.Store(int32(Connecting))

	ws, err := s.dial(ctx, s.cfg.url())
	if err != nil {
		s.state.Store(int32(Closed))
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	s.wsMu.Lock()
	s.ws = ws
	s.wsMu.Unlock()

	if err := s.sendJSON(s.setupMessage()); err != nil {
		s.state.Store(int32(Closed))
		ws.Close()
		return fmt.Errorf("%w: setup: %v", ErrConnection, err)
	}

	s.state.Store(int32(Open))
	s.readDone = make(chan struct{})
	go s.readLoop(ws, s.readDone)
	return nil
}

// setupMessage builds the session configuration frame: model identity,
// audio response modality, voice selection, system preamble, and the
// transcription flags.
func (s *Session) setupMessage() map[string]any {
	setup := map[string]any{
		"model": s.cfg.model(),
		"generationConfig": map[string]any{
			"responseModalities": []string{"AUDIO"},
			"speechConfig": map[string]any{
				"voiceConfig": map[string]any{
					"prebuiltVoiceConfig": map[string]any{
						"voiceName": s.cfg.voice(),
					},
				},
			},
		},
	}
	if s.cfg.SystemInstruction != "" {
		setup["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": s.cfg.SystemInstruction}},
		}
	}
	if s.cfg.InputTranscription {
		setup["inputAudioTranscription"] = map[string]any{}
	}
	if s.cfg.OutputTranscription {
		setup["outputAudioTranscription"] = map[string]any{}
	}
	return map[string]any{"setup": setup}
}

// SendAudio transmits one captured audio chunk, subject to the attention
// gate: only chunks captured while the user is Focused reach the remote
// endpoint. Gated-out audio is dropped permanently, never buffered.
func (s *Session) SendAudio(chunk pcm.Chunk) error {
	if s.State() != Open {
		return ErrNotConnected
	}

	if s.gate() != attention.Focused {
		s.audioDropped.Add(1)
		return nil
	}

	s.audioSent.Add(1)
	return s.sendJSON(map[string]any{
		"realtimeInput": map[string]any{
			"mediaChunks": []map[string]any{
				{"mimeType": MimeAudioPCM, "data": pcm.Encode(chunk.Samples)},
			},
		},
	})
}

// SendVideoFrame transmits one base64 JPEG still. Visual context is
// always relevant, so frames are sent regardless of attention state.
func (s *Session) SendVideoFrame(jpegBase64 string) error {
	if s.State() != Open {
		return ErrNotConnected
	}
	return s.sendJSON(map[string]any{
		"realtimeInput": map[string]any{
			"mediaChunks": []map[string]any{
				{"mimeType": MimeJPEG, "data": jpegBase64},
			},
		},
	})
}

// AudioSent returns how many chunks passed the gate.
func (s *Session) AudioSent() int64 { return s.audioSent.Load() }

// AudioDropped returns how many chunks the gate discarded.
func (s *Session) AudioDropped() int64 { return s.audioDropped.Load() }

// Close releases the remote handle. Open transitions to Closed; closing
// an already-closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == Closed {
		return nil
	}
	s.state.Store(int32(Closed))

	s.wsMu.Lock()
	ws := s.ws
	s.ws = nil
	s.wsMu.Unlock()

	var err error
	if ws != nil {
		err = ws.Close()
	}
	if s.readDone != nil {
		<-s.readDone
	}
	return err
}

func (s *Session) readLoop(ws Conn, done chan struct{}) {
	defer close(done)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if s.State() == Open {
				s.state.Store(int32(Closed))
				if s.onError != nil {
					s.onError(fmt.Errorf("%w: %v", ErrConnection, err))
				}
			}
			return
		}

		events, err := decodeEvents(raw, s.outputRate)
		if err != nil {
			// Unparseable frame; skip it and keep reading.
			continue
		}
		for _, ev := range events {
			if s.onEvent != nil {
				s.onEvent(ev)
			}
		}
	}
}

func (s *Session) sendJSON(v any) error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	if s.ws == nil {
		return ErrNotConnected
	}
	return s.ws.WriteJSON(v)
}
