package perception

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/arilabs/go-ari/pkg/attention"
	"github.com/arilabs/go-ari/pkg/capture"
	"github.com/arilabs/go-ari/pkg/chatlog"
	"github.com/arilabs/go-ari/pkg/live"
	"github.com/arilabs/go-ari/pkg/pcm"
	"github.com/arilabs/go-ari/pkg/playback"
	"github.com/arilabs/go-ari/pkg/turns"
	"github.com/arilabs/go-ari/pkg/vision"
)

// Common errors returned by pipelines.
var (
	ErrAlreadyStarted = errors.New("perception: pipeline already started")
	ErrClosed         = errors.New("perception: pipeline closed")
)

// Status is a point-in-time snapshot of the pipeline, pushed to the
// status callback whenever something observable changes.
type Status struct {
	Attention    attention.State `json:"attention"`
	Session      live.State      `json:"session"`
	Caption      turns.Caption   `json:"caption"`
	AudioSent    int64           `json:"audio_sent"`
	AudioDropped int64           `json:"audio_dropped"`
	Frames       int64           `json:"frames"`
	Snapshots    int64           `json:"snapshots"`
	GazeActive   bool            `json:"gaze_active"`
	LastError    string          `json:"last_error,omitempty"`
}

// event is one unit of work for the coordination loop.
type event struct {
	frame    *capture.Frame
	block    *capture.Block
	snapshot []byte
	server   *live.ServerEvent
	err      error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithOnStatus sets the status callback. It is invoked from pipeline
// goroutines and must not block.
func WithOnStatus(fn func(Status)) Option {
	return func(p *Pipeline) { p.onStatus = fn }
}

// WithVision injects a landmark provider, replacing the default face
// detector. Passing nil disables gaze inference.
func WithVision(provider vision.Provider) Option {
	return func(p *Pipeline) {
		p.provider = provider
		p.providerSet = true
	}
}

// WithManager injects a prebuilt capture manager.
func WithManager(m *capture.Manager) Option {
	return func(p *Pipeline) { p.manager = m }
}

// WithSink injects the playback sink, replacing the default ffplay
// process.
func WithSink(sink playback.Sink) Option {
	return func(p *Pipeline) { p.sink = sink }
}

// WithSessionOptions forwards options to the streaming session.
func WithSessionOptions(opts ...live.Option) Option {
	return func(p *Pipeline) { p.sessionOpts = opts }
}

// WithSnapshotTap mirrors each outbound snapshot to fn, e.g. for a
// dashboard preview. Must not block.
func WithSnapshotTap(fn func(jpeg []byte)) Option {
	return func(p *Pipeline) { p.snapshotTap = fn }
}

// Pipeline wires capture, attention, the streaming session, playback,
// and the turn aggregator into one running unit.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	chats  *chatlog.Log

	detector *attention.Detector
	agg      *turns.Aggregator

	provider    vision.Provider
	providerSet bool
	manager     *capture.Manager
	sink        playback.Sink
	session     *live.Session
	scheduler   *playback.Scheduler
	sessionOpts []live.Option

	onStatus    func(Status)
	snapshotTap func([]byte)

	events chan event
	quit   chan struct{}

	// mounted gates every async callback: once cleared, late
	// completions from tickers and timers become no-ops.
	mounted   atomic.Bool
	started   atomic.Bool
	closeOnce sync.Once
	loopDone  chan struct{}

	frames    atomic.Int64
	snapshots atomic.Int64

	statusMu  sync.Mutex
	lastError string
}

// NewPipeline creates a pipeline. Nothing is acquired until Start.
func NewPipeline(cfg Config, chats *chatlog.Log, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.AttentionThreshold == 0 {
		cfg.AttentionThreshold = attention.DefaultThreshold
	}
	if cfg.InputRate == 0 {
		cfg.InputRate = 16000
	}
	if cfg.OutputRate == 0 {
		cfg.OutputRate = 24000
	}

	detector, err := attention.NewDetector(cfg.AttentionThreshold)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		logger:   slog.Default(),
		chats:    chats,
		detector: detector,
		events:   make(chan event, 64),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.agg = turns.NewAggregator(p.appendTurn, p.captionChanged)
	return p, nil
}

// Start acquires media, connects the session and begins coordinating.
// Media acquisition failure stops everything before the connection is
// attempted; connection failure releases the already-acquired media.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if !p.providerSet {
		provider, err := vision.NewYuNet(p.cfg.Vision)
		if err != nil {
			// Without gaze the attention state stays Initializing,
			// which never passes the audio gate. The session still
			// carries video context.
			p.logger.Warn("face detector unavailable, gaze inference disabled", "err", err)
		} else {
			p.provider = provider
		}
	}

	if p.manager == nil {
		m, err := capture.NewManager(p.cfg.Capture, p.logger)
		if err != nil {
			return err
		}
		p.manager = m
	}
	p.manager.OnFrame = p.frameArrived
	p.manager.OnSnapshot = p.snapshotArrived
	p.manager.OnAudioBlock = p.audioArrived

	p.mounted.Store(true)

	if err := p.manager.Start(ctx); err != nil {
		p.mounted.Store(false)
		return err
	}

	if p.sink == nil {
		clock := playback.NewClock()
		sink, err := playback.NewFFPlaySink(p.cfg.OutputRate, clock, p.logger)
		if err != nil {
			p.mounted.Store(false)
			p.manager.Close()
			return fmt.Errorf("perception: playback sink: %w", err)
		}
		p.sink = sink
		p.scheduler = playback.NewScheduler(sink, playback.WithClock(clock))
	} else {
		p.scheduler = playback.NewScheduler(p.sink)
	}

	session, err := live.NewSession(p.cfg.Session, p.detector.State, p.serverEventArrived, p.sessionFailed, p.sessionOpts...)
	if err != nil {
		p.mounted.Store(false)
		p.manager.Close()
		p.scheduler.Close()
		return err
	}
	if err := session.Connect(ctx); err != nil {
		p.mounted.Store(false)
		p.manager.Close()
		p.scheduler.Close()
		return err
	}
	p.session = session

	go p.loop()

	p.logger.Info("pipeline started",
		"model", p.cfg.Session.Model,
		"threshold", p.detector.Threshold(),
		"gaze", p.provider != nil,
	)
	p.emitStatus()
	return nil
}

// Close tears the pipeline down: capture stops first so no new events
// are produced, then the loop drains, then playback and the session
// release. Idempotent.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mounted.Store(false)

		if p.manager != nil {
			err = errors.Join(err, p.manager.Close())
		}

		close(p.quit)
		if p.started.Load() && p.session != nil {
			<-p.loopDone
		}

		if p.scheduler != nil {
			err = errors.Join(err, p.scheduler.Close())
		}
		if p.session != nil {
			err = errors.Join(err, p.session.Close())
		}
		p.agg.Close()
		if p.provider != nil {
			err = errors.Join(err, p.provider.Close())
		}
		p.logger.Info("pipeline stopped")
	})
	return err
}

// Status returns the current pipeline snapshot.
func (p *Pipeline) Status() Status {
	st := Status{
		Attention:  p.detector.State(),
		Caption:    p.agg.Pending(),
		Frames:     p.frames.Load(),
		Snapshots:  p.snapshots.Load(),
		GazeActive: p.provider != nil,
	}
	if p.session != nil {
		st.Session = p.session.State()
		st.AudioSent = p.session.AudioSent()
		st.AudioDropped = p.session.AudioDropped()
	}
	p.statusMu.Lock()
	st.LastError = p.lastError
	p.statusMu.Unlock()
	return st
}

func (p *Pipeline) emitStatus() {
	if p.onStatus == nil {
		return
	}
	p.onStatus(p.Status())
}

// push enqueues one event for the loop, dropping it when the pipeline
// is unmounted or the loop is saturated.
func (p *Pipeline) push(ev event) {
	if !p.mounted.Load() {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.logger.Debug("event queue full, dropping event")
	}
}

func (p *Pipeline) frameArrived(frame capture.Frame) {
	p.push(event{frame: &frame})
}

func (p *Pipeline) snapshotArrived(jpeg []byte) {
	p.push(event{snapshot: jpeg})
}

func (p *Pipeline) audioArrived(block capture.Block) {
	p.push(event{block: &block})
}

func (p *Pipeline) serverEventArrived(ev live.ServerEvent) {
	p.push(event{server: &ev})
}

func (p *Pipeline) sessionFailed(err error) {
	p.push(event{err: err})
}

func (p *Pipeline) loop() {
	defer close(p.loopDone)
	for {
		select {
		case <-p.quit:
			return
		case ev := <-p.events:
			p.handle(ev)
		}
	}
}

func (p *Pipeline) handle(ev event) {
	switch {
	case ev.frame != nil:
		p.handleFrame(*ev.frame)
	case ev.block != nil:
		p.handleAudio(*ev.block)
	case ev.snapshot != nil:
		p.handleSnapshot(ev.snapshot)
	case ev.server != nil:
		p.handleServerEvent(*ev.server)
	case ev.err != nil:
		p.reportError(ev.err)
	}
}

func (p *Pipeline) handleFrame(frame capture.Frame) {
	p.frames.Add(1)
	if p.provider == nil {
		return
	}

	lm, err := p.provider.Detect(frame.JPEG)
	if err != nil {
		// A failed inference keeps the previous state; only a clean
		// no-face observation demotes to Distracted.
		p.logger.Debug("gaze inference failed", "err", err)
		return
	}

	before := p.detector.State()
	after := p.detector.Observe(lm)
	if after != before {
		p.logger.Debug("attention changed", "from", before, "to", after)
		p.emitStatus()
	}
}

func (p *Pipeline) handleAudio(block capture.Block) {
	samples := pcm.Resample(block.Samples, block.Rate, p.cfg.InputRate)
	err := p.session.SendAudio(pcm.Chunk{Samples: samples, Rate: p.cfg.InputRate})
	if err != nil && !errors.Is(err, live.ErrNotConnected) {
		p.reportError(err)
	}
}

func (p *Pipeline) handleSnapshot(jpeg []byte) {
	p.snapshots.Add(1)
	if p.snapshotTap != nil {
		p.snapshotTap(jpeg)
	}
	data := base64.StdEncoding.EncodeToString(jpeg)
	err := p.session.SendVideoFrame(data)
	if err != nil && !errors.Is(err, live.ErrNotConnected) {
		p.reportError(err)
	}
}

func (p *Pipeline) handleServerEvent(ev live.ServerEvent) {
	switch ev.Kind {
	case live.EventAudio:
		if err := p.scheduler.Enqueue(ev.Audio); err != nil && !errors.Is(err, playback.ErrClosed) {
			p.reportError(err)
		}
	case live.EventInputTranscript:
		p.agg.AddUserDelta(ev.Text)
	case live.EventOutputTranscript:
		p.agg.AddModelDelta(ev.Text)
	case live.EventTurnComplete:
		p.agg.CompleteTurn()
	case live.EventInterrupted:
		if err := p.scheduler.Flush(); err != nil && !errors.Is(err, playback.ErrClosed) {
			p.reportError(err)
		}
		p.agg.Interrupt()
	}
}

func (p *Pipeline) appendTurn(turn turns.Turn) {
	if p.chats != nil {
		p.chats.AppendTurn(turn)
	}
	p.logger.Info("turn completed",
		"user_len", len(turn.User),
		"model_len", len(turn.Model),
	)
}

func (p *Pipeline) captionChanged(turns.Caption) {
	if p.mounted.Load() {
		p.emitStatus()
	}
}

func (p *Pipeline) reportError(err error) {
	p.statusMu.Lock()
	p.lastError = err.Error()
	p.statusMu.Unlock()
	p.logger.Error("pipeline error", "err", err)
	p.emitStatus()
}
