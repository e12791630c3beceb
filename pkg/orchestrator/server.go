package orchestrator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/voxseg/segcore/pkg/asr"
	"github.com/voxseg/segcore/pkg/enhance"
	"github.com/voxseg/segcore/pkg/pcm"
	"github.com/voxseg/segcore/pkg/segmenter"
	"github.com/voxseg/segcore/pkg/summary"
	"github.com/voxseg/segcore/pkg/vad"
	"github.com/voxseg/segcore/pkg/wire"
)

// ProberFactory builds a fresh VAD prober for a newly-seen user; each user's
// segmenter owns its own prober instance since VAD engines carry per-stream
// state (e.g. an RNN hidden state).
type ProberFactory func() vad.FrameProber

// Server accepts WebSocket connections, segments each user's audio stream,
// and dispatches finalized segments to an ASR worker. All mutable state
// (the client set, per-user segmenters, in-flight job metadata) is owned
// exclusively by the run goroutine; every other goroutine communicates with
// it over channels instead of taking a lock.
type Server struct {
	cfg           Config
	segCfg        segmenter.Config
	proberFactory ProberFactory
	worker        *asr.Worker
	summaryGen    summary.Generator
	summaryCfg    SummaryConfig
	log           Logger
	metrics       *Metrics

	httpServer *http.Server

	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	inbound    chan inboundMsg
	asrResults chan asr.Result
	nudge      chan struct{}

	clients    map[*websocket.Conn]struct{}
	segmenters map[string]*segmenter.Segmenter
	jobMeta    map[string]JobMeta

	stopOnce sync.Once
	done     chan struct{}
}

// SummaryConfig carries the wrapup-generation tunables a wrapup.request is
// run with.
type SummaryConfig struct {
	Tips []string
}

type inboundMsg struct {
	conn *websocket.Conn
	raw  []byte
}

// New constructs a Server. worker must be non-nil; summaryGen may be nil, in
// which case wrapup.request always fails with missing_api_key.
func New(cfg Config, segCfg segmenter.Config, proberFactory ProberFactory, worker *asr.Worker, summaryGen summary.Generator, summaryCfg SummaryConfig, log Logger) (*Server, error) {
	if worker == nil {
		return nil, ErrNilProvider
	}
	if log == nil {
		log = &NoOpLogger{}
	}
	if proberFactory == nil {
		proberFactory = func() vad.FrameProber { return vad.NewRMSEngine() }
	}
	s := &Server{
		cfg:           cfg,
		segCfg:        segCfg,
		proberFactory: proberFactory,
		worker:        worker,
		summaryGen:    summaryGen,
		summaryCfg:    summaryCfg,
		log:           log,
		metrics:       NewMetrics(),
		register:      make(chan *websocket.Conn),
		unregister:    make(chan *websocket.Conn),
		inbound:       make(chan inboundMsg, 256),
		asrResults:    make(chan asr.Result, asr.QueueSize),
		nudge:         make(chan struct{}, 1),
		clients:       make(map[*websocket.Conn]struct{}),
		segmenters:    make(map[string]*segmenter.Segmenter),
		jobMeta:       make(map[string]JobMeta),
		done:          make(chan struct{}),
	}
	worker.SetEmitCallback(func(r asr.Result) {
		select {
		case s.asrResults <- r:
		case <-s.done:
		}
	})
	return s, nil
}

// Serve binds the listen address, starts the ASR worker and event loop, and
// blocks until ctx is cancelled or Shutdown is called. A bind failure is
// returned before the ASR worker or any other background goroutine is
// started. The worker's provider, and any model it loads, already exists
// by then, since it is constructed before New.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("orchestrator: bind %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	if s.cfg.MetricsAddr != "" {
		go s.serveMetrics(s.cfg.MetricsAddr)
	}

	s.httpServer = &http.Server{Handler: mux}

	s.worker.Start(ctx)
	go s.run(ctx)

	s.log.Info("orchestrator listening", "addr", addr)
	serveErr := make(chan error, 1)
	go func() { serveErr <- s.httpServer.Serve(ln) }()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-serveErr:
		if err == http.ErrServerClosed {
			return ErrServerClosed
		}
		return err
	case <-s.done:
		return ErrServerClosed
	}
}

// Shutdown stops the ASR worker, the flusher/event loop, and closes all
// peer connections, in that order.
func (s *Server) Shutdown() error {
	s.worker.Stop()
	s.stopOnce.Do(func() { close(s.done) })
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	if s.cfg.MaxFrameBytes > 0 {
		conn.SetReadLimit(int64(s.cfg.MaxFrameBytes))
	}

	select {
	case s.register <- conn:
	case <-s.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer func() {
		select {
		case s.unregister <- conn:
		case <-s.done:
		}
	}()

	ctx := r.Context()
	// http.Server.Close does not close hijacked connections, so each
	// handler closes its own peer once the server is shut down.
	go func() {
		select {
		case <-s.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		case <-ctx.Done():
		}
	}()
	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if msgType != websocket.MessageText {
			s.sendError(conn, wire.CodeUnsupportedFrame, "binary frames are not supported")
			continue
		}
		select {
		case s.inbound <- inboundMsg{conn: conn, raw: payload}:
		case <-s.done:
			return
		}
	}
}

// run is the single goroutine that owns every piece of mutable server
// state. It never blocks on network I/O directly; handleWS goroutines feed
// it over channels instead.
func (s *Server) run(ctx context.Context) {
	interval := time.Duration(s.cfg.FlushInterval * float64(time.Second))
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case conn := <-s.register:
			s.clients[conn] = struct{}{}
		case conn := <-s.unregister:
			delete(s.clients, conn)
		case m := <-s.inbound:
			s.handleIncoming(ctx, m.conn, m.raw)
		case res := <-s.asrResults:
			s.handleTranscriptionResult(res)
		case <-s.nudge:
			s.flushDue()
		case <-ticker.C:
			s.flushDue()
		}
	}
}

func (s *Server) handleIncoming(ctx context.Context, conn *websocket.Conn, raw []byte) {
	msgType, err := wire.Sniff(raw)
	if err != nil {
		if de, ok := err.(*wire.DecodeError); ok {
			s.sendError(conn, de.Code, de.Error())
			return
		}
		s.sendError(conn, wire.CodeBadRequest, err.Error())
		return
	}

	switch msgType {
	case "audio.chunk":
		s.handleAudioChunk(conn, raw)
	case "wrapup.request":
		s.handleWrapupRequest(ctx, conn, raw)
	default:
		s.sendError(conn, wire.CodeUnknownType, fmt.Sprintf("unknown message type: %q", msgType))
	}
}

func (s *Server) handleAudioChunk(conn *websocket.Conn, raw []byte) {
	var msg wire.AudioChunkMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendError(conn, wire.CodeBadRequest, fmt.Sprintf("invalid audio.chunk: %v", err))
		return
	}

	raw16, err := base64.StdEncoding.DecodeString(msg.DataB64)
	if err != nil {
		s.sendError(conn, wire.CodeBadAudioFormat, fmt.Sprintf("invalid base64 payload: %v", err))
		return
	}

	format := pcm.Format{SampleRate: msg.Format.SampleRate, Channels: msg.Format.Channels, Width: msg.Format.Width}
	pcmBytes, err := pcm.Normalize(raw16, format)
	if err != nil {
		s.sendError(conn, wire.CodeBadAudioFormat, err.Error())
		return
	}

	seg := s.segmenterFor(msg.UserID)
	for _, segment := range seg.Feed(bytesToInt16(pcmBytes), msg.CaptureTS, msg.Prompt) {
		s.submitSegment(msg.UserID, segment)
	}

	// Nudge the flusher so inactivity-based finalization (the silence-gap
	// case Feed can't detect until a later chunk arrives) runs promptly
	// rather than waiting for the next ticker interval.
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

func (s *Server) handleWrapupRequest(ctx context.Context, conn *websocket.Conn, raw []byte) {
	var msg wire.WrapupRequestMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendError(conn, wire.CodeBadRequest, fmt.Sprintf("invalid wrapup.request: %v", err))
		return
	}
	if s.summaryGen == nil {
		s.sendError(conn, wire.CodeMissingAPIKey, "summary generator is not configured")
		return
	}

	entries := make([]summary.Entry, len(msg.LogEntries))
	for i, e := range msg.LogEntries {
		entries[i] = summary.Entry{UserID: e.UserID, UserName: e.UserName, Text: e.Text, StartTS: e.StartTS}
	}
	transcript := summary.GenerateTranscript(entries, msg.SessionName)

	outline, err := s.summaryGen.Generate(ctx, transcript, s.summaryCfg.Tips)
	if err != nil {
		if reqErr, ok := err.(*summary.RequestError); ok {
			s.sendError(conn, reqErr.Code, reqErr.Message)
			return
		}
		s.sendError(conn, wire.CodeLLMError, err.Error())
		return
	}

	s.broadcast(wire.NewWrapupResponse(msg.RequestID, outline))
}

func (s *Server) handleTranscriptionResult(res asr.Result) {
	meta, ok := s.jobMeta[res.ID]
	if !ok {
		s.log.Error("missing job metadata for transcription result", "job_id", res.ID)
		return
	}
	delete(s.jobMeta, res.ID)
	s.metrics.QueueDepth.Set(float64(len(s.jobMeta)))
	s.metrics.SegmentsEmitted.Inc()
	s.broadcast(wire.NewTranscription(meta.UserID, res.Text, meta.StartTS, meta.EndTS))
}

// flushDue drains every user's ready segments, enhances the audio, and
// submits each as an ASR job.
func (s *Server) flushDue() {
	now := nowSeconds()
	for userID, seg := range s.segmenters {
		for _, segment := range seg.CollectReady(now) {
			s.submitSegment(userID, segment)
		}
	}
}

func (s *Server) submitSegment(userID string, segment segmenter.Segment) {
	floatSamples := int16ToFloat32(segment.PCM)
	enhanced := enhance.Speech(floatSamples, pcm.TargetSampleRate)
	enhancedPCM := float32ToInt16(enhanced)

	jobID := uuid.NewString()
	s.jobMeta[jobID] = JobMeta{UserID: userID, StartTS: segment.StartTS, EndTS: segment.EndTS, Submitted: nowSeconds()}

	if !s.worker.Submit(asr.Job{ID: jobID, PCM: enhancedPCM, Prompt: segment.Prompt}) {
		delete(s.jobMeta, jobID)
		s.metrics.SegmentsDropped.Inc()
		s.log.Warn("asr queue full, dropping segment", "user_id", userID)
		return
	}
	s.metrics.QueueDepth.Set(float64(len(s.jobMeta)))
}

func (s *Server) segmenterFor(userID string) *segmenter.Segmenter {
	seg, ok := s.segmenters[userID]
	if !ok {
		seg = segmenter.New(s.segCfg, s.proberFactory())
		s.segmenters[userID] = seg
	}
	return seg
}

func (s *Server) broadcast(msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("failed to marshal outgoing message", "error", err)
		return
	}
	for conn := range s.clients {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			s.log.Warn("failed to write to client, dropping", "error", err)
			delete(s.clients, conn)
		}
	}
}

func (s *Server) sendError(conn *websocket.Conn, code, message string) {
	payload, _ := json.Marshal(wire.NewError(code, message))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn.Write(ctx, websocket.MessageText, payload)
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(uint16(b[i*2]) | uint16(b[i*2+1])<<8)
	}
	return out
}

func int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

func float32ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, f := range samples {
		if f > 1.0 {
			f = 1.0
		} else if f < -1.0 {
			f = -1.0
		}
		out[i] = int16(f * 32767.0)
	}
	return out
}
