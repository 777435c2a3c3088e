// Package gateway is the thin relay shell around the extraction engine:
// agent transports push raw chunks in over WebSocket, rendering clients
// subscribe to cleaned deltas and visualization records over SSE. No
// extraction logic lives here.
package gateway

import (
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vantagics/vizstream/internal/config"
	"github.com/vantagics/vizstream/internal/registry"
	"github.com/vantagics/vizstream/sdk/vizstream"
)

// Event is one SSE frame pushed to subscribers.
type Event struct {
	Type string // "delta", "visualization" or "done"
	Data any
}

// DeltaPayload is the body of a "delta" event.
type DeltaPayload struct {
	MessageID string `json:"messageId"`
	AgentKey  string `json:"agentKey,omitempty"`
	Text      string `json:"text"`
}

// VisualizationPayload is the body of a "visualization" event.
type VisualizationPayload struct {
	MessageID string            `json:"messageId"`
	AgentKey  string            `json:"agentKey,omitempty"`
	Record    *vizstream.Record `json:"record"`
}

type subscriber struct {
	ch chan Event
}

type session struct {
	id     string
	engine *vizstream.Engine

	// procMu serializes engine access: the engine is single-threaded by
	// contract and a session may have several ingest connections.
	procMu sync.Mutex

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func (s *session) subscribe() *subscriber {
	sub := &subscriber{ch: make(chan Event, 64)}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub
}

func (s *session) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

// broadcast delivers to every subscriber, dropping frames for slow
// consumers rather than stalling the stream.
func (s *session) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		select {
		case sub.ch <- ev:
		default:
			log.WithField("session", s.id).Debug("subscriber lagging, frame dropped")
		}
	}
}

// Server owns the HTTP surface and the per-session engines.
type Server struct {
	mu       sync.Mutex
	cfg      config.EngineConfig
	sessions map[string]*session
}

// New creates a gateway server with the given engine configuration.
func New(cfg config.EngineConfig) *Server {
	return &Server{
		cfg:      cfg,
		sessions: make(map[string]*session),
	}
}

// ApplyConfig swaps the engine configuration used for sessions created
// from now on. Existing sessions keep the settings they started with.
func (s *Server) ApplyConfig(cfg config.EngineConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Routes registers the gateway endpoints on a gin engine.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealth)
	r.GET("/v1/config", s.handleConfig)
	r.GET("/v1/ingest/:session", s.handleIngest)
	r.GET("/v1/stream/:session", s.handleStream)
	r.DELETE("/v1/sessions/:session", s.handleTeardown)
}

// Handler builds a ready-to-serve http.Handler.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	s.Routes(r)
	return r
}

func (s *Server) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{
			id:     id,
			engine: vizstream.New(engineOptions(s.cfg)),
			subs:   make(map[*subscriber]struct{}),
		}
		s.sessions[id] = sess
		log.WithField("session", id).Info("session created")
	}
	return sess
}

func engineOptions(cfg config.EngineConfig) vizstream.Options {
	opts := vizstream.Options{
		DedupCap:         cfg.DedupCap,
		MaxSpansPerChunk: cfg.MaxSpansPerChunk,
	}
	if len(cfg.Aliases) > 0 {
		opts.Aliases = make(map[string]vizstream.Kind, len(cfg.Aliases))
		for alias, kind := range cfg.Aliases {
			opts.Aliases[alias] = registry.Kind(kind)
		}
	}
	return opts
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	c.JSON(http.StatusOK, cfg)
}

// handleStream is the SSE downstream: deltas are appended to the
// visible transcript, visualization records are routed to a renderer
// keyed by message and kind.
func (s *Server) handleStream(c *gin.Context) {
	sess := s.session(c.Param("session"))
	sub := sess.subscribe()
	defer sess.unsubscribe(sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// handleTeardown drops a session and all of its message state. Nothing
// external is held per message, so this is a plain map delete.
func (s *Server) handleTeardown(c *gin.Context) {
	id := c.Param("session")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.mu.Lock()
		for sub := range sess.subs {
			close(sub.ch)
		}
		sess.subs = make(map[*subscriber]struct{})
		sess.mu.Unlock()
		log.WithField("session", id).Info("session dropped")
	}
	c.JSON(http.StatusOK, gin.H{"dropped": ok})
}

// publish runs one ingest frame through the engine and broadcasts the
// outcome.
func (sess *session) publish(frame ingestFrame) {
	sess.procMu.Lock()
	var res vizstream.Result
	if frame.Done {
		res = sess.engine.Finalize(frame.MessageID)
	} else {
		res = sess.engine.ProcessChunk(frame.MessageID, frame.AgentKey, frame.Content)
	}
	sess.procMu.Unlock()

	if res.CleanedDelta != "" {
		sess.broadcast(Event{Type: "delta", Data: DeltaPayload{
			MessageID: res.MessageID,
			AgentKey:  res.AgentKey,
			Text:      res.CleanedDelta,
		}})
	}
	for _, rec := range res.Visualizations {
		sess.broadcast(Event{Type: "visualization", Data: VisualizationPayload{
			MessageID: res.MessageID,
			AgentKey:  res.AgentKey,
			Record:    rec,
		}})
	}
	if frame.Done {
		sess.broadcast(Event{Type: "done", Data: gin.H{"messageId": res.MessageID}})
	}
}
