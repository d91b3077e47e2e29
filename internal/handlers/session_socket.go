package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"typestress/internal/guard"
	"typestress/internal/models"
	"typestress/internal/service"
	"typestress/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8192
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin page; the session id is the only capability anyway
		return true
	},
}

// SessionSocket serves the live typing session protocol over a websocket.
// The client drives the lifecycle (start, input snapshots, finish, new
// paragraph, guard event reports); the server pushes metrics ticks, stress
// indicator updates, and the final result.
type SessionSocket struct {
	sessions *service.SessionService
}

// NewSessionSocket creates a new session socket handler
func NewSessionSocket(sessions *service.SessionService) *SessionSocket {
	return &SessionSocket{sessions: sessions}
}

type clientMessage struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Keystrokes int    `json:"keystrokes"`
	Errors     int    `json:"errors"`
	Confirmed  bool   `json:"confirmed"`
	Kind       string `json:"kind"`
}

type startedFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Paragraph string `json:"paragraph"`
}

type metricsFrame struct {
	Type           string  `json:"type"`
	WPM            int     `json:"wpm"`
	Accuracy       int     `json:"accuracy"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

type stressFrame struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

type guardFrame struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Blocked bool   `json:"blocked"`
}

type finishedFrame struct {
	Type   string             `json:"type"`
	Result *models.TestResult `json:"result"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// socketClient is one connected page. A connection carries at most one live
// session at a time; the reader goroutine owns the lifecycle and the writer
// goroutine owns the wire, with the send channel between them.
type socketClient struct {
	conn     *websocket.Conn
	send     chan []byte
	sessions *service.SessionService

	mu         sync.Mutex
	sess       *session.Session
	lastStress models.StressLabel
}

// Serve upgrades the connection and runs the protocol until the peer goes
// away. A connection that drops mid-session abandons the session.
func (s *SessionSocket) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading session socket: %v", err)
		return
	}

	client := &socketClient{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		sessions: s.sessions,
	}

	go client.writePump()
	client.readPump()
}

// queue marshals a frame onto the send channel. A full channel drops the
// frame; metrics ticks are superseded 4 times a second anyway.
func (c *socketClient) queue(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error encoding socket frame: %v", err)
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *socketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *socketClient) readPump() {
	defer func() {
		c.abandon()
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Session socket closed unexpectedly: %v", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.queue(errorFrame{Type: "error", Error: "malformed message"})
			continue
		}

		c.handle(msg)
	}
}

func (c *socketClient) handle(msg clientMessage) {
	switch msg.Type {
	case "start":
		c.start()
	case "input":
		c.input(msg)
	case "guard_event":
		c.guardEvent(msg)
	case "finish":
		c.finish()
	case "new_paragraph":
		c.newParagraph(msg)
	default:
		c.queue(errorFrame{Type: "error", Error: "unknown message type"})
	}
}

func (c *socketClient) start() {
	c.mu.Lock()
	active := c.sess != nil
	c.mu.Unlock()
	if active {
		c.queue(errorFrame{Type: "error", Error: "session already started"})
		return
	}

	sess, err := c.sessions.Start(c.publishMetrics)
	if err != nil {
		log.Printf("Error starting session: %v", err)
		c.queue(errorFrame{Type: "error", Error: "could not start session"})
		return
	}

	c.mu.Lock()
	c.sess = sess
	c.lastStress = ""
	c.mu.Unlock()

	c.queue(startedFrame{
		Type:      "started",
		SessionID: sess.ID(),
		Paragraph: sess.ReferenceText(),
	})
}

// publishMetrics is the runner sink: every tick becomes a metrics frame,
// plus a stress frame whenever the latest label changed.
func (c *socketClient) publishMetrics(snap models.MetricsSnapshot) {
	c.queue(metricsFrame{
		Type:           "metrics",
		WPM:            snap.WPM,
		Accuracy:       snap.AccuracyPercent,
		ElapsedSeconds: snap.ElapsedSeconds,
	})

	c.mu.Lock()
	sess := c.sess
	last := c.lastStress
	c.mu.Unlock()
	if sess == nil {
		return
	}

	if sample, ok := sess.LatestStress(); ok && sample.Label != last {
		c.mu.Lock()
		c.lastStress = sample.Label
		c.mu.Unlock()
		c.queue(stressFrame{Type: "stress", Label: string(sample.Label)})
	}
}

func (c *socketClient) input(msg clientMessage) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		c.queue(errorFrame{Type: "error", Error: "no active session"})
		return
	}

	if err := c.sessions.UpdateInput(sess.ID(), msg.Text, msg.Keystrokes, msg.Errors); err != nil {
		c.queue(errorFrame{Type: "error", Error: "could not record input"})
	}
}

func (c *socketClient) guardEvent(msg clientMessage) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return
	}

	blocked := c.sessions.ReportGuardEvent(sess.ID(), guard.EventKind(msg.Kind))
	c.queue(guardFrame{Type: "guard", Kind: msg.Kind, Blocked: blocked})
}

func (c *socketClient) finish() {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		c.queue(errorFrame{Type: "error", Error: "no active session"})
		return
	}

	result, err := c.sessions.Finish(sess.ID())
	if err != nil {
		// The session stays active; the client may retry finishing
		log.Printf("Error finishing session %s: %v", sess.ID(), err)
		c.queue(errorFrame{Type: "error", Error: "could not store result"})
		return
	}

	c.mu.Lock()
	c.sess = nil
	c.mu.Unlock()

	c.queue(finishedFrame{Type: "finished", Result: result})
}

func (c *socketClient) newParagraph(msg clientMessage) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess != nil {
		err := c.sessions.Discard(sess.ID(), msg.Confirmed)
		if errors.Is(err, service.ErrConfirmationRequired) {
			c.queue(errorFrame{Type: "confirm_required", Error: "active session must be confirmed"})
			return
		}
		if err != nil && !errors.Is(err, session.ErrUnknownSession) {
			log.Printf("Error discarding session %s: %v", sess.ID(), err)
			c.queue(errorFrame{Type: "error", Error: "could not discard session"})
			return
		}
		c.mu.Lock()
		c.sess = nil
		c.mu.Unlock()
	}

	c.start()
}

// abandon discards whatever session the connection still carried
func (c *socketClient) abandon() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()

	if sess == nil {
		return
	}
	if err := c.sessions.Discard(sess.ID(), true); err != nil && !errors.Is(err, session.ErrUnknownSession) {
		log.Printf("Error abandoning session %s: %v", sess.ID(), err)
	}
}
