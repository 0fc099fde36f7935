package httpserver

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	appanalysis "github.com/bryanwahyu/aishield/internal/application/analysis"
	domain "github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 32
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowed) == 0 || allowed["*"] {
				return true
			}
			if allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// wsClient represents a connected WebSocket client of one session
type wsClient struct {
	conn      *websocket.Conn
	sessionID string
	send      chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsClient) enqueue(msg Message) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		log.Printf("websocket: send buffer full session=%s type=%s, dropping", c.sessionID, msg.Type)
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (r *Router) serveWS(w http.ResponseWriter, req *http.Request, id string, ctrl *appanalysis.Controller) error {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// upgrader sudah menulis response error
		log.Printf("websocket: upgrade failed session=%s err=%v", id, err)
		return nil
	}

	c := &wsClient{
		conn:      conn,
		sessionID: id,
		send:      make(chan Message, sendBuffer),
		done:      make(chan struct{}),
	}
	states, unsubscribe := ctrl.Subscribe()
	r.hub.register(id, c)

	go c.writePump(states)
	c.readPump(ctrl)

	r.hub.unregister(id, c)
	unsubscribe()
	c.close()
	return nil
}

func (c *wsClient) writePump(states <-chan domain.State) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		var msg Message
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			msg = newMessage(TypeState, newSessionView(c.sessionID, s))
		case msg = <-c.send:
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("websocket: write error session=%s err=%v", c.sessionID, err)
			return
		}
	}
}

func (c *wsClient) readPump(ctrl *appanalysis.Controller) {
	c.conn.SetReadLimit(maxBodyBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket: read error session=%s err=%v", c.sessionID, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case TypeAnalyze:
			c.handleAnalyze(ctrl, msg)
		case TypeReset:
			ctrl.Reset()
		case TypePing:
			c.enqueue(Message{Type: TypePong})
		default:
			c.enqueue(newMessage(TypeError, ErrorPayload{Message: "unknown message type: " + string(msg.Type)}))
		}
	}
}

func (c *wsClient) handleAnalyze(ctrl *appanalysis.Controller, msg Message) {
	var p AnalyzePayload
	if err := decodePayload(msg, &p); err != nil {
		c.enqueue(newMessage(TypeError, ErrorPayload{Message: "invalid analyze payload"}))
		return
	}
	if err := middleware.ValidateMessage(p.Message); err != nil {
		c.enqueue(newMessage(TypeError, ErrorPayload{Message: err.Error()}))
		return
	}
	if !ctrl.Submit(p.Message) {
		// pesan kosong: tidak ada transisi, kirim ulang state sekarang
		c.enqueue(newMessage(TypeState, newSessionView(c.sessionID, ctrl.State())))
	}
}
