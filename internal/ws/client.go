package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Followers never send payloads; anything bigger than a close frame is
	// a misbehaving peer.
	maxInbound = 512

	sendBuffer = 256
)

// Token auth happens before the upgrade, so any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one field app following the deliveries of a NIT.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	nit  string
	send chan []byte
}

// watchClose reads until the peer goes away, then leaves the hub. Inbound
// frames are discarded.
func (c *Client) watchClose() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInbound)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
			c.hub.log.WithError(err).WithField("nit", c.nit).Warn("delivery feed read")
		}
		return
	}
}

// deliver writes queued events and keeps the connection alive with pings.
// Events already waiting are sent in the same frame, newline separated.
func (c *Client) deliver() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case first, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed stopped"))
				return
			}
			if err := c.writeFrame(first); err != nil {
				c.hub.log.WithError(err).WithField("nit", c.nit).Debug("delivery feed write")
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

func (c *Client) writeFrame(first []byte) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(first)
	for range len(c.send) {
		w.Write([]byte{'\n'})
		w.Write(<-c.send)
	}
	return w.Close()
}

// feedAccess checks the ?token= of a feed request against the NIT being
// followed. Staff may follow any institution, everyone else only their own.
func feedAccess(r *http.Request, jwtSecret string) (nit string, status int, msg string) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return "", http.StatusUnauthorized, "token is required"
	}
	claims, err := auth.ValidateToken(jwtSecret, token)
	if err != nil {
		return "", http.StatusUnauthorized, "invalid token"
	}
	nit = chi.URLParam(r, "nit")
	if nit == "" {
		return "", http.StatusBadRequest, "nit is required"
	}
	u := claims.User()
	if !u.HasRole(enum.RoleAdmin) && !u.HasRole(enum.RoleAccountManager) && u.NIT != nit {
		return "", http.StatusForbidden, "cannot follow another institution's deliveries"
	}
	return nit, http.StatusOK, ""
}

// ServeWS upgrades GET /ws/entregas/{nit}?token=JWT to a live delivery feed.
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	nit, status, msg := feedAccess(r, jwtSecret)
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": msg})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.WithError(err).WithField("nit", nit).Warn("delivery feed upgrade")
		return
	}
	c := &Client{hub: hub, conn: conn, nit: nit, send: make(chan []byte, sendBuffer)}
	if !hub.join(c) {
		conn.Close()
		return
	}
	go c.deliver()
	go c.watchClose()
}
