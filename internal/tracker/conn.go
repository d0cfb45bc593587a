package tracker

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	pkgerrors "github.com/angelmondragon/sliceline-client/pkg/errors"
)

// Conn is the read side of one open push channel.
type Conn interface {
	ReadMessage() ([]byte, error)
	// CloseNormal signals an intentional teardown so the server does not
	// mistake it for a dropped client.
	CloseNormal(reason string) error
	Close() error
}

// Dialer opens push channels; swapped out by tests.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

const closeWriteTimeout = 2 * time.Second

// WSDialer dials the order status websocket endpoint.
type WSDialer struct{}

func (WSDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "stream rejected credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransport, err, "dialing order stream")
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) CloseNormal(reason string) error {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(closeWriteTimeout))
	return c.conn.Close()
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// isNormalClosure reports whether the read error reflects a clean shutdown
// rather than a dropped connection.
func isNormalClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
