// Package ws implements the "ws" broker transport over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/migui/internal/broker"
)

// TransportName is the "-w" value served by this package.
const TransportName = "ws"

// SessionHeader carries the client session id on the handshake.
const SessionHeader = "X-Migui-Session"

const defaultHandshakeTimeout = 10 * time.Second

// Options configures a connection.
type Options struct {
	Header           http.Header
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

// Conn is a broker connection. It multiplexes concurrent calls by request id.
type Conn struct {
	ws      *websocket.Conn
	logger  *slog.Logger
	session string

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]chan Response
	closed   bool
	closeErr error
	done     chan struct{}
}

// Dial opens a broker connection to url.
func Dial(ctx context.Context, url string, opts Options) (*Conn, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	session := ulid.Make().String()
	header := http.Header{}
	for k, v := range opts.Header {
		header[k] = append([]string(nil), v...)
	}
	header.Set(SessionHeader, session)

	wsConn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to broker %s (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to broker %s: %w", url, err)
	}

	c := &Conn{
		ws:      wsConn,
		logger:  logger.With("session", session),
		session: session,
		pending: make(map[string]chan Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	c.logger.Debug("broker connection established", "url", url)
	return c, nil
}

// Session returns the session id sent on the handshake.
func (c *Conn) Session() string {
	return c.session
}

// Done is closed when the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Resolve locates ref.Identity on the broker.
func (c *Conn) Resolve(ctx context.Context, ref broker.Reference) (broker.Proxy, error) {
	raw, err := c.call(ctx, Request{Op: OpLocate, Identity: ref.Identity})
	if err != nil {
		return nil, err
	}

	var result LocateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode locate result: %w", err)
	}
	if result.Identity == "" {
		result.Identity = ref.Identity
	}

	return &Proxy{conn: c, identity: result.Identity, typeID: result.Type}, nil
}

// call sends req and waits for the matching response.
func (c *Conn) call(ctx context.Context, req Request) (json.RawMessage, error) {
	req.ID = ulid.Make().String()
	replyCh := make(chan Response, 1)

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return nil, err
	}
	c.pending[req.ID] = replyCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, req); err != nil {
		return nil, err
	}

	select {
	case resp, ok := <-replyCh:
		if !ok {
			c.mu.Lock()
			err := c.closeErr
			c.mu.Unlock()
			return nil, err
		}
		if resp.Error != nil {
			return nil, &RemoteError{Op: req.Op, Code: resp.Error.Code, Message: resp.Error.Message}
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) write(ctx context.Context, req Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send %s request: %w", req.Op, err)
	}
	return nil
}

// readLoop dispatches responses to pending calls until the socket fails.
func (c *Conn) readLoop() {
	for {
		var resp Response
		if err := c.ws.ReadJSON(&resp); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.logger.Warn("dropping malformed broker frame", "error", err)
				continue
			}
			c.shutdown(fmt.Errorf("%w: %v", broker.ErrClosed, err))
			return
		}

		c.mu.Lock()
		replyCh, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("dropping unmatched broker frame", "id", resp.ID)
			continue
		}
		replyCh <- resp
	}
}

// shutdown marks the connection closed and fails every pending call.
func (c *Conn) shutdown(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	c.closeErr = err
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	close(c.done)
	return true
}

// Close closes the connection. Pending calls fail with broker.ErrClosed.
func (c *Conn) Close() error {
	if !c.shutdown(broker.ErrClosed) {
		return nil
	}

	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.logger.Debug("broker connection closed")
	return c.ws.Close()
}
